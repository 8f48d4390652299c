package httpapi

import (
	"fmt"
	"net/http"

	"github.com/R3E-Network/farm_backoffice/internal/app/auth"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/member"
	"github.com/R3E-Network/farm_backoffice/internal/app/export"
	membersvc "github.com/R3E-Network/farm_backoffice/internal/app/services/members"
	"github.com/gorilla/mux"
)

func (h *handler) memberRoutes(r *mux.Router) {
	r.HandleFunc("", h.getMember).Methods(http.MethodGet)
	r.HandleFunc("", h.updateMember).Methods(http.MethodPatch)
	r.HandleFunc("", h.deleteMember).Methods(http.MethodDelete)
}

func (h *handler) listMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.app.Members.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *handler) createMember(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name     string      `json:"name"`
		Email    string      `json:"email"`
		Phone    string      `json:"phone"`
		Password string      `json:"password"`
		Role     member.Role `json:"role"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		h.fail(w, r, err)
		return
	}
	m, err := h.app.Members.Create(r.Context(), payload.Name, payload.Email, payload.Phone, payload.Password, payload.Role)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *handler) exportMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.app.Members.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeExport(w, r, "members", export.Members(members))
}

func (h *handler) getMember(w http.ResponseWriter, r *http.Request) {
	m, err := h.app.Members.Get(r.Context(), memberID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// updateMember lets members edit their profile. Role and active changes are
// reserved to administrators.
func (h *handler) updateMember(w http.ResponseWriter, r *http.Request) {
	var upd membersvc.Update
	if err := decodeJSON(r, &upd); err != nil {
		h.fail(w, r, err)
		return
	}
	claims, _ := auth.FromContext(r.Context())
	if !claims.IsAdmin() && (upd.Role != nil || upd.Active != nil) {
		h.fail(w, r, fmt.Errorf("changing role or active flag: %w", errForbidden))
		return
	}
	m, err := h.app.Members.Update(r.Context(), memberID(r), upd)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *handler) deleteMember(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.FromContext(r.Context())
	if !claims.IsAdmin() {
		h.fail(w, r, fmt.Errorf("deleting members: %w", errForbidden))
		return
	}
	if claims.MemberID == memberID(r) {
		h.fail(w, r, fmt.Errorf("deleting your own member: %w", errForbidden))
		return
	}
	if err := h.app.Members.Delete(r.Context(), memberID(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
