package httpapi

import (
	"net/http"

	"github.com/R3E-Network/farm_backoffice/internal/app/domain/activity"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/admission"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/processing"
	"github.com/R3E-Network/farm_backoffice/internal/app/export"
	activitysvc "github.com/R3E-Network/farm_backoffice/internal/app/services/activities"
	"github.com/gorilla/mux"
)

func (h *handler) operationRoutes(r *mux.Router) {
	r.HandleFunc("/activities", h.listActivities).Methods(http.MethodGet)
	r.HandleFunc("/activities", h.recordActivity).Methods(http.MethodPost)
	r.HandleFunc("/activities/export", h.exportActivities).Methods(http.MethodGet)
	r.HandleFunc("/activities/{id}", h.getActivity).Methods(http.MethodGet)
	r.HandleFunc("/activities/{id}", h.updateActivity).Methods(http.MethodPatch)
	r.HandleFunc("/activities/{id}", h.deleteActivity).Methods(http.MethodDelete)

	r.HandleFunc("/admissions", h.listAdmissions).Methods(http.MethodGet)
	r.HandleFunc("/admissions", h.admit).Methods(http.MethodPost)
	r.HandleFunc("/admissions/export", h.exportAdmissions).Methods(http.MethodGet)
	r.HandleFunc("/admissions/{id}", h.getAdmission).Methods(http.MethodGet)
	r.HandleFunc("/admissions/{id}", h.deleteAdmission).Methods(http.MethodDelete)

	r.HandleFunc("/processing", h.listProcessing).Methods(http.MethodGet)
	r.HandleFunc("/processing", h.recordProcessing).Methods(http.MethodPost)
	r.HandleFunc("/processing/export", h.exportProcessing).Methods(http.MethodGet)
	r.HandleFunc("/processing/{id}", h.getProcessing).Methods(http.MethodGet)
}

func activityFilter(r *http.Request) (activity.Filter, error) {
	from, to, err := dateRange(r)
	if err != nil {
		return activity.Filter{}, err
	}
	q := r.URL.Query()
	return activity.Filter{
		ParcelID: q.Get("parcel_id"),
		Type:     activity.Type(q.Get("type")),
		From:     from,
		To:       to,
	}, nil
}

func (h *handler) listActivities(w http.ResponseWriter, r *http.Request) {
	filter, err := activityFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	activities, err := h.app.Activities.List(r.Context(), memberID(r), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, activities)
}

func (h *handler) recordActivity(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ParcelID    string        `json:"parcel_id"`
		Type        activity.Type `json:"type"`
		PerformedOn *Date         `json:"performed_on"`
		HarvesterID string        `json:"harvester_id"`
		Product     string        `json:"product"`
		Quantity    float64       `json:"quantity"`
		Unit        string        `json:"unit"`
		LaborCost   float64       `json:"labor_cost"`
		InputCost   float64       `json:"input_cost"`
		Notes       string        `json:"notes"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		h.fail(w, r, err)
		return
	}
	a, err := h.app.Activities.Record(r.Context(), activity.Activity{
		MemberID:    memberID(r),
		ParcelID:    payload.ParcelID,
		Type:        payload.Type,
		PerformedOn: payload.PerformedOn.value(),
		HarvesterID: payload.HarvesterID,
		Product:     payload.Product,
		Quantity:    payload.Quantity,
		Unit:        payload.Unit,
		LaborCost:   payload.LaborCost,
		InputCost:   payload.InputCost,
		Notes:       payload.Notes,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *handler) getActivity(w http.ResponseWriter, r *http.Request) {
	a, err := h.app.Activities.Get(r.Context(), memberID(r), pathID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *handler) updateActivity(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Notes       *string  `json:"notes"`
		LaborCost   *float64 `json:"labor_cost"`
		InputCost   *float64 `json:"input_cost"`
		PerformedOn *Date    `json:"performed_on"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		h.fail(w, r, err)
		return
	}
	upd := activitysvc.Update{Notes: payload.Notes, LaborCost: payload.LaborCost, InputCost: payload.InputCost}
	if payload.PerformedOn != nil {
		on := payload.PerformedOn.Time
		upd.PerformedOn = &on
	}
	a, err := h.app.Activities.Update(r.Context(), memberID(r), pathID(r), upd)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *handler) deleteActivity(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Activities.Delete(r.Context(), memberID(r), pathID(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) exportActivities(w http.ResponseWriter, r *http.Request) {
	filter, err := activityFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	activities, err := h.app.Activities.List(r.Context(), memberID(r), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeExport(w, r, "activities", export.Activities(activities))
}

func admissionFilter(r *http.Request) admission.Filter {
	q := r.URL.Query()
	return admission.Filter{Product: q.Get("product"), Source: admission.Source(q.Get("source"))}
}

func (h *handler) listAdmissions(w http.ResponseWriter, r *http.Request) {
	admissions, err := h.app.Admissions.List(r.Context(), memberID(r), admissionFilter(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, admissions)
}

func (h *handler) admit(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Source      admission.Source `json:"source"`
		ParcelID    string           `json:"parcel_id"`
		HarvesterID string           `json:"harvester_id"`
		Supplier    string           `json:"supplier"`
		Product     string           `json:"product"`
		Grade       string           `json:"grade"`
		Quantity    float64          `json:"quantity"`
		Unit        string           `json:"unit"`
		UnitCost    float64          `json:"unit_cost"`
		AdmittedOn  *Date            `json:"admitted_on"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		h.fail(w, r, err)
		return
	}
	a, err := h.app.Admissions.Admit(r.Context(), admission.Admission{
		MemberID:    memberID(r),
		Source:      payload.Source,
		ParcelID:    payload.ParcelID,
		HarvesterID: payload.HarvesterID,
		Supplier:    payload.Supplier,
		Product:     payload.Product,
		Grade:       payload.Grade,
		Quantity:    payload.Quantity,
		Unit:        payload.Unit,
		UnitCost:    payload.UnitCost,
		AdmittedOn:  payload.AdmittedOn.value(),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *handler) getAdmission(w http.ResponseWriter, r *http.Request) {
	a, err := h.app.Admissions.Get(r.Context(), memberID(r), pathID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *handler) deleteAdmission(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Admissions.Delete(r.Context(), memberID(r), pathID(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) exportAdmissions(w http.ResponseWriter, r *http.Request) {
	admissions, err := h.app.Admissions.List(r.Context(), memberID(r), admissionFilter(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeExport(w, r, "admissions", export.Admissions(admissions))
}

func (h *handler) listProcessing(w http.ResponseWriter, r *http.Request) {
	runs, err := h.app.Processing.List(r.Context(), memberID(r), processing.Type(r.URL.Query().Get("type")))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *handler) recordProcessing(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Type           processing.Type `json:"type"`
		InputProduct   string          `json:"input_product"`
		InputQuantity  float64         `json:"input_quantity"`
		OutputProduct  string          `json:"output_product"`
		OutputQuantity float64         `json:"output_quantity"`
		ProcessingCost float64         `json:"processing_cost"`
		ProcessedOn    *Date           `json:"processed_on"`
		Notes          string          `json:"notes"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		h.fail(w, r, err)
		return
	}
	run, err := h.app.Processing.Record(r.Context(), processing.Run{
		MemberID:       memberID(r),
		Type:           payload.Type,
		InputProduct:   payload.InputProduct,
		InputQuantity:  payload.InputQuantity,
		OutputProduct:  payload.OutputProduct,
		OutputQuantity: payload.OutputQuantity,
		ProcessingCost: payload.ProcessingCost,
		ProcessedOn:    payload.ProcessedOn.value(),
		Notes:          payload.Notes,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, run)
}

func (h *handler) getProcessing(w http.ResponseWriter, r *http.Request) {
	run, err := h.app.Processing.Get(r.Context(), memberID(r), pathID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *handler) exportProcessing(w http.ResponseWriter, r *http.Request) {
	runs, err := h.app.Processing.List(r.Context(), memberID(r), processing.Type(r.URL.Query().Get("type")))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeExport(w, r, "processing", export.ProcessingRuns(runs))
}
