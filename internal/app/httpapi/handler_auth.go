package httpapi

import (
	"context"
	"errors"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/R3E-Network/farm_backoffice/internal/app/auth"
	"github.com/R3E-Network/farm_backoffice/internal/app/core/service"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/member"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if !h.app.Running() {
		status = "starting"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status": status,
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		h.fail(w, r, err)
		return
	}
	m, err := h.app.Members.Authenticate(r.Context(), payload.Email, payload.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	tok, err := h.tokens.Issue(m)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		auth.Token
		Member member.Member `json:"member"`
	}{Token: tok, Member: m})
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errors.New("authentication required"))
		return
	}
	if err := h.tokens.Revoke(r.Context(), claims); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.FromContext(r.Context())
	m, err := h.app.Members.Get(r.Context(), claims.MemberID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

type hostStatus struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	ProcessRSS    uint64  `json:"process_rss_bytes"`
	Goroutines    int     `json:"goroutines"`
}

type systemStatus struct {
	Status      string               `json:"status"`
	Uptime      string               `json:"uptime"`
	Services    []string             `json:"services"`
	Descriptors []service.Descriptor `json:"descriptors"`
	Host        hostStatus           `json:"host"`
}

func (h *handler) systemStatus(w http.ResponseWriter, r *http.Request) {
	status := "running"
	if !h.app.Running() {
		status = "stopped"
	}
	writeJSON(w, http.StatusOK, systemStatus{
		Status:      status,
		Uptime:      time.Since(h.started).Round(time.Second).String(),
		Services:    h.app.ServiceNames(),
		Descriptors: h.app.Descriptors(),
		Host:        h.hostStatus(r.Context()),
	})
}

// hostStatus samples host figures. Figures the platform cannot provide are
// left at zero.
func (h *handler) hostStatus(ctx context.Context) hostStatus {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	hs := hostStatus{Goroutines: runtime.NumGoroutine()}
	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		hs.CPUPercent = pct[0]
	} else if err != nil {
		h.log.WithError(err).Debug("cpu sample unavailable")
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		hs.MemoryPercent = vm.UsedPercent
	}
	if p, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil {
		if info, err := p.MemoryInfoWithContext(ctx); err == nil {
			hs.ProcessRSS = info.RSS
		}
	}
	return hs
}

func (h *handler) systemAudit(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.audit.List(queryInt(r, "limit", 0)))
}
