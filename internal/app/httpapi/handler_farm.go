package httpapi

import (
	"net/http"

	"github.com/R3E-Network/farm_backoffice/internal/app/core/service"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/harvester"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/parcel"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/zone"
	"github.com/R3E-Network/farm_backoffice/internal/app/export"
	"github.com/gorilla/mux"
)

func (h *handler) farmRoutes(r *mux.Router) {
	r.HandleFunc("/zones", h.listZones).Methods(http.MethodGet)
	r.HandleFunc("/zones", h.createZone).Methods(http.MethodPost)
	r.HandleFunc("/zones/export", h.exportZones).Methods(http.MethodGet)
	r.HandleFunc("/zones/{id}", h.getZone).Methods(http.MethodGet)
	r.HandleFunc("/zones/{id}", h.updateZone).Methods(http.MethodPut)
	r.HandleFunc("/zones/{id}", h.deleteZone).Methods(http.MethodDelete)

	r.HandleFunc("/parcels", h.listParcels).Methods(http.MethodGet)
	r.HandleFunc("/parcels", h.createParcel).Methods(http.MethodPost)
	r.HandleFunc("/parcels/export", h.exportParcels).Methods(http.MethodGet)
	r.HandleFunc("/parcels/{id}", h.getParcel).Methods(http.MethodGet)
	r.HandleFunc("/parcels/{id}", h.updateParcel).Methods(http.MethodPut)
	r.HandleFunc("/parcels/{id}", h.deleteParcel).Methods(http.MethodDelete)

	r.HandleFunc("/harvesters", h.listHarvesters).Methods(http.MethodGet)
	r.HandleFunc("/harvesters", h.createHarvester).Methods(http.MethodPost)
	r.HandleFunc("/harvesters/export", h.exportHarvesters).Methods(http.MethodGet)
	r.HandleFunc("/harvesters/{id}", h.getHarvester).Methods(http.MethodGet)
	r.HandleFunc("/harvesters/{id}", h.updateHarvester).Methods(http.MethodPut)
	r.HandleFunc("/harvesters/{id}", h.deleteHarvester).Methods(http.MethodDelete)
	r.HandleFunc("/harvesters/{id}/active", h.setHarvesterActive).Methods(http.MethodPut)
}

type zonePayload struct {
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	AreaHectares float64 `json:"area_hectares"`
}

func (p zonePayload) zone(memberID, id string) zone.Zone {
	return zone.Zone{ID: id, MemberID: memberID, Name: p.Name, Description: p.Description, AreaHectares: p.AreaHectares}
}

func (h *handler) listZones(w http.ResponseWriter, r *http.Request) {
	zones, err := h.app.Zones.List(r.Context(), memberID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, zones)
}

func (h *handler) createZone(w http.ResponseWriter, r *http.Request) {
	var payload zonePayload
	if err := decodeJSON(r, &payload); err != nil {
		h.fail(w, r, err)
		return
	}
	z, err := h.app.Zones.Create(r.Context(), payload.zone(memberID(r), ""))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, z)
}

func (h *handler) getZone(w http.ResponseWriter, r *http.Request) {
	z, err := h.app.Zones.Get(r.Context(), memberID(r), pathID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, z)
}

func (h *handler) updateZone(w http.ResponseWriter, r *http.Request) {
	var payload zonePayload
	if err := decodeJSON(r, &payload); err != nil {
		h.fail(w, r, err)
		return
	}
	z, err := h.app.Zones.Update(r.Context(), memberID(r), payload.zone(memberID(r), pathID(r)))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, z)
}

func (h *handler) deleteZone(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Zones.Delete(r.Context(), memberID(r), pathID(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) exportZones(w http.ResponseWriter, r *http.Request) {
	zones, err := h.app.Zones.List(r.Context(), memberID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeExport(w, r, "zones", export.Zones(zones))
}

type parcelPayload struct {
	ZoneID          string        `json:"zone_id"`
	Code            string        `json:"code"`
	Name            string        `json:"name"`
	AreaHectares    float64       `json:"area_hectares"`
	Crop            string        `json:"crop"`
	Tenure          parcel.Tenure `json:"tenure"`
	AnnualLeaseCost float64       `json:"annual_lease_cost"`
}

func (p parcelPayload) parcel(memberID, id string) parcel.Parcel {
	return parcel.Parcel{
		ID:              id,
		MemberID:        memberID,
		ZoneID:          p.ZoneID,
		Code:            p.Code,
		Name:            p.Name,
		AreaHectares:    p.AreaHectares,
		Crop:            p.Crop,
		Tenure:          p.Tenure,
		AnnualLeaseCost: p.AnnualLeaseCost,
	}
}

func (h *handler) listParcels(w http.ResponseWriter, r *http.Request) {
	parcels, err := h.app.Parcels.List(r.Context(), memberID(r), r.URL.Query().Get("zone_id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, parcels)
}

func (h *handler) createParcel(w http.ResponseWriter, r *http.Request) {
	var payload parcelPayload
	if err := decodeJSON(r, &payload); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.app.Parcels.Create(r.Context(), payload.parcel(memberID(r), ""))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *handler) getParcel(w http.ResponseWriter, r *http.Request) {
	p, err := h.app.Parcels.Get(r.Context(), memberID(r), pathID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) updateParcel(w http.ResponseWriter, r *http.Request) {
	var payload parcelPayload
	if err := decodeJSON(r, &payload); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.app.Parcels.Update(r.Context(), memberID(r), payload.parcel(memberID(r), pathID(r)))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) deleteParcel(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Parcels.Delete(r.Context(), memberID(r), pathID(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) exportParcels(w http.ResponseWriter, r *http.Request) {
	parcels, err := h.app.Parcels.List(r.Context(), memberID(r), r.URL.Query().Get("zone_id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	zones, err := h.app.Zones.List(r.Context(), memberID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeExport(w, r, "parcels", export.Parcels(parcels, zones))
}

type harvesterPayload struct {
	Name        string  `json:"name"`
	NationalID  string  `json:"national_id"`
	Phone       string  `json:"phone"`
	ZoneID      string  `json:"zone_id"`
	RatePerUnit float64 `json:"rate_per_unit"`
}

func (p harvesterPayload) harvester(memberID, id string) harvester.Harvester {
	return harvester.Harvester{
		ID:          id,
		MemberID:    memberID,
		Name:        p.Name,
		NationalID:  p.NationalID,
		Phone:       p.Phone,
		ZoneID:      p.ZoneID,
		RatePerUnit: p.RatePerUnit,
	}
}

func (h *handler) listHarvesters(w http.ResponseWriter, r *http.Request) {
	harvesters, err := h.app.Harvesters.List(r.Context(), memberID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, harvesters)
}

func (h *handler) createHarvester(w http.ResponseWriter, r *http.Request) {
	var payload harvesterPayload
	if err := decodeJSON(r, &payload); err != nil {
		h.fail(w, r, err)
		return
	}
	hv, err := h.app.Harvesters.Create(r.Context(), payload.harvester(memberID(r), ""))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, hv)
}

func (h *handler) getHarvester(w http.ResponseWriter, r *http.Request) {
	hv, err := h.app.Harvesters.Get(r.Context(), memberID(r), pathID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hv)
}

func (h *handler) updateHarvester(w http.ResponseWriter, r *http.Request) {
	var payload harvesterPayload
	if err := decodeJSON(r, &payload); err != nil {
		h.fail(w, r, err)
		return
	}
	hv, err := h.app.Harvesters.Update(r.Context(), memberID(r), payload.harvester(memberID(r), pathID(r)))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hv)
}

func (h *handler) setHarvesterActive(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Active *bool `json:"active"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		h.fail(w, r, err)
		return
	}
	if payload.Active == nil {
		h.fail(w, r, service.Required("active"))
		return
	}
	hv, err := h.app.Harvesters.SetActive(r.Context(), memberID(r), pathID(r), *payload.Active)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hv)
}

func (h *handler) deleteHarvester(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Harvesters.Delete(r.Context(), memberID(r), pathID(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) exportHarvesters(w http.ResponseWriter, r *http.Request) {
	harvesters, err := h.app.Harvesters.List(r.Context(), memberID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	zones, err := h.app.Zones.List(r.Context(), memberID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeExport(w, r, "harvesters", export.Harvesters(harvesters, zones))
}
