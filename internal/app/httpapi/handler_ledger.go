package httpapi

import (
	"net/http"
	"time"

	"github.com/R3E-Network/farm_backoffice/internal/app/domain/accounting"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/inventory"
	"github.com/R3E-Network/farm_backoffice/internal/app/export"
	"github.com/gorilla/mux"
)

func (h *handler) ledgerRoutes(r *mux.Router) {
	r.HandleFunc("/inventory/balances", h.listBalances).Methods(http.MethodGet)
	r.HandleFunc("/inventory/balances/{product}", h.getBalance).Methods(http.MethodGet)
	r.HandleFunc("/inventory/items", h.listItems).Methods(http.MethodGet)
	r.HandleFunc("/inventory/items/{id}", h.getItem).Methods(http.MethodGet)
	r.HandleFunc("/inventory/adjustments", h.adjustStock).Methods(http.MethodPost)
	r.HandleFunc("/inventory/sales", h.sell).Methods(http.MethodPost)
	r.HandleFunc("/inventory/reconcile", h.reconcile).Methods(http.MethodPost)
	r.HandleFunc("/inventory/export", h.exportInventory).Methods(http.MethodGet)

	r.HandleFunc("/accounting/entries", h.listEntries).Methods(http.MethodGet)
	r.HandleFunc("/accounting/entries", h.recordEntry).Methods(http.MethodPost)
	r.HandleFunc("/accounting/entries/{id}", h.getEntry).Methods(http.MethodGet)
	r.HandleFunc("/accounting/entries/{id}", h.reverseEntry).Methods(http.MethodDelete)
	r.HandleFunc("/accounting/summary", h.summary).Methods(http.MethodGet)
	r.HandleFunc("/accounting/balance", h.balance).Methods(http.MethodGet)
	r.HandleFunc("/accounting/leases", h.chargeLeases).Methods(http.MethodPost)
	r.HandleFunc("/accounting/export", h.exportAccounting).Methods(http.MethodGet)
}

func (h *handler) listBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := h.app.Inventory.ListBalances(r.Context(), memberID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balances)
}

func (h *handler) getBalance(w http.ResponseWriter, r *http.Request) {
	bal, err := h.app.Inventory.GetBalance(r.Context(), memberID(r), mux.Vars(r)["product"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bal)
}

func (h *handler) listItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.app.Inventory.ListItems(r.Context(), memberID(r), r.URL.Query().Get("product"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *handler) getItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.app.Inventory.GetItem(r.Context(), memberID(r), pathID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Product  string  `json:"product"`
		Delta    float64 `json:"delta"`
		UnitCost float64 `json:"unit_cost"`
		Reason   string  `json:"reason"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		h.fail(w, r, err)
		return
	}
	item, err := h.app.Inventory.Adjust(r.Context(), memberID(r), payload.Product, payload.Delta, payload.UnitCost, payload.Reason)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *handler) sell(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Product   string  `json:"product"`
		Quantity  float64 `json:"quantity"`
		UnitPrice float64 `json:"unit_price"`
		Buyer     string  `json:"buyer"`
		SoldOn    *Date   `json:"sold_on"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		h.fail(w, r, err)
		return
	}
	item, entry, err := h.app.Inventory.Sell(r.Context(), inventory.Sale{
		MemberID:  memberID(r),
		Product:   payload.Product,
		Quantity:  payload.Quantity,
		UnitPrice: payload.UnitPrice,
		Buyer:     payload.Buyer,
		SoldOn:    payload.SoldOn.value(),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"item": item, "entry": entry})
}

func (h *handler) reconcile(w http.ResponseWriter, r *http.Request) {
	repaired, err := h.app.Inventory.Reconcile(r.Context(), memberID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if repaired == nil {
		repaired = []inventory.Balance{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"repaired": repaired})
}

func (h *handler) exportInventory(w http.ResponseWriter, r *http.Request) {
	balances, err := h.app.Inventory.ListBalances(r.Context(), memberID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	items, err := h.app.Inventory.ListItems(r.Context(), memberID(r), r.URL.Query().Get("product"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeExport(w, r, "inventory", export.InventoryBalances(balances), export.InventoryItems(items))
}

func entryFilter(r *http.Request) (accounting.Filter, error) {
	from, to, err := dateRange(r)
	if err != nil {
		return accounting.Filter{}, err
	}
	q := r.URL.Query()
	return accounting.Filter{
		Kind:     accounting.Kind(q.Get("kind")),
		Category: accounting.Category(q.Get("category")),
		From:     from,
		To:       to,
	}, nil
}

func (h *handler) listEntries(w http.ResponseWriter, r *http.Request) {
	filter, err := entryFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	entries, err := h.app.Accounting.List(r.Context(), memberID(r), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *handler) recordEntry(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Kind        accounting.Kind     `json:"kind"`
		Category    accounting.Category `json:"category"`
		Amount      float64             `json:"amount"`
		Description string              `json:"description"`
		Reference   string              `json:"reference"`
		OccurredOn  *Date               `json:"occurred_on"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		h.fail(w, r, err)
		return
	}
	e := accounting.Entry{
		MemberID:    memberID(r),
		Kind:        payload.Kind,
		Category:    payload.Category,
		Amount:      payload.Amount,
		Description: payload.Description,
		Reference:   payload.Reference,
		OccurredOn:  payload.OccurredOn.value(),
	}
	posted, err := h.app.Accounting.RecordManual(r.Context(), e)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, posted)
}

func (h *handler) getEntry(w http.ResponseWriter, r *http.Request) {
	e, err := h.app.Accounting.Get(r.Context(), memberID(r), pathID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// reverseEntry answers DELETE with the reversing entry that was posted.
func (h *handler) reverseEntry(w http.ResponseWriter, r *http.Request) {
	reversal, err := h.app.Accounting.Delete(r.Context(), memberID(r), pathID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reversal)
}

func (h *handler) summary(w http.ResponseWriter, r *http.Request) {
	from, to, err := dateRange(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sum, err := h.app.Accounting.Summary(r.Context(), memberID(r), from, to)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *handler) balance(w http.ResponseWriter, r *http.Request) {
	bal, err := h.app.Accounting.Balance(r.Context(), memberID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"member_id": memberID(r), "balance": bal})
}

func (h *handler) chargeLeases(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Year int `json:"year"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		h.fail(w, r, err)
		return
	}
	if payload.Year == 0 {
		payload.Year = time.Now().UTC().Year()
	}
	posted, err := h.app.Accounting.ChargeLeases(r.Context(), memberID(r), payload.Year)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if posted == nil {
		posted = []accounting.Entry{}
	}
	writeJSON(w, http.StatusCreated, posted)
}

func (h *handler) exportAccounting(w http.ResponseWriter, r *http.Request) {
	filter, err := entryFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	entries, err := h.app.Accounting.List(r.Context(), memberID(r), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sum, err := h.app.Accounting.Summary(r.Context(), memberID(r), filter.From, filter.To)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeExport(w, r, "accounting", export.Entries(entries), export.Summary(sum))
}
