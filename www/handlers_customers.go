package www

import (
	"net/http"

	"vendroute/engine"
	"vendroute/protocol"
	"vendroute/store"
)

func (h *Handlers) apiListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.engine.DB().ListCustomers()
	if err != nil {
		h.storeError(w, err, "fetch", "customers", "Customers")
		return
	}
	if customers == nil {
		customers = []*store.Customer{}
	}
	h.jsonOK(w, customers)
}

func (h *Handlers) apiGetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := urlInt(r, "id")
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	c, err := h.engine.DB().GetCustomer(id)
	if err != nil {
		h.storeError(w, err, "fetch", "customer", "Customer")
		return
	}
	h.jsonOK(w, c)
}

func (h *Handlers) apiCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var c store.Customer
	if err := decodeJSON(r, &c); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	c.ID = 0
	if err := h.engine.DB().CreateCustomer(&c); err != nil {
		h.storeError(w, err, "create", "customer", "Customer")
		return
	}
	h.emitCustomer(&c, protocol.ActionCreated)
	h.jsonStatus(w, http.StatusCreated, &c)
}

func (h *Handlers) apiUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := urlInt(r, "id")
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	var c store.Customer
	if err := decodeJSON(r, &c); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	c.ID = id
	if err := h.engine.DB().UpdateCustomer(&c); err != nil {
		h.storeError(w, err, "update", "customer", "Customer")
		return
	}
	h.emitCustomer(&c, protocol.ActionUpdated)
	h.jsonOK(w, &c)
}

func (h *Handlers) apiDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := urlInt(r, "id")
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	c, err := h.engine.DB().GetCustomer(id)
	if err != nil {
		h.storeError(w, err, "delete", "customer", "Customer")
		return
	}
	if err := h.engine.DB().DeleteCustomer(id); err != nil {
		h.storeError(w, err, "delete", "customer", "Customer")
		return
	}
	h.emitCustomer(c, protocol.ActionDeleted)
	h.jsonOK(w, c)
}

func (h *Handlers) emitCustomer(c *store.Customer, action string) {
	h.engine.Events.Emit(engine.Event{Type: engine.EventCustomerChanged, Payload: engine.CustomerChangedEvent{
		CustomerID: c.ID,
		Name:       c.Name,
		Action:     action,
		Actor:      "api",
	}})
}
