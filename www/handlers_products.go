package www

import (
	"net/http"

	"vendroute/engine"
	"vendroute/protocol"
	"vendroute/store"
)

func (h *Handlers) writeProducts(w http.ResponseWriter, products []*store.Product, verb string) {
	out, err := productsToWire(products)
	if err != nil {
		h.storeError(w, err, verb, "products", "Products")
		return
	}
	h.jsonOK(w, out)
}

func (h *Handlers) writeProduct(w http.ResponseWriter, code int, p *store.Product, verb string) {
	out, err := productToWire(p)
	if err != nil {
		h.storeError(w, err, verb, "product", "Product")
		return
	}
	h.jsonStatus(w, code, out)
}

func (h *Handlers) apiListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.engine.DB().ListAllProducts()
	if err != nil {
		h.storeError(w, err, "fetch", "products", "Products")
		return
	}
	h.writeProducts(w, products, "fetch")
}

func (h *Handlers) apiListProductsByParent(w http.ResponseWriter, r *http.Request) {
	parentID, err := urlInt(r, "parentId")
	if err != nil {
		h.jsonError(w, "invalid parent id", http.StatusBadRequest)
		return
	}
	products, err := h.engine.DB().ListProductsByParent(parentID)
	if err != nil {
		h.storeError(w, err, "fetch", "products", "Products")
		return
	}
	h.writeProducts(w, products, "fetch")
}

func (h *Handlers) apiGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := urlInt(r, "id")
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	p, err := h.engine.DB().GetProduct(id)
	if err != nil {
		h.storeError(w, err, "fetch", "product", "Product")
		return
	}
	h.writeProduct(w, http.StatusOK, p, "fetch")
}

func (h *Handlers) apiCreateProduct(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	p := &store.Product{}
	if err := productFromWire(body, p); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.engine.DB().CreateProduct(p); err != nil {
		h.storeError(w, err, "create", "product", "Product")
		return
	}
	h.emitProduct(p, protocol.ActionCreated)
	h.writeProduct(w, http.StatusCreated, p, "create")
}

func (h *Handlers) apiUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := urlInt(r, "id")
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	body, err := readBody(r)
	if err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	p, err := h.engine.DB().GetProduct(id)
	if err != nil {
		h.storeError(w, err, "update", "product", "Product")
		return
	}
	oldParent := p.ParentID
	if err := productFromWire(body, p); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	p.ID = id
	if err := h.engine.DB().UpdateProduct(p); err != nil {
		h.storeError(w, err, "update", "product", "Product")
		return
	}
	// A stop moved to another route leaves the old route's cached list stale.
	if oldParent != nil && (p.ParentID == nil || *p.ParentID != *oldParent) {
		h.engine.FlexCache().Invalidate(*oldParent)
	}
	h.emitProduct(p, protocol.ActionUpdated)
	h.writeProduct(w, http.StatusOK, p, "update")
}

func (h *Handlers) apiDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := urlInt(r, "id")
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	p, err := h.engine.DB().GetProduct(id)
	if err != nil {
		h.storeError(w, err, "delete", "product", "Product")
		return
	}
	if err := h.engine.DB().DeleteProduct(id); err != nil {
		h.storeError(w, err, "delete", "product", "Product")
		return
	}
	h.emitProduct(p, protocol.ActionDeleted)
	h.writeProduct(w, http.StatusOK, p, "delete")
}

func (h *Handlers) emitProduct(p *store.Product, action string) {
	h.engine.Events.Emit(engine.Event{Type: engine.EventProductChanged, Payload: engine.ProductChangedEvent{
		ProductID: p.ID,
		ParentID:  p.ParentID,
		Code:      p.Code,
		Action:    action,
		Actor:     "api",
	}})
}
