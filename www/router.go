package www

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"github.com/rs/cors"

	"vendroute/engine"
	"vendroute/metrics"
)

type Handlers struct {
	engine   *engine.Engine
	metrics  *metrics.Metrics
	sessions *sessions.CookieStore
	eventHub *EventHub
}

// NewRouter builds the HTTP API. A nil m gets a private Metrics instance.
func NewRouter(eng *engine.Engine, m *metrics.Metrics) (http.Handler, func()) {
	if m == nil {
		m = metrics.New()
	}
	hub := NewEventHub()
	hub.Start()
	hub.SetupEngineListeners(eng)

	h := &Handlers{
		engine:   eng,
		metrics:  m,
		sessions: newSessionStore(eng.AppConfig().Web.SessionSecret, eng.AppConfig().Web.SecureCookies),
		eventHub: hub,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   eng.AppConfig().Web.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	}).Handler)
	r.Use(m.Middleware)

	r.Get("/events", hub.SSEHandler)
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Compress(5))
		r.Get("/health", h.apiHealthCheck)

		r.Get("/customers", h.apiListCustomers)
		r.Post("/customers", h.apiCreateCustomer)
		r.Get("/customers/{id}", h.apiGetCustomer)
		r.Put("/customers/{id}", h.apiUpdateCustomer)
		r.Delete("/customers/{id}", h.apiDeleteCustomer)

		r.Get("/products", h.apiListProducts)
		r.Post("/products", h.apiCreateProduct)
		r.Get("/products/parent/{parentId}", h.apiListProductsByParent)
		r.Get("/products/{id}", h.apiGetProduct)
		r.Put("/products/{id}", h.apiUpdateProduct)
		r.Delete("/products/{id}", h.apiDeleteProduct)

		r.Route("/session", func(r chi.Router) {
			r.Post("/load", h.withSession(h.apiSessionLoad))
			r.Get("/parents", h.withSession(h.apiSessionParents))
			r.Post("/parents", h.withSession(h.apiSessionAddParent))
			r.Put("/parents/{parentId}", h.withSession(h.apiSessionCommitParent))
			r.Post("/parents/{parentId}/delete", h.withSession(h.apiSessionRequestParentDelete))

			r.Post("/parents/{parentId}/flex/open", h.withSession(h.apiSessionOpenFlex))
			r.Post("/parents/{parentId}/flex/close", h.withSession(h.apiSessionCloseFlex))
			r.Post("/parents/{parentId}/flex", h.withSession(h.apiSessionAddFlex))
			r.Put("/parents/{parentId}/flex/{rowId}", h.withSession(h.apiSessionCommitFlex))
			r.Post("/parents/{parentId}/flex/{rowId}/delete", h.withSession(h.apiSessionRequestFlexDelete))
			r.Post("/parents/{parentId}/flex/{rowId}/images", h.withSession(h.apiSessionAddImage))
			r.Post("/parents/{parentId}/flex/{rowId}/images/{index}/delete", h.withSession(h.apiSessionRequestImageRemove))
			r.Put("/parents/{parentId}/flex/{rowId}/power-mode", h.withSession(h.apiSessionSetPowerMode))

			r.Post("/confirm/{ticket}", h.withSession(h.apiSessionConfirm))
			r.Post("/cancel/{ticket}", h.withSession(h.apiSessionCancel))
			r.Post("/save", h.withSession(h.apiSessionSave))
			r.Post("/discard", h.withSession(h.apiSessionDiscard))
			r.Get("/status", h.withSession(h.apiSessionStatus))
		})
	})

	stopFn := func() {
		hub.Stop()
	}

	return r, stopFn
}

func (h *Handlers) apiHealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "OK"}
	if c := h.engine.MsgClient(); c != nil {
		resp["messaging"] = c.IsConnected()
	}
	h.jsonOK(w, resp)
}
