package www

import (
	"log"
	"net/http"

	"github.com/gorilla/sessions"

	"vendroute/editing"
)

const (
	cookieName     = "vendroute-session"
	editingIDValue = "editing_id"
)

func newSessionStore(secret string, secure bool) *sessions.CookieStore {
	if secret == "" {
		secret = "vendroute-default-secret-change-me"
	}
	s := sessions.NewCookieStore([]byte(secret))
	s.Options.Path = "/"
	s.Options.HttpOnly = true
	s.Options.Secure = secure
	s.Options.SameSite = http.SameSiteLaxMode
	return s
}

// editingSession returns the caller's editing session, opening a fresh one
// when the cookie is missing or its session has expired.
func (h *Handlers) editingSession(w http.ResponseWriter, r *http.Request) (string, *editing.Session, error) {
	cookie, _ := h.sessions.Get(r, cookieName)
	if id, ok := cookie.Values[editingIDValue].(string); ok {
		if s, ok := h.engine.Sessions().Get(id); ok {
			return id, s, nil
		}
	}

	id, s, err := h.engine.Sessions().Create(r.Context())
	if err != nil {
		return "", nil, err
	}
	cookie.Values[editingIDValue] = id
	if err := cookie.Save(r, w); err != nil {
		log.Printf("www: session cookie save: %v", err)
	}
	return id, s, nil
}
