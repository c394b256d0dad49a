package www

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"vendroute/store"
)

const maxBodyBytes = 1 << 20

func (h *Handlers) jsonOK(w http.ResponseWriter, data any) {
	h.jsonStatus(w, http.StatusOK, data)
}

func (h *Handlers) jsonStatus(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func (h *Handlers) jsonError(w http.ResponseWriter, msg string, code int) {
	h.jsonStatus(w, code, map[string]string{"error": msg})
}

// storeError maps a store error onto the API's error bodies. Anything that
// is not a missing row or a blank required field is logged and reported as
// a generic failure.
func (h *Handlers) storeError(w http.ResponseWriter, err error, verb, entity, label string) {
	var rf *store.RequiredFieldError
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.jsonError(w, label+" not found", http.StatusNotFound)
	case errors.As(err, &rf):
		h.jsonError(w, rf.Field+" is required", http.StatusBadRequest)
	case store.IsUniqueViolation(err):
		h.jsonError(w, entity+" code already exists", http.StatusConflict)
	default:
		log.Printf("www: %s %s: %v", verb, entity, err)
		h.jsonError(w, "Failed to "+verb+" "+entity, http.StatusInternalServerError)
	}
}

func readBody(r *http.Request) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
}

func urlInt(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}
