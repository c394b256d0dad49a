package www

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"vendroute/editing"
	"vendroute/store"
)

// sessionError maps editing errors onto HTTP responses.
func (h *Handlers) sessionError(w http.ResponseWriter, err error, verb string) {
	var dup *editing.DuplicateCodeError
	var rf *store.RequiredFieldError
	var fe *editing.FlushError
	switch {
	case errors.As(err, &dup):
		h.metrics.DuplicateRejected()
		h.jsonStatus(w, http.StatusConflict, map[string]any{
			"error":    "Code " + dup.Code + " is already used by another stop",
			"code":     dup.Code,
			"parentId": dup.ParentID,
			"rowId":    dup.RowID,
		})
	case errors.Is(err, editing.ErrNotFound):
		h.jsonError(w, "Row not found", http.StatusNotFound)
	case errors.Is(err, editing.ErrNoPendingDelete):
		h.jsonError(w, "Pending delete not found", http.StatusNotFound)
	case errors.Is(err, editing.ErrFlexTableNotOpen):
		h.jsonError(w, "Flex table is not open", http.StatusConflict)
	case errors.Is(err, editing.ErrInvalidPowerMode), errors.Is(err, editing.ErrInvalidImage):
		h.jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &rf):
		h.jsonError(w, rf.Field+" is required", http.StatusBadRequest)
	case errors.As(err, &fe) && store.IsUniqueViolation(err):
		h.jsonError(w, "product code already exists", http.StatusConflict)
	default:
		log.Printf("www: %s: %v", verb, err)
		h.jsonError(w, "Failed to "+verb, http.StatusInternalServerError)
	}
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, id string, s *editing.Session)

// withSession resolves the caller's editing session before running fn.
func (h *Handlers) withSession(fn sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, s, err := h.editingSession(w, r)
		if err != nil {
			log.Printf("www: open editing session: %v", err)
			h.jsonError(w, "Failed to open editing session", http.StatusInternalServerError)
			return
		}
		fn(w, r, id, s)
	}
}

func flexParams(r *http.Request) (parentID, rowID int64, err error) {
	if parentID, err = urlInt(r, "parentId"); err != nil {
		return
	}
	rowID, err = urlInt(r, "rowId")
	return
}

func (h *Handlers) apiSessionLoad(w http.ResponseWriter, r *http.Request, _ string, s *editing.Session) {
	rows, err := s.LoadParents(r.Context())
	if err != nil {
		h.sessionError(w, err, "load routes")
		return
	}
	h.jsonOK(w, rows)
}

func (h *Handlers) apiSessionParents(w http.ResponseWriter, r *http.Request, _ string, s *editing.Session) {
	h.jsonOK(w, s.Parents())
}

func (h *Handlers) apiSessionAddParent(w http.ResponseWriter, r *http.Request, _ string, s *editing.Session) {
	h.jsonStatus(w, http.StatusCreated, s.AddParentRow())
}

func (h *Handlers) apiSessionCommitParent(w http.ResponseWriter, r *http.Request, _ string, s *editing.Session) {
	parentID, err := urlInt(r, "parentId")
	if err != nil {
		h.jsonError(w, "invalid parent id", http.StatusBadRequest)
		return
	}
	var row editing.ParentRow
	if err := decodeJSON(r, &row); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	updated, err := s.CommitParentEdit(parentID, row)
	if err != nil {
		h.sessionError(w, err, "update route")
		return
	}
	h.jsonOK(w, updated)
}

func (h *Handlers) apiSessionRequestParentDelete(w http.ResponseWriter, r *http.Request, _ string, s *editing.Session) {
	parentID, err := urlInt(r, "parentId")
	if err != nil {
		h.jsonError(w, "invalid parent id", http.StatusBadRequest)
		return
	}
	ticket, err := s.RequestParentDelete(parentID)
	if err != nil {
		h.sessionError(w, err, "delete route")
		return
	}
	h.jsonOK(w, map[string]string{"ticket": ticket})
}

func (h *Handlers) apiSessionOpenFlex(w http.ResponseWriter, r *http.Request, _ string, s *editing.Session) {
	parentID, err := urlInt(r, "parentId")
	if err != nil {
		h.jsonError(w, "invalid parent id", http.StatusBadRequest)
		return
	}
	rows, err := s.OpenFlexTable(r.Context(), parentID)
	if err != nil {
		h.sessionError(w, err, "load stops")
		return
	}
	if rows == nil {
		rows = []editing.FlexRow{}
	}
	h.jsonOK(w, rows)
}

func (h *Handlers) apiSessionCloseFlex(w http.ResponseWriter, r *http.Request, _ string, s *editing.Session) {
	parentID, err := urlInt(r, "parentId")
	if err != nil {
		h.jsonError(w, "invalid parent id", http.StatusBadRequest)
		return
	}
	if err := s.CloseFlexTable(parentID); err != nil {
		h.sessionError(w, err, "close stops")
		return
	}
	h.jsonOK(w, map[string]int{"changeCount": s.ChangeCount(parentID)})
}

func (h *Handlers) apiSessionAddFlex(w http.ResponseWriter, r *http.Request, _ string, s *editing.Session) {
	parentID, err := urlInt(r, "parentId")
	if err != nil {
		h.jsonError(w, "invalid parent id", http.StatusBadRequest)
		return
	}
	row, err := s.AddFlexRow(parentID)
	if err != nil {
		h.sessionError(w, err, "add stop")
		return
	}
	h.jsonStatus(w, http.StatusCreated, row)
}

func (h *Handlers) apiSessionCommitFlex(w http.ResponseWriter, r *http.Request, _ string, s *editing.Session) {
	parentID, rowID, err := flexParams(r)
	if err != nil {
		h.jsonError(w, "invalid row id", http.StatusBadRequest)
		return
	}
	var row editing.FlexRow
	if err := decodeJSON(r, &row); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	updated, err := s.CommitFlexEdit(parentID, rowID, row)
	if err != nil {
		h.sessionError(w, err, "update stop")
		return
	}
	h.jsonOK(w, updated)
}

func (h *Handlers) apiSessionRequestFlexDelete(w http.ResponseWriter, r *http.Request, _ string, s *editing.Session) {
	parentID, rowID, err := flexParams(r)
	if err != nil {
		h.jsonError(w, "invalid row id", http.StatusBadRequest)
		return
	}
	ticket, err := s.RequestFlexDelete(parentID, rowID)
	if err != nil {
		h.sessionError(w, err, "delete stop")
		return
	}
	h.jsonOK(w, map[string]string{"ticket": ticket})
}

func (h *Handlers) apiSessionAddImage(w http.ResponseWriter, r *http.Request, _ string, s *editing.Session) {
	parentID, rowID, err := flexParams(r)
	if err != nil {
		h.jsonError(w, "invalid row id", http.StatusBadRequest)
		return
	}
	var img editing.Image
	if err := decodeJSON(r, &img); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	row, err := s.AddImage(parentID, rowID, img)
	if err != nil {
		h.sessionError(w, err, "add image")
		return
	}
	h.jsonOK(w, row)
}

func (h *Handlers) apiSessionRequestImageRemove(w http.ResponseWriter, r *http.Request, _ string, s *editing.Session) {
	parentID, rowID, err := flexParams(r)
	if err != nil {
		h.jsonError(w, "invalid row id", http.StatusBadRequest)
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		h.jsonError(w, "invalid image index", http.StatusBadRequest)
		return
	}
	ticket, err := s.RequestImageRemove(parentID, rowID, index)
	if err != nil {
		h.sessionError(w, err, "remove image")
		return
	}
	h.jsonOK(w, map[string]string{"ticket": ticket})
}

func (h *Handlers) apiSessionSetPowerMode(w http.ResponseWriter, r *http.Request, _ string, s *editing.Session) {
	parentID, rowID, err := flexParams(r)
	if err != nil {
		h.jsonError(w, "invalid row id", http.StatusBadRequest)
		return
	}
	var req struct {
		PowerMode string `json:"powerMode"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	row, err := s.SetPowerMode(parentID, rowID, req.PowerMode)
	if err != nil {
		h.sessionError(w, err, "set power mode")
		return
	}
	h.jsonOK(w, row)
}

func (h *Handlers) apiSessionConfirm(w http.ResponseWriter, r *http.Request, _ string, s *editing.Session) {
	if err := s.Confirm(chi.URLParam(r, "ticket")); err != nil {
		h.sessionError(w, err, "confirm delete")
		return
	}
	h.jsonOK(w, s.Status())
}

func (h *Handlers) apiSessionCancel(w http.ResponseWriter, r *http.Request, _ string, s *editing.Session) {
	if err := s.Cancel(chi.URLParam(r, "ticket")); err != nil {
		h.sessionError(w, err, "cancel delete")
		return
	}
	h.jsonOK(w, s.Status())
}

func (h *Handlers) apiSessionSave(w http.ResponseWriter, r *http.Request, id string, s *editing.Session) {
	err := h.engine.SaveSession(r.Context(), id, s)
	h.metrics.SessionSaved(err == nil)
	if err != nil {
		h.sessionError(w, err, "save changes")
		return
	}
	h.jsonOK(w, map[string]any{"parents": s.Parents(), "status": s.Status()})
}

func (h *Handlers) apiSessionDiscard(w http.ResponseWriter, r *http.Request, id string, s *editing.Session) {
	if err := h.engine.DiscardSession(r.Context(), id, s); err != nil {
		h.sessionError(w, err, "discard changes")
		return
	}
	h.metrics.SessionDiscarded()
	h.jsonOK(w, map[string]any{"parents": s.Parents(), "status": s.Status()})
}

func (h *Handlers) apiSessionStatus(w http.ResponseWriter, r *http.Request, _ string, s *editing.Session) {
	h.jsonOK(w, s.Status())
}
