package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	respond "github.com/FrithiofJensen/openproject/internal/api/respond"
	"github.com/FrithiofJensen/openproject/internal/api/validate"
	"github.com/FrithiofJensen/openproject/internal/auth"
	"github.com/FrithiofJensen/openproject/internal/services"
)

type ActivityHandler struct {
	svc *services.ActivityService
}

func NewActivityHandler(svc *services.ActivityService) *ActivityHandler {
	return &ActivityHandler{svc: svc}
}

// cursorFromQuery reads the cursor fields from the query string.
func cursorFromQuery(r *http.Request) services.CursorParams {
	q := r.URL.Query()
	return services.CursorParams{
		LastUpdateTimestamp: q.Get("lastUpdateTimestamp"),
		Filter:              q.Get("filter"),
		SortDirection:       q.Get("sortDirection"),
	}
}

// Index GET /api/subjects/{subjectId}/activities
func (h *ActivityHandler) Index(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Index(r.Context(), auth.ActorFrom(r.Context()), mux.Vars(r)["subjectId"], r.URL.Query().Get("filter"))
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// Updates GET /api/subjects/{subjectId}/activities/updates
func (h *ActivityHandler) Updates(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Sync(r.Context(), auth.ActorFrom(r.Context()), mux.Vars(r)["subjectId"], cursorFromQuery(r))
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// Create POST /api/subjects/{subjectId}/activities
func (h *ActivityHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Notes               string `json:"notes"`
		Notify              *bool  `json:"notify,omitempty"`
		LastUpdateTimestamp string `json:"lastUpdateTimestamp"`
		Filter              string `json:"filter"`
		SortDirection       string `json:"sortDirection"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	actor := auth.ActorFrom(r.Context())
	subjectID := mux.Vars(r)["subjectId"]
	// permission before body validation
	if !auth.CanCreate(actor, subjectID) {
		respond.WriteError(w, http.StatusForbidden, "add_notes permission required")
		return
	}
	if err := validate.Notes(req.Notes); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	out, err := h.svc.CreateEntry(r.Context(), actor, services.CreateEntryRequest{
		SubjectID: subjectID,
		Body:      req.Notes,
		Notify:    req.Notify,
		Cursor: services.CursorParams{
			LastUpdateTimestamp: req.LastUpdateTimestamp,
			Filter:              req.Filter,
			SortDirection:       req.SortDirection,
		},
	})
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, out)
}

// Update PATCH /api/subjects/{subjectId}/activities/{entryId}
func (h *ActivityHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	vars := mux.Vars(r)
	out, err := h.svc.UpdateEntry(r.Context(), auth.ActorFrom(r.Context()), services.UpdateEntryRequest{
		SubjectID: vars["subjectId"],
		EntryID:   vars["entryId"],
		Body:      req.Notes,
	})
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// Edit POST /api/subjects/{subjectId}/activities/{entryId}/edit
func (h *ActivityHandler) Edit(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	st, err := h.svc.BeginEdit(r.Context(), auth.ActorFrom(r.Context()), vars["subjectId"], vars["entryId"])
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, st)
}

// CancelEdit POST /api/subjects/{subjectId}/activities/{entryId}/cancel_edit
func (h *ActivityHandler) CancelEdit(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	st, err := h.svc.CancelEdit(r.Context(), auth.ActorFrom(r.Context()), vars["subjectId"], vars["entryId"])
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, st)
}

// EditState GET /api/subjects/{subjectId}/activities/{entryId}/edit
func (h *ActivityHandler) EditState(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	st, err := h.svc.EditState(r.Context(), auth.ActorFrom(r.Context()), vars["subjectId"], vars["entryId"])
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, st)
}
