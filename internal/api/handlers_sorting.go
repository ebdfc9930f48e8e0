package api

import (
	"encoding/json"
	"net/http"

	respond "github.com/FrithiofJensen/openproject/internal/api/respond"
	"github.com/FrithiofJensen/openproject/internal/api/validate"
	"github.com/FrithiofJensen/openproject/internal/auth"
	"github.com/FrithiofJensen/openproject/internal/model"
	"github.com/FrithiofJensen/openproject/internal/services"
)

type SortingHandler struct {
	svc *services.ActivityService
}

func NewSortingHandler(svc *services.ActivityService) *SortingHandler {
	return &SortingHandler{svc: svc}
}

type sortingResponse struct {
	Sorting model.SortDirection  `json:"sorting"`
	Index   *services.FeedResult `json:"index,omitempty"`
}

// Get GET /api/sorting
func (h *SortingHandler) Get(w http.ResponseWriter, r *http.Request) {
	dir, err := h.svc.GetSorting(r.Context(), auth.ActorFrom(r.Context()))
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, sortingResponse{Sorting: dir})
}

// Put PUT /api/sorting
//
// When subjectId is given the response also carries that subject's feed,
// re-rendered in the new order.
func (h *SortingHandler) Put(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Sorting   string `json:"sorting"`
		SubjectID string `json:"subjectId,omitempty"`
		Filter    string `json:"filter,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.Sorting(req.Sorting); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	actor := auth.ActorFrom(r.Context())
	dir, err := h.svc.SetSorting(r.Context(), actor, req.Sorting)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	out := sortingResponse{Sorting: dir}
	if req.SubjectID != "" {
		idx, err := h.svc.Index(r.Context(), actor, req.SubjectID, req.Filter)
		if err != nil {
			respond.WriteServiceError(w, err)
			return
		}
		out.Index = idx
	}
	respond.WriteJSON(w, http.StatusOK, out)
}
