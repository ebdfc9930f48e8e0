package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	respond "github.com/FrithiofJensen/openproject/internal/api/respond"
	"github.com/FrithiofJensen/openproject/internal/api/validate"
	"github.com/FrithiofJensen/openproject/internal/auth"
	"github.com/FrithiofJensen/openproject/internal/model"
	"github.com/FrithiofJensen/openproject/internal/services"
)

type SubjectHandler struct {
	svc *services.ActivityService
}

func NewSubjectHandler(svc *services.ActivityService) *SubjectHandler {
	return &SubjectHandler{svc: svc}
}

// CreateSubject POST /api/subjects
func (h *SubjectHandler) CreateSubject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SubjectID string `json:"subjectId"`
		Title     string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.CreateSubject(req.SubjectID, req.Title); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	out, err := h.svc.CreateSubject(r.Context(), auth.ActorFrom(r.Context()), &model.Subject{SubjectID: req.SubjectID, Title: req.Title})
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, out)
}

// GetSubject GET /api/subjects/{subjectId}
func (h *SubjectHandler) GetSubject(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.GetSubject(r.Context(), auth.ActorFrom(r.Context()), mux.Vars(r)["subjectId"])
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}
