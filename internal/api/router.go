package api

import (
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/FrithiofJensen/openproject/internal/api/recovery"
	"github.com/FrithiofJensen/openproject/internal/auth"
	"github.com/FrithiofJensen/openproject/internal/metrics"
	"github.com/FrithiofJensen/openproject/internal/services"
)

// RouterDeps collects what NewRouter wires into handlers.
type RouterDeps struct {
	Service       *services.ActivityService
	Authenticator auth.Authenticator
	Health        ServiceHealth
	Stream        StreamConfig
	Log           zerolog.Logger
}

// NewRouter builds the HTTP surface. Health and metrics are public; every
// /api route below them requires a bearer key.
func NewRouter(d RouterDeps) *mux.Router {
	root := mux.NewRouter()
	root.Use(recovery.Middleware(d.Log))
	root.Use(MetricsMiddleware)

	// Health and metrics
	healthHandler := NewHealthHandler(d.Health)
	root.HandleFunc("/api/health", healthHandler.CheckHealth).Methods("GET")
	root.Handle("/metrics", metrics.Handler()).Methods("GET")

	api := root.PathPrefix("/api").Subrouter()
	api.Use(AuthMiddleware(d.Authenticator, d.Log))

	// Subjects
	subject := NewSubjectHandler(d.Service)
	api.HandleFunc("/subjects", subject.CreateSubject).Methods("POST")
	api.HandleFunc("/subjects/{subjectId}", subject.GetSubject).Methods("GET")

	// Activities; the literal paths precede {entryId}
	activity := NewActivityHandler(d.Service)
	stream := NewStreamHandler(d.Service, d.Stream, d.Log)
	api.HandleFunc("/subjects/{subjectId}/activities", activity.Index).Methods("GET")
	api.HandleFunc("/subjects/{subjectId}/activities", activity.Create).Methods("POST")
	api.HandleFunc("/subjects/{subjectId}/activities/updates", activity.Updates).Methods("GET")
	api.HandleFunc("/subjects/{subjectId}/activities/stream", stream.Stream).Methods("GET")
	api.HandleFunc("/subjects/{subjectId}/activities/{entryId}", activity.Update).Methods("PATCH")
	api.HandleFunc("/subjects/{subjectId}/activities/{entryId}/edit", activity.EditState).Methods("GET")
	api.HandleFunc("/subjects/{subjectId}/activities/{entryId}/edit", activity.Edit).Methods("POST")
	api.HandleFunc("/subjects/{subjectId}/activities/{entryId}/cancel_edit", activity.CancelEdit).Methods("POST")

	// Sorting preference
	sorting := NewSortingHandler(d.Service)
	api.HandleFunc("/sorting", sorting.Get).Methods("GET")
	api.HandleFunc("/sorting", sorting.Put).Methods("PUT")

	return root
}
