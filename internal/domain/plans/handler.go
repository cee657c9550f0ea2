package plans

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"msk-care-coordination/internal/domain/pathway"
	"msk-care-coordination/internal/middleware"
	"msk-care-coordination/internal/ports/auth"
)

func RegisterRoutes(r chi.Router, svc *Service, v *validator.Validate) {
	r.Route("/plans", func(pr chi.Router) {
		pr.Post("/", createPlanHandler(svc, v))
		pr.Get("/{planID}", getPlanHandler(svc))
		pr.Post("/{planID}/submit", transitionHandler(svc, "submit"))
		pr.Post("/{planID}/approve", approvePlanHandler(svc))
		pr.Post("/{planID}/complete", transitionHandler(svc, "complete"))
	})
	r.Get("/patients/{patientID}/plans", listPlansHandler(svc))
}

type createPlanRequest struct {
	PatientID         string   `json:"patient_id" validate:"required"`
	IntakeSummaryID   string   `json:"intake_summary_id" validate:"required"`
	Goals             []string `json:"goals" validate:"required,min=1"`
	Disciplines       []string `json:"disciplines" validate:"required,min=1"`
	EstimatedSessions int      `json:"estimated_sessions" validate:"required,gt=0"`
	Declarable        bool     `json:"declarable"`
}

type planResponse struct {
	ID                string               `json:"id"`
	PatientID         string               `json:"patient_id"`
	CoordinatorID     string               `json:"coordinator_id"`
	IntakeSummaryID   string               `json:"intake_summary_id"`
	Goals             []string             `json:"goals"`
	Disciplines       []pathway.Discipline `json:"disciplines"`
	EstimatedSessions int                  `json:"estimated_sessions"`
	InsurerApproved   bool                 `json:"insurer_approved"`
	Declarable        bool                 `json:"declarable"`
	WinningRequestID  *string              `json:"winning_request_id,omitempty"`
	Status            Status               `json:"status"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

func requireCoordinator(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok || strings.TrimSpace(claims.UserID) == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return "", false
	}
	if claims.Role != auth.RoleCoordinator {
		http.Error(w, "forbidden", http.StatusForbidden)
		return "", false
	}
	return claims.UserID, true
}

func createPlanHandler(svc *Service, v *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		coordinatorID, ok := requireCoordinator(w, r)
		if !ok {
			return
		}

		var req createPlanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := v.Struct(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		disciplines := make([]pathway.Discipline, 0, len(req.Disciplines))
		for _, d := range req.Disciplines {
			disciplines = append(disciplines, pathway.Discipline(d))
		}

		p, err := svc.Create(r.Context(), coordinatorID, CreateInput{
			PatientID:         req.PatientID,
			IntakeSummaryID:   req.IntakeSummaryID,
			Goals:             req.Goals,
			Disciplines:       disciplines,
			EstimatedSessions: req.EstimatedSessions,
			Declarable:        req.Declarable,
		})
		if err != nil {
			writePlanError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toPlanResponse(p))
	}
}

func getPlanHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		p, err := svc.GetByID(r.Context(), chi.URLParam(r, "planID"))
		if err != nil {
			writePlanError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toPlanResponse(p))
	}
}

func listPlansHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListByPatient(r.Context(), chi.URLParam(r, "patientID"))
		if err != nil {
			writePlanError(w, err)
			return
		}

		out := make([]planResponse, 0, len(items))
		for _, p := range items {
			out = append(out, toPlanResponse(p))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func transitionHandler(svc *Service, kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		coordinatorID, ok := requireCoordinator(w, r)
		if !ok {
			return
		}

		planID := chi.URLParam(r, "planID")

		var (
			p   TreatmentPlan
			err error
		)
		switch kind {
		case "submit":
			p, err = svc.Submit(r.Context(), coordinatorID, planID)
		case "complete":
			p, err = svc.Complete(r.Context(), coordinatorID, planID)
		default:
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if err != nil {
			writePlanError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toPlanResponse(p))
	}
}

type approvePlanRequest struct {
	InsurerApproved bool `json:"insurer_approved"`
}

func approvePlanHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		coordinatorID, ok := requireCoordinator(w, r)
		if !ok {
			return
		}

		var req approvePlanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		p, err := svc.Approve(r.Context(), coordinatorID, chi.URLParam(r, "planID"), req.InsurerApproved)
		if err != nil {
			writePlanError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toPlanResponse(p))
	}
}

func writePlanError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, ErrConsentMissing):
		http.Error(w, "share_treatment_plan consent not granted", http.StatusForbidden)
	case errors.Is(err, ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toPlanResponse(p TreatmentPlan) planResponse {
	return planResponse{
		ID:                p.ID,
		PatientID:         p.PatientID,
		CoordinatorID:     p.CoordinatorID,
		IntakeSummaryID:   p.IntakeSummaryID,
		Goals:             p.Goals,
		Disciplines:       p.Disciplines,
		EstimatedSessions: p.EstimatedSessions,
		InsurerApproved:   p.InsurerApproved,
		Declarable:        p.Declarable,
		WinningRequestID:  p.WinningRequestID,
		Status:            p.Status,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
