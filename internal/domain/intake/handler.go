package intake

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
)

func RegisterRoutes(r chi.Router, svc *Service, v *validator.Validate) {
	r.Route("/patients/{patientID}/intake", func(ir chi.Router) {
		ir.Post("/", createIntakeHandler(svc, v))
		ir.Get("/", listIntakeHandler(svc))
	})
	r.Get("/intake/{intakeID}", getIntakeHandler(svc))
}

type createIntakeRequest struct {
	TriageSessionID string            `json:"triage_session_id" validate:"required"`
	Discipline      string            `json:"discipline" validate:"required"`
	Answers         map[string]string `json:"answers"`
	Summary         string            `json:"summary"`
}

type intakeResponse struct {
	ID              string             `json:"id"`
	PatientID       string             `json:"patient_id"`
	TriageSessionID string             `json:"triage_session_id"`
	Discipline      pathway.Discipline `json:"discipline"`
	Answers         map[string]string  `json:"answers"`
	Summary         string             `json:"summary,omitempty"`
	CompletedAt     time.Time          `json:"completed_at"`
}

func createIntakeHandler(svc *Service, v *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req createIntakeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := v.Struct(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		sum, err := svc.Create(r.Context(), CreateInput{
			PatientID:       chi.URLParam(r, "patientID"),
			TriageSessionID: req.TriageSessionID,
			Discipline:      pathway.Discipline(req.Discipline),
			Answers:         req.Answers,
			Summary:         req.Summary,
		})
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidInput):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, ErrNotFound):
				http.Error(w, "triage session not found", http.StatusNotFound)
			case errors.Is(err, ErrConsentMissing):
				http.Error(w, "share_intake consent not granted", http.StatusForbidden)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusCreated, toIntakeResponse(sum))
	}
}

func getIntakeHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		sum, err := svc.GetByID(r.Context(), chi.URLParam(r, "intakeID"))
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidInput):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, ErrNotFound):
				http.Error(w, "not found", http.StatusNotFound)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}
		writeJSON(w, http.StatusOK, toIntakeResponse(sum))
	}
}

func listIntakeHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListByPatient(r.Context(), chi.URLParam(r, "patientID"))
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]intakeResponse, 0, len(items))
		for _, s := range items {
			out = append(out, toIntakeResponse(s))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func toIntakeResponse(s IntakeSummary) intakeResponse {
	return intakeResponse{
		ID:              s.ID,
		PatientID:       s.PatientID,
		TriageSessionID: s.TriageSessionID,
		Discipline:      s.Discipline,
		Answers:         s.Answers,
		Summary:         s.Summary,
		CompletedAt:     s.CompletedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
