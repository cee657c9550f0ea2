package consent

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"msk-care-coordination/internal/middleware"
)

func RegisterRoutes(r chi.Router, svc *Service, v *validator.Validate) {
	r.Route("/patients/{patientID}/consents", func(cr chi.Router) {
		cr.Post("/", recordConsentHandler(svc, v))
		cr.Get("/", listConsentsHandler(svc))
	})
}

type recordConsentRequest struct {
	Type        string `json:"type" validate:"required,oneof=data_processing share_intake share_treatment_plan care_execution"`
	Granted     *bool  `json:"granted" validate:"required"`
	Description string `json:"description"`
}

type consentResponse struct {
	ID          string    `json:"id"`
	PatientID   string    `json:"patient_id"`
	Type        Type      `json:"type"`
	Granted     bool      `json:"granted"`
	Description string    `json:"description,omitempty"`
	RecordedAt  time.Time `json:"recorded_at"`
}

func recordConsentHandler(svc *Service, v *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		patientID := chi.URLParam(r, "patientID")

		var req recordConsentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := v.Struct(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		c, err := svc.Record(r.Context(), claims.UserID, RecordInput{
			PatientID:   patientID,
			Type:        Type(req.Type),
			Granted:     *req.Granted,
			Description: req.Description,
		})
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, toConsentResponse(c))
	}
}

func listConsentsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.History(r.Context(), chi.URLParam(r, "patientID"))
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]consentResponse, 0, len(items))
		for _, c := range items {
			out = append(out, toConsentResponse(c))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func toConsentResponse(c Consent) consentResponse {
	return consentResponse{
		ID:          c.ID,
		PatientID:   c.PatientID,
		Type:        c.Type,
		Granted:     c.Granted,
		Description: c.Description,
		RecordedAt:  c.RecordedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
