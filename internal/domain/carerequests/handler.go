package carerequests

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

func RegisterRoutes(r chi.Router, b *Broker, v *validator.Validate) {
	r.Post("/plans/{planID}/broadcast", broadcastHandler(b, v))
	r.Get("/plans/{planID}/requests", listByPlanHandler(b))

	r.Route("/requests", func(rr chi.Router) {
		rr.Post("/{requestID}/respond", respondHandler(b, v))
	})
	r.Get("/me/requests", listMyRequestsHandler(b))
}

type broadcastRequest struct {
	ProviderIDs []string `json:"provider_ids" validate:"required,min=1"`
	Discipline  string   `json:"discipline" validate:"required"`
}

type respondRequest struct {
	Decision        string `json:"decision" validate:"required,oneof=accept decline"`
	AppointmentDate string `json:"appointment_date"` // RFC 3339, accept only
}

type careRequestResponse struct {
	ID              string             `json:"id"`
	TreatmentPlanID string             `json:"treatment_plan_id"`
	PatientID       string             `json:"patient_id"`
	ProviderID      string             `json:"provider_id"`
	ProviderName    string             `json:"provider_name"`
	Discipline      pathway.Discipline `json:"discipline"`
	Status          Status             `json:"status"`
	SentAt          time.Time          `json:"sent_at"`
	RespondedAt     *time.Time         `json:"responded_at,omitempty"`
	AppointmentDate *time.Time         `json:"appointment_date,omitempty"`
}

type raceLostResponse struct {
	RaceLost bool                `json:"race_lost"`
	Message  string              `json:"message"`
	Request  careRequestResponse `json:"request"`
}

func broadcastHandler(b *Broker, v *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if claims.Role != auth.RoleCoordinator {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		var req broadcastRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := v.Struct(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		items, err := b.Broadcast(
			r.Context(),
			claims.UserID,
			chi.URLParam(r, "planID"),
			req.ProviderIDs,
			pathway.Discipline(req.Discipline),
		)
		if err != nil {
			writeRequestError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toCareRequestResponses(items))
	}
}

func respondHandler(b *Broker, v *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if claims.Role != auth.RoleProvider {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		var req respondRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := v.Struct(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var appointment *time.Time
		if strings.TrimSpace(req.AppointmentDate) != "" {
			t, err := time.Parse(time.RFC3339, req.AppointmentDate)
			if err != nil {
				http.Error(w, "appointment_date must be RFC 3339", http.StatusBadRequest)
				return
			}
			appointment = &t
		}

		cr, err := b.Respond(
			r.Context(),
			claims.UserID,
			chi.URLParam(r, "requestID"),
			Decision(req.Decision),
			appointment,
		)
		if err != nil {
			if errors.Is(err, ErrRaceLost) {
				// The slot is gone, the provider was not rejected.
				writeJSON(w, http.StatusConflict, raceLostResponse{
					RaceLost: true,
					Message:  "another provider already accepted this treatment plan",
					Request:  toCareRequestResponse(cr),
				})
				return
			}
			writeRequestError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toCareRequestResponse(cr))
	}
}

func listByPlanHandler(b *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := b.ListByPlan(r.Context(), chi.URLParam(r, "planID"))
		if err != nil {
			writeRequestError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toCareRequestResponses(items))
	}
}

func listMyRequestsHandler(b *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if claims.Role != auth.RoleProvider {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		items, err := b.ListByProvider(r.Context(), claims.UserID)
		if err != nil {
			writeRequestError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toCareRequestResponses(items))
	}
}

func writeRequestError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrConflict):
		http.Error(w, "transient conflict, retry", http.StatusServiceUnavailable)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toCareRequestResponse(cr CareRequest) careRequestResponse {
	return careRequestResponse{
		ID:              cr.ID,
		TreatmentPlanID: cr.TreatmentPlanID,
		PatientID:       cr.PatientID,
		ProviderID:      cr.ProviderID,
		ProviderName:    cr.ProviderName,
		Discipline:      cr.Discipline,
		Status:          cr.Status,
		SentAt:          cr.SentAt,
		RespondedAt:     cr.RespondedAt,
		AppointmentDate: cr.AppointmentDate,
	}
}

func toCareRequestResponses(items []CareRequest) []careRequestResponse {
	out := make([]careRequestResponse, 0, len(items))
	for _, cr := range items {
		out = append(out, toCareRequestResponse(cr))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
