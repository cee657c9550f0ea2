package providers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"msk-care-coordination/internal/domain/pathway"
	"msk-care-coordination/internal/middleware"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Get("/providers", listProvidersHandler(svc))
}

type providerResponse struct {
	ID                 string             `json:"id"`
	Name               string             `json:"name"`
	Discipline         pathway.Discipline `json:"discipline"`
	Insurers           []string           `json:"insurers"`
	AcceptsNewPatients bool               `json:"accepts_new_patients"`
}

func listProvidersHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		d := pathway.Discipline(r.URL.Query().Get("discipline"))
		insurer := r.URL.Query().Get("insurer")

		items, err := svc.Candidates(r.Context(), d, insurer)
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, "unknown discipline", http.StatusBadRequest)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]providerResponse, 0, len(items))
		for _, p := range items {
			out = append(out, providerResponse{
				ID:                 p.ID,
				Name:               p.Name,
				Discipline:         p.Discipline,
				Insurers:           p.Insurers,
				AcceptsNewPatients: p.AcceptsNewPatients,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
