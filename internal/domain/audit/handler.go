package audit

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"msk-care-coordination/internal/middleware"
	"msk-care-coordination/internal/ports/auth"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	// Coordinator-only read surface. Writes happen only as side effects of
	// the other domains.
	r.Get("/audit", listAuditHandler(svc))
}

type entryResponse struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	UserRole   string    `json:"user_role"`
	Action     string    `json:"action"`
	Resource   string    `json:"resource"`
	ResourceID string    `json:"resource_id"`
	Details    string    `json:"details,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

func listAuditHandler(svc *Service) http.HandlerFunc {
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

		resource := r.URL.Query().Get("resource")
		resourceID := r.URL.Query().Get("resource_id")

		items, err := svc.ListByResource(r.Context(), resource, resourceID)
		if err != nil {
			if err == ErrInvalidInput {
				http.Error(w, "resource and resource_id required", http.StatusBadRequest)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]entryResponse, 0, len(items))
		for _, e := range items {
			out = append(out, toEntryResponse(e))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func toEntryResponse(e Entry) entryResponse {
	return entryResponse{
		ID:         e.ID,
		UserID:     e.UserID,
		UserRole:   e.UserRole,
		Action:     e.Action,
		Resource:   e.Resource,
		ResourceID: e.ResourceID,
		Details:    e.Details,
		RecordedAt: e.RecordedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
