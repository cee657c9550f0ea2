package triage

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
	"msk-care-coordination/internal/ports/notify"
)

func RegisterRoutes(r chi.Router, svc *Service, notifier notify.Notifier, v *validator.Validate) {
	r.Get("/triage/red-flags", listRedFlagQuestionsHandler())

	r.Route("/patients/{patientID}/triage", func(tr chi.Router) {
		tr.Post("/", runTriageHandler(svc, notifier, v))
		tr.Get("/", listSessionsHandler(svc))
	})

	r.Route("/triage/sessions/{sessionID}", func(sr chi.Router) {
		sr.Get("/", getSessionHandler(svc))
		sr.Post("/pathways/{pathwayID}/decision", decidePathwayHandler(svc, v))
	})
}

type runTriageRequest struct {
	// Answers to the red-flag screen, in question order.
	RedFlagAnswers []bool `json:"red_flag_answers" validate:"required"`
	// Set when the patient explicitly continues past a safety stop after the
	// out-of-band action (e.g. contacting a physician).
	ContinueAfterStop bool              `json:"continue_after_stop"`
	Answers           map[string]string `json:"answers" validate:"required"`
}

type redFlagResponse struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Severity Severity `json:"severity"`
	Action   string   `json:"action"`
	Detected bool     `json:"detected"`
}

type pathwayResponse struct {
	ID                      string             `json:"id"`
	Discipline              pathway.Discipline `json:"discipline"`
	Name                    string             `json:"name"`
	Description             string             `json:"description"`
	Recommended             bool               `json:"recommended"`
	Accepted                *bool              `json:"accepted"`
	ReasonForRecommendation string             `json:"reason_for_recommendation"`
}

type sessionResponse struct {
	ID           string            `json:"id"`
	PatientID    string            `json:"patient_id"`
	Answers      map[string]string `json:"answers"`
	RedFlags     []redFlagResponse `json:"red_flags"`
	HasRedFlags  bool              `json:"has_red_flags"`
	CarePathways []pathwayResponse `json:"care_pathways"`
	CompletedAt  time.Time         `json:"completed_at"`
}

type safetyStopResponse struct {
	SafetyStop bool              `json:"safety_stop"`
	Action     string            `json:"action"`
	RedFlags   []redFlagResponse `json:"red_flags"`
}

func listRedFlagQuestionsHandler() http.HandlerFunc {
	type questionResponse struct {
		ID       string   `json:"id"`
		Question string   `json:"question"`
		Severity Severity `json:"severity"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		out := make([]questionResponse, 0, len(RedFlagQuestions))
		for _, q := range RedFlagQuestions {
			out = append(out, questionResponse{ID: q.ID, Question: q.Question, Severity: q.Severity})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// runTriageHandler replays the full pass server-side: the red-flag screen in
// order, then the questionnaire. A safety stop that the patient has not
// explicitly continued past stops the request with 409 and the pending
// out-of-band action.
func runTriageHandler(svc *Service, notifier notify.Notifier, v *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		patientID := chi.URLParam(r, "patientID")

		var req runTriageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := v.Struct(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if len(req.RedFlagAnswers) != len(RedFlagQuestions) {
			http.Error(w, "red_flag_answers must answer every question", http.StatusBadRequest)
			return
		}

		st, err := NewState(patientID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		for i, answer := range req.RedFlagAnswers {
			st, err = AnswerRedFlag(st, i, answer)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if st.Phase == PhaseSafetyStop {
				if !req.ContinueAfterStop {
					notifier.Notify(r.Context(), notify.EventSafetyStopTriggered, map[string]string{
						"patient_id":  patientID,
						"red_flag_id": RedFlagQuestions[i].ID,
					})
					writeJSON(w, http.StatusConflict, toSafetyStopResponse(st))
					return
				}
				st, err = ContinueAfterStop(st)
				if err != nil {
					http.Error(w, err.Error(), http.StatusBadRequest)
					return
				}
			}
		}

		session, err := svc.Complete(r.Context(), st, req.Answers)
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidInput), errors.Is(err, pathway.ErrInvalidInput):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, ErrInvalidTransition):
				http.Error(w, err.Error(), http.StatusConflict)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusCreated, toSessionResponse(session))
	}
}

func getSessionHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		sess, err := svc.GetByID(r.Context(), chi.URLParam(r, "sessionID"))
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
		writeJSON(w, http.StatusOK, toSessionResponse(sess))
	}
}

func listSessionsHandler(svc *Service) http.HandlerFunc {
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

		out := make([]sessionResponse, 0, len(items))
		for _, s := range items {
			out = append(out, toSessionResponse(s))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

type decidePathwayRequest struct {
	Accepted *bool `json:"accepted" validate:"required"`
}

func decidePathwayHandler(svc *Service, v *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req decidePathwayRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := v.Struct(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		sess, err := svc.DecidePathway(
			r.Context(),
			chi.URLParam(r, "sessionID"),
			chi.URLParam(r, "pathwayID"),
			*req.Accepted,
		)
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
		writeJSON(w, http.StatusOK, toSessionResponse(sess))
	}
}

func toSafetyStopResponse(st State) safetyStopResponse {
	flags := toRedFlagResponses(st.RedFlags)
	action := ""
	for i := len(st.RedFlags) - 1; i >= 0; i-- {
		if st.RedFlags[i].Severity == SeverityHigh {
			action = st.RedFlags[i].Action
			break
		}
	}
	return safetyStopResponse{SafetyStop: true, Action: action, RedFlags: flags}
}

func toRedFlagResponses(flags []RedFlag) []redFlagResponse {
	out := make([]redFlagResponse, 0, len(flags))
	for _, f := range flags {
		out = append(out, redFlagResponse{
			ID:       f.ID,
			Question: f.Question,
			Severity: f.Severity,
			Action:   f.Action,
			Detected: f.Detected,
		})
	}
	return out
}

func toSessionResponse(s Session) sessionResponse {
	pathways := make([]pathwayResponse, 0, len(s.CarePathways))
	for _, p := range s.CarePathways {
		pathways = append(pathways, pathwayResponse{
			ID:                      p.ID,
			Discipline:              p.Discipline,
			Name:                    p.Name,
			Description:             p.Description,
			Recommended:             p.Recommended,
			Accepted:                p.Accepted,
			ReasonForRecommendation: p.ReasonForRecommendation,
		})
	}
	return sessionResponse{
		ID:           s.ID,
		PatientID:    s.PatientID,
		Answers:      s.Answers,
		RedFlags:     toRedFlagResponses(s.RedFlags),
		HasRedFlags:  s.HasRedFlags,
		CarePathways: pathways,
		CompletedAt:  s.CompletedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
