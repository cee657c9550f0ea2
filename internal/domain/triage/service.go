package triage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"msk-care-coordination/internal/domain/audit"
	"msk-care-coordination/internal/domain/pathway"
)

type Service struct {
	repo  Repository
	audit audit.Sink
	now   func() time.Time
}

func NewService(repo Repository, sink audit.Sink) *Service {
	return &Service{
		repo:  repo,
		audit: sink,
		now:   time.Now,
	}
}

// Complete is the terminal operation of a triage pass: it validates the
// questionnaire, derives the recommended pathways and persists the immutable
// session. The state must have cleared the red-flag screen (all questions
// answered and no unacknowledged safety stop).
func (s *Service) Complete(ctx context.Context, st State, answers map[string]string) (Session, error) {
	if st.Phase != PhaseQuestionnaire {
		return Session{}, ErrInvalidTransition
	}

	for _, key := range RequiredAnswers {
		if strings.TrimSpace(answers[key]) == "" {
			return Session{}, fmt.Errorf("%w: missing answer %q", ErrInvalidInput, key)
		}
	}

	pathways, err := pathway.Recommend(answers)
	if err != nil {
		return Session{}, err
	}
	for i := range pathways {
		pathways[i].ID = uuid.NewString()
	}

	// Copy the answers so later mutation by the caller cannot reach into the
	// stored session.
	stored := make(map[string]string, len(answers))
	for k, v := range answers {
		stored[k] = v
	}

	session := Session{
		ID:           uuid.NewString(),
		PatientID:    st.PatientID,
		Answers:      stored,
		RedFlags:     append([]RedFlag{}, st.RedFlags...),
		HasRedFlags:  len(st.RedFlags) > 0,
		CarePathways: pathways,
		CompletedAt:  s.now(),
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return Session{}, err
	}

	_ = s.audit.Record(ctx, audit.Entry{
		UserID:     st.PatientID,
		UserRole:   "patient",
		Action:     "triage.completed",
		Resource:   "triage_session",
		ResourceID: session.ID,
		Details:    fmt.Sprintf("red_flags=%d pathways=%d", len(session.RedFlags), len(session.CarePathways)),
	})

	return session, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Session{}, ErrInvalidInput
	}
	sess, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Session{}, ErrNotFound
	}
	return sess, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID string) ([]Session, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByPatient(ctx, patientID)
}

// DecidePathway records the patient's accept/decline for one recommended
// pathway. It is the only mutation a completed session permits.
func (s *Service) DecidePathway(ctx context.Context, sessionID, pathwayID string, accepted bool) (Session, error) {
	sess, err := s.GetByID(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}

	idx := -1
	for i, p := range sess.CarePathways {
		if p.ID == pathwayID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return Session{}, ErrNotFound
	}

	sess.CarePathways[idx].Accepted = &accepted

	if err := s.repo.Update(ctx, sess); err != nil {
		return Session{}, err
	}

	action := "pathway.accepted"
	if !accepted {
		action = "pathway.declined"
	}
	_ = s.audit.Record(ctx, audit.Entry{
		UserID:     sess.PatientID,
		UserRole:   "patient",
		Action:     action,
		Resource:   "care_pathway",
		ResourceID: pathwayID,
		Details:    string(sess.CarePathways[idx].Discipline),
	})

	return sess, nil
}

// PatientOf exposes the owning patient of a session. Other domains use it to
// validate references without importing the whole service.
func (s *Service) PatientOf(ctx context.Context, sessionID string) (string, error) {
	sess, err := s.GetByID(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return sess.PatientID, nil
}

// PathwayAccepted reports whether the session holds an accepted pathway for
// the given discipline.
func (s *Service) PathwayAccepted(ctx context.Context, sessionID string, d pathway.Discipline) (bool, error) {
	sess, err := s.GetByID(ctx, sessionID)
	if err != nil {
		return false, err
	}
	for _, p := range sess.CarePathways {
		if p.Discipline == d && p.Accepted != nil && *p.Accepted {
			return true, nil
		}
	}
	return false, nil
}
