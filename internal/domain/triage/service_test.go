package triage

import (
	"context"
	"errors"
	"testing"
	"time"

	"msk-care-coordination/internal/domain/audit"
	"msk-care-coordination/internal/domain/pathway"
)

var errRepoNotFound = errors.New("repo: not found")

type testRepo struct {
	byID map[string]Session
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Session{}}
}

func (r *testRepo) Create(ctx context.Context, s Session) error {
	if _, ok := r.byID[s.ID]; ok {
		return errors.New("repo: already exists")
	}
	r.byID[s.ID] = s
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (Session, error) {
	s, ok := r.byID[id]
	if !ok {
		return Session{}, errRepoNotFound
	}
	return s, nil
}

func (r *testRepo) ListByPatient(ctx context.Context, patientID string) ([]Session, error) {
	out := make([]Session, 0)
	for _, s := range r.byID {
		if s.PatientID == patientID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *testRepo) Update(ctx context.Context, s Session) error {
	if _, ok := r.byID[s.ID]; !ok {
		return errRepoNotFound
	}
	r.byID[s.ID] = s
	return nil
}

type testSink struct {
	entries []audit.Entry
}

func (s *testSink) Record(ctx context.Context, e audit.Entry) error {
	s.entries = append(s.entries, e)
	return nil
}

func completedState(t *testing.T) State {
	t.Helper()
	st := mustState(t)
	for i := range RedFlagQuestions {
		st = answer(t, st, i, false)
	}
	return st
}

func fullAnswers() map[string]string {
	return map[string]string{
		"complaint_location":       "lower_back",
		"complaint_duration":       "longer",
		"hinders_daily_activities": "no",
		"exercises_regularly":      "no",
		"has_had_physiotherapy":    "yes",
		"follows_healthy_diet":     "yes",
		"smokes":                   "no",
	}
}

func TestService_Complete_ProducesImmutableSession(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo, &testSink{})

	now := time.Date(2026, 4, 2, 11, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	answers := fullAnswers()
	sess, err := svc.Complete(context.Background(), completedState(t), answers)
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}

	if sess.CompletedAt != now {
		t.Fatalf("expected CompletedAt to be now")
	}
	if sess.HasRedFlags {
		t.Fatalf("expected no red flags")
	}
	if len(sess.CarePathways) != 1 || sess.CarePathways[0].Discipline != pathway.DisciplinePhysiotherapy {
		t.Fatalf("expected physiotherapy recommendation, got %#v", sess.CarePathways)
	}
	if sess.CarePathways[0].ID == "" {
		t.Fatalf("expected pathway id to be assigned at completion")
	}

	// Mutating the caller's map must not reach the stored session.
	answers["smokes"] = "yes"
	stored, _ := svc.GetByID(context.Background(), sess.ID)
	if stored.Answers["smokes"] != "no" {
		t.Fatalf("stored session answers were mutated through the input map")
	}
}

func TestService_Complete_HasRedFlagsMatchesRecordedFlags(t *testing.T) {
	svc := NewService(newTestRepo(), &testSink{})

	st := mustState(t)
	for i, q := range RedFlagQuestions {
		st = answer(t, st, i, q.Severity == SeverityMedium)
	}

	sess, err := svc.Complete(context.Background(), st, fullAnswers())
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if !sess.HasRedFlags || len(sess.RedFlags) == 0 {
		t.Fatalf("HasRedFlags must mirror the recorded flags, got %#v", sess)
	}
}

func TestService_Complete_RequiresQuestionnairePhase(t *testing.T) {
	svc := NewService(newTestRepo(), &testSink{})

	st := mustState(t) // still on the red-flag screen
	_, err := svc.Complete(context.Background(), st, fullAnswers())
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	stopped := answer(t, st, 0, true)
	_, err = svc.Complete(context.Background(), stopped, fullAnswers())
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition while safety-stopped, got %v", err)
	}
}

func TestService_Complete_RejectsMissingRequiredAnswers(t *testing.T) {
	svc := NewService(newTestRepo(), &testSink{})

	answers := fullAnswers()
	delete(answers, "complaint_duration")

	_, err := svc.Complete(context.Background(), completedState(t), answers)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestService_DecidePathway_OnlyTouchesAccepted(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo, &testSink{})

	sess, err := svc.Complete(context.Background(), completedState(t), fullAnswers())
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	pw := sess.CarePathways[0]

	updated, err := svc.DecidePathway(context.Background(), sess.ID, pw.ID, true)
	if err != nil {
		t.Fatalf("DecidePathway returned error: %v", err)
	}

	got := updated.CarePathways[0]
	if got.Accepted == nil || !*got.Accepted {
		t.Fatalf("expected pathway accepted")
	}
	if got.Discipline != pw.Discipline || got.ReasonForRecommendation != pw.ReasonForRecommendation {
		t.Fatalf("decision must not alter the recommendation itself")
	}

	if _, err := svc.DecidePathway(context.Background(), sess.ID, "missing", true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown pathway, got %v", err)
	}
}
