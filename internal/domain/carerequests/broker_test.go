package carerequests_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"msk-care-coordination/internal/adapters/storage/memory"
	"msk-care-coordination/internal/domain/audit"
	"msk-care-coordination/internal/domain/carerequests"
	"msk-care-coordination/internal/domain/pathway"
)

type stubPlans struct {
	mu          sync.Mutex
	patientID   string
	assigned    bool
	activations []string
}

func (s *stubPlans) PatientOf(ctx context.Context, planID string) (string, error) {
	return s.patientID, nil
}

func (s *stubPlans) IsAssigned(ctx context.Context, planID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assigned, nil
}

func (s *stubPlans) Activate(ctx context.Context, planID, winningRequestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assigned = true
	s.activations = append(s.activations, winningRequestID)
	return nil
}

type stubProviders struct {
	names map[string]string
}

func (s *stubProviders) NameOf(ctx context.Context, providerID string) (string, error) {
	name, ok := s.names[providerID]
	if !ok {
		return "", carerequests.ErrNotFound
	}
	return name, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) Notify(ctx context.Context, event string, payload map[string]string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

type recordingSink struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (s *recordingSink) Record(ctx context.Context, e audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}

func (s *recordingSink) countAction(action string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if e.Action == action {
			n++
		}
	}
	return n
}

type brokerFixture struct {
	broker    *carerequests.Broker
	repo      carerequests.Repository
	plans     *stubPlans
	notifier  *recordingNotifier
	sink      *recordingSink
	providers map[string]string
}

func newFixture(providerIDs ...string) *brokerFixture {
	names := make(map[string]string, len(providerIDs))
	for _, id := range providerIDs {
		names[id] = "Dr. " + id
	}
	f := &brokerFixture{
		repo:      memory.NewCareRequestsRepo(),
		plans:     &stubPlans{patientID: "patient-1"},
		notifier:  &recordingNotifier{},
		sink:      &recordingSink{},
		providers: names,
	}
	f.broker = carerequests.NewBroker(
		f.repo,
		f.plans,
		&stubProviders{names: names},
		f.notifier,
		f.sink,
		zap.NewNop(),
	)
	return f
}

func requestFor(t *testing.T, reqs []carerequests.CareRequest, providerID string) carerequests.CareRequest {
	t.Helper()
	for _, cr := range reqs {
		if cr.ProviderID == providerID {
			return cr
		}
	}
	t.Fatalf("no request for provider %s", providerID)
	return carerequests.CareRequest{}
}

func TestBroadcastCreatesPendingRequests(t *testing.T) {
	f := newFixture("prov-a", "prov-b", "prov-c")
	ctx := context.Background()

	reqs, err := f.broker.Broadcast(ctx, "coord-1", "plan-1", []string{"prov-a", "prov-b", "prov-c"}, pathway.DisciplinePhysiotherapy)
	require.NoError(t, err)
	require.Len(t, reqs, 3)

	for _, cr := range reqs {
		assert.Equal(t, carerequests.StatusPending, cr.Status)
		assert.Equal(t, "plan-1", cr.TreatmentPlanID)
		assert.Equal(t, "patient-1", cr.PatientID)
		assert.Equal(t, "Dr. "+cr.ProviderID, cr.ProviderName)
		assert.False(t, cr.SentAt.IsZero())
		assert.Nil(t, cr.RespondedAt)
	}
	assert.Equal(t, 3, f.sink.countAction("care_request.sent"))
}

func TestBroadcastRejectsUnknownProvider(t *testing.T) {
	f := newFixture("prov-a")
	ctx := context.Background()

	_, err := f.broker.Broadcast(ctx, "coord-1", "plan-1", []string{"prov-a", "prov-ghost"}, pathway.DisciplinePhysiotherapy)
	assert.ErrorIs(t, err, carerequests.ErrInvalidInput)

	// The bad ID fails the whole broadcast: no request for the valid
	// provider either, no audit entries, no notifications.
	left, err := f.repo.ListByPlan(ctx, "plan-1")
	require.NoError(t, err)
	assert.Empty(t, left)
	assert.Equal(t, 0, f.sink.countAction("care_request.sent"))

	f.notifier.mu.Lock()
	defer f.notifier.mu.Unlock()
	assert.Empty(t, f.notifier.events)
}

func TestBroadcastRejectsAssignedPlan(t *testing.T) {
	f := newFixture("prov-a")
	f.plans.assigned = true

	_, err := f.broker.Broadcast(context.Background(), "coord-1", "plan-1", []string{"prov-a"}, pathway.DisciplineErgotherapy)
	assert.ErrorIs(t, err, carerequests.ErrInvalidTransition)
}

func TestFirstAcceptanceWins(t *testing.T) {
	f := newFixture("prov-a", "prov-b", "prov-c")
	ctx := context.Background()

	reqs, err := f.broker.Broadcast(ctx, "coord-1", "plan-1", []string{"prov-a", "prov-b", "prov-c"}, pathway.DisciplinePhysiotherapy)
	require.NoError(t, err)

	reqA := requestFor(t, reqs, "prov-a")
	reqB := requestFor(t, reqs, "prov-b")
	reqC := requestFor(t, reqs, "prov-c")

	appt := time.Date(2026, 9, 14, 10, 0, 0, 0, time.UTC)
	won, err := f.broker.Respond(ctx, "prov-b", reqB.ID, carerequests.DecisionAccept, &appt)
	require.NoError(t, err)
	assert.Equal(t, carerequests.StatusAccepted, won.Status)
	require.NotNil(t, won.AppointmentDate)
	assert.True(t, appt.Equal(*won.AppointmentDate))

	require.Equal(t, []string{reqB.ID}, f.plans.activations)

	gotA, err := f.repo.GetByID(ctx, reqA.ID)
	require.NoError(t, err)
	assert.Equal(t, carerequests.StatusWithdrawn, gotA.Status)
	gotC, err := f.repo.GetByID(ctx, reqC.ID)
	require.NoError(t, err)
	assert.Equal(t, carerequests.StatusWithdrawn, gotC.Status)

	// A's late accept lost the race: the answer is "slot gone", not
	// "invalid", and the request stays withdrawn.
	late, err := f.broker.Respond(ctx, "prov-a", reqA.ID, carerequests.DecisionAccept, nil)
	assert.ErrorIs(t, err, carerequests.ErrRaceLost)
	assert.Equal(t, carerequests.StatusWithdrawn, late.Status)

	require.Equal(t, []string{reqB.ID}, f.plans.activations)
	assert.Equal(t, 1, f.sink.countAction("care_request.accepted"))
	assert.Equal(t, 2, f.sink.countAction("care_request.withdrawn"))
	assert.Equal(t, 1, f.sink.countAction("care_request.race_lost"))
}

func TestRepeatedAcceptIsIdempotentSafe(t *testing.T) {
	f := newFixture("prov-a", "prov-b")
	ctx := context.Background()

	reqs, err := f.broker.Broadcast(ctx, "coord-1", "plan-1", []string{"prov-a", "prov-b"}, pathway.DisciplineDietetics)
	require.NoError(t, err)
	reqA := requestFor(t, reqs, "prov-a")

	_, err = f.broker.Respond(ctx, "prov-a", reqA.ID, carerequests.DecisionAccept, nil)
	require.NoError(t, err)

	acceptedAudits := f.sink.countAction("care_request.accepted")
	activations := len(f.plans.activations)

	_, err = f.broker.Respond(ctx, "prov-a", reqA.ID, carerequests.DecisionAccept, nil)
	assert.ErrorIs(t, err, carerequests.ErrInvalidTransition)

	got, err := f.repo.GetByID(ctx, reqA.ID)
	require.NoError(t, err)
	assert.Equal(t, carerequests.StatusAccepted, got.Status)
	assert.Equal(t, acceptedAudits, f.sink.countAction("care_request.accepted"))
	assert.Len(t, f.plans.activations, activations)
}

func TestDeclineLeavesSiblingsPending(t *testing.T) {
	f := newFixture("prov-a", "prov-b")
	ctx := context.Background()

	reqs, err := f.broker.Broadcast(ctx, "coord-1", "plan-1", []string{"prov-a", "prov-b"}, pathway.DisciplinePhysiotherapy)
	require.NoError(t, err)
	reqA := requestFor(t, reqs, "prov-a")
	reqB := requestFor(t, reqs, "prov-b")

	declined, err := f.broker.Respond(ctx, "prov-a", reqA.ID, carerequests.DecisionDecline, nil)
	require.NoError(t, err)
	assert.Equal(t, carerequests.StatusDeclined, declined.Status)
	require.NotNil(t, declined.RespondedAt)

	gotB, err := f.repo.GetByID(ctx, reqB.ID)
	require.NoError(t, err)
	assert.Equal(t, carerequests.StatusPending, gotB.Status)
	assert.Empty(t, f.plans.activations)

	// The remaining provider can still win after a sibling declined.
	won, err := f.broker.Respond(ctx, "prov-b", reqB.ID, carerequests.DecisionAccept, nil)
	require.NoError(t, err)
	assert.Equal(t, carerequests.StatusAccepted, won.Status)

	gotA, err := f.repo.GetByID(ctx, reqA.ID)
	require.NoError(t, err)
	assert.Equal(t, carerequests.StatusDeclined, gotA.Status)
}

func TestRespondRejectsForeignProvider(t *testing.T) {
	f := newFixture("prov-a", "prov-b")
	ctx := context.Background()

	reqs, err := f.broker.Broadcast(ctx, "coord-1", "plan-1", []string{"prov-a", "prov-b"}, pathway.DisciplinePhysiotherapy)
	require.NoError(t, err)
	reqA := requestFor(t, reqs, "prov-a")

	_, err = f.broker.Respond(ctx, "prov-b", reqA.ID, carerequests.DecisionAccept, nil)
	assert.ErrorIs(t, err, carerequests.ErrInvalidInput)
}

// conflictRepo fails Resolve with ErrConflict a configured number of times
// before delegating to the real store.
type conflictRepo struct {
	carerequests.Repository

	mu        sync.Mutex
	conflicts int
	attempts  int
}

func (r *conflictRepo) Resolve(ctx context.Context, requestID string, respondedAt time.Time, appointmentDate *time.Time) (carerequests.ResolveOutcome, error) {
	r.mu.Lock()
	r.attempts++
	fail := r.conflicts > 0
	if fail {
		r.conflicts--
	}
	r.mu.Unlock()

	if fail {
		return carerequests.ResolveOutcome{}, carerequests.ErrConflict
	}
	return r.Repository.Resolve(ctx, requestID, respondedAt, appointmentDate)
}

func TestAcceptRetriesTransientConflicts(t *testing.T) {
	f := newFixture("prov-a")
	ctx := context.Background()

	repo := &conflictRepo{Repository: f.repo, conflicts: 2}
	broker := carerequests.NewBroker(repo, f.plans, &stubProviders{names: f.providers}, f.notifier, f.sink, zap.NewNop())

	reqs, err := broker.Broadcast(ctx, "coord-1", "plan-1", []string{"prov-a"}, pathway.DisciplinePhysiotherapy)
	require.NoError(t, err)

	won, err := broker.Respond(ctx, "prov-a", reqs[0].ID, carerequests.DecisionAccept, nil)
	require.NoError(t, err)
	assert.Equal(t, carerequests.StatusAccepted, won.Status)
	assert.Equal(t, 3, repo.attempts)
	assert.Len(t, f.plans.activations, 1)
	assert.Equal(t, 0, f.sink.countAction("care_request.accept_conflict"))
}

func TestAcceptSurfacesExhaustedConflicts(t *testing.T) {
	f := newFixture("prov-a")
	ctx := context.Background()

	repo := &conflictRepo{Repository: f.repo, conflicts: 100}
	broker := carerequests.NewBroker(repo, f.plans, &stubProviders{names: f.providers}, f.notifier, f.sink, zap.NewNop())

	reqs, err := broker.Broadcast(ctx, "coord-1", "plan-1", []string{"prov-a"}, pathway.DisciplinePhysiotherapy)
	require.NoError(t, err)

	_, err = broker.Respond(ctx, "prov-a", reqs[0].ID, carerequests.DecisionAccept, nil)
	assert.ErrorIs(t, err, carerequests.ErrConflict)
	assert.Equal(t, 3, repo.attempts)
	assert.Equal(t, 1, f.sink.countAction("care_request.accept_conflict"))
	assert.Empty(t, f.plans.activations)

	// The request is untouched; a later retry can still win.
	got, err := f.repo.GetByID(ctx, reqs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, carerequests.StatusPending, got.Status)
}

func TestConcurrentAcceptsHaveOneWinner(t *testing.T) {
	const providers = 16

	ids := make([]string, 0, providers)
	for i := 0; i < providers; i++ {
		ids = append(ids, "prov-"+string(rune('a'+i)))
	}
	f := newFixture(ids...)
	ctx := context.Background()

	reqs, err := f.broker.Broadcast(ctx, "coord-1", "plan-1", ids, pathway.DisciplinePhysiotherapy)
	require.NoError(t, err)
	require.Len(t, reqs, providers)

	var wg sync.WaitGroup
	errs := make([]error, providers)
	start := make(chan struct{})
	for i, cr := range reqs {
		wg.Add(1)
		go func(i int, cr carerequests.CareRequest) {
			defer wg.Done()
			<-start
			_, errs[i] = f.broker.Respond(ctx, cr.ProviderID, cr.ID, carerequests.DecisionAccept, nil)
		}(i, cr)
	}
	close(start)
	wg.Wait()

	var wins, losses int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		default:
			require.ErrorIs(t, err, carerequests.ErrRaceLost)
			losses++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, providers-1, losses)

	var accepted, withdrawn int
	for _, cr := range reqs {
		got, err := f.repo.GetByID(ctx, cr.ID)
		require.NoError(t, err)
		switch got.Status {
		case carerequests.StatusAccepted:
			accepted++
		case carerequests.StatusWithdrawn:
			withdrawn++
		default:
			t.Fatalf("unexpected status %s for request %s", got.Status, got.ID)
		}
	}
	assert.Equal(t, 1, accepted)
	assert.Equal(t, providers-1, withdrawn)
	assert.Len(t, f.plans.activations, 1)
}
