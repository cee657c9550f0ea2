package triage

import "testing"

func mustState(t *testing.T) State {
	t.Helper()
	st, err := NewState("pat-1")
	if err != nil {
		t.Fatalf("NewState returned error: %v", err)
	}
	return st
}

func answer(t *testing.T, st State, index int, v bool) State {
	t.Helper()
	next, err := AnswerRedFlag(st, index, v)
	if err != nil {
		t.Fatalf("AnswerRedFlag(%d, %v) returned error: %v", index, v, err)
	}
	return next
}

func TestAnswerRedFlag_HighFlagInterruptsImmediately(t *testing.T) {
	st := mustState(t)

	// Question 0 is high severity; a "yes" must stop the pass before any
	// further question is presented.
	st = answer(t, st, 0, true)

	if st.Phase != PhaseSafetyStop {
		t.Fatalf("expected safety stop, got phase %s", st.Phase)
	}
	if len(st.RedFlags) != 1 || st.RedFlags[0].Severity != SeverityHigh {
		t.Fatalf("expected one recorded high flag, got %#v", st.RedFlags)
	}

	// The interrupt is hard: answering the next question is rejected.
	if _, err := AnswerRedFlag(st, 1, false); err != ErrInvalidTransition {
		t.Fatalf("expected ErrInvalidTransition while stopped, got %v", err)
	}
}

func TestAnswerRedFlag_MediumFlagNeverInterrupts(t *testing.T) {
	st := mustState(t)

	for i, q := range RedFlagQuestions {
		st = answer(t, st, i, q.Severity == SeverityMedium)
		if st.Phase == PhaseSafetyStop {
			t.Fatalf("medium flag at question %d triggered a safety stop", i)
		}
	}

	if st.Phase != PhaseQuestionnaire {
		t.Fatalf("expected questionnaire phase, got %s", st.Phase)
	}
	// All medium flags stay recorded for the final summary.
	want := 0
	for _, q := range RedFlagQuestions {
		if q.Severity == SeverityMedium {
			want++
		}
	}
	if len(st.RedFlags) != want {
		t.Fatalf("expected %d recorded flags, got %d", want, len(st.RedFlags))
	}
}

func TestAnswerRedFlag_RejectsOutOfOrderAnswers(t *testing.T) {
	st := mustState(t)

	if _, err := AnswerRedFlag(st, 2, false); err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput for out-of-order answer, got %v", err)
	}

	st = answer(t, st, 0, false)
	// Re-answering question 0 is equally out of order.
	if _, err := AnswerRedFlag(st, 0, true); err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput for repeated answer, got %v", err)
	}
}

func TestContinueAfterStop_ResumesWhereInterrupted(t *testing.T) {
	st := mustState(t)
	st = answer(t, st, 0, true) // high flag, stop

	resumed, err := ContinueAfterStop(st)
	if err != nil {
		t.Fatalf("ContinueAfterStop returned error: %v", err)
	}
	if resumed.Phase != PhaseRedFlags {
		t.Fatalf("expected red-flag phase after continue, got %s", resumed.Phase)
	}
	if resumed.NextQuestion != 1 {
		t.Fatalf("expected to resume at question 1, got %d", resumed.NextQuestion)
	}

	// The acknowledged high flag stays recorded and does not re-trigger.
	for i := 1; i < len(RedFlagQuestions); i++ {
		resumed = answer(t, resumed, i, false)
	}
	if resumed.Phase != PhaseQuestionnaire {
		t.Fatalf("expected questionnaire phase, got %s", resumed.Phase)
	}
	if len(resumed.RedFlags) != 1 {
		t.Fatalf("acknowledged flag must remain in the state, got %#v", resumed.RedFlags)
	}
}

func TestAnswerRedFlag_NewHighFlagAfterContinueStopsAgain(t *testing.T) {
	st := mustState(t)
	st = answer(t, st, 0, true) // first high flag

	st, err := ContinueAfterStop(st)
	if err != nil {
		t.Fatalf("ContinueAfterStop returned error: %v", err)
	}

	// Question 1 is also high severity: a second "yes" must stop again.
	st = answer(t, st, 1, true)
	if st.Phase != PhaseSafetyStop {
		t.Fatalf("expected a second safety stop, got phase %s", st.Phase)
	}
}

func TestContinueAfterStop_RequiresStoppedState(t *testing.T) {
	st := mustState(t)
	if _, err := ContinueAfterStop(st); err != ErrInvalidTransition {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestAnswerRedFlag_DoesNotMutatePriorState(t *testing.T) {
	st := mustState(t)
	next := answer(t, st, 0, true)

	if len(st.RedFlags) != 0 {
		t.Fatalf("prior state mutated: %#v", st.RedFlags)
	}
	if len(next.RedFlags) != 1 {
		t.Fatalf("expected recorded flag in next state")
	}
}
