package triage

import (
	"errors"
	"strings"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrNotFound          = errors.New("not found")
)

// NewState starts a triage pass at the first red-flag question.
func NewState(patientID string) (State, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return State{}, ErrInvalidInput
	}
	return State{
		PatientID:    patientID,
		NextQuestion: 0,
		RedFlags:     []RedFlag{},
		Phase:        PhaseRedFlags,
	}, nil
}

// AnswerRedFlag records the answer to the red-flag question at index and
// returns the next state. The index must be the one the engine expects;
// answering out of order is rejected.
//
// The safety stop is a hard interrupt: it triggers the moment any recorded
// flag so far is high severity, before the next question is presented. The
// check aggregates over all recorded flags, not just the latest answer, so a
// high flag can never be missed by a later low-severity step.
func AnswerRedFlag(st State, index int, answer bool) (State, error) {
	if st.Phase != PhaseRedFlags {
		return st, ErrInvalidTransition
	}
	if index != st.NextQuestion || index < 0 || index >= len(RedFlagQuestions) {
		return st, ErrInvalidInput
	}

	next := st
	next.RedFlags = append([]RedFlag{}, st.RedFlags...) // copy, states are values

	if answer {
		q := RedFlagQuestions[index]
		next.RedFlags = append(next.RedFlags, RedFlag{
			ID:       q.ID,
			Question: q.Question,
			Severity: q.Severity,
			Action:   q.Action,
			Detected: true,
		})
	}
	next.NextQuestion = index + 1

	switch {
	case countHighFlags(next.RedFlags) > next.AcknowledgedHigh:
		next.Phase = PhaseSafetyStop
	case next.NextQuestion == len(RedFlagQuestions):
		next.Phase = PhaseQuestionnaire
	}

	return next, nil
}

// ContinueAfterStop resumes a safety-stopped pass after the out-of-band
// action (e.g. contacting a physician). The sequence picks up where it was
// interrupted; the recorded high-severity flag stays in the session.
func ContinueAfterStop(st State) (State, error) {
	if st.Phase != PhaseSafetyStop {
		return st, ErrInvalidTransition
	}

	next := st
	next.AcknowledgedHigh = countHighFlags(next.RedFlags)
	if next.NextQuestion >= len(RedFlagQuestions) {
		next.Phase = PhaseQuestionnaire
	} else {
		next.Phase = PhaseRedFlags
	}
	return next, nil
}

func countHighFlags(flags []RedFlag) int {
	n := 0
	for _, f := range flags {
		if f.Detected && f.Severity == SeverityHigh {
			n++
		}
	}
	return n
}
