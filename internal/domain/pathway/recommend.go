package pathway

import (
	"errors"
	"strconv"
	"strings"
)

var (
	ErrInvalidInput = errors.New("invalid input")
)

const bmiThreshold = 25.0

// Fixed justification strings, one per predicate. The UI shows these
// verbatim, so they must be stable.
const (
	reasonPhysiotherapy = "Based on your activity level, physiotherapy history and complaint duration, physiotherapy can help restore strength and mobility."
	reasonErgotherapy   = "Your complaints have lasted a long time and hinder your daily activities; ergotherapy helps you perform them with less strain."
	reasonDietDiet      = "You indicated that you do not follow a healthy diet; dietary guidance supports recovery of musculoskeletal complaints."
	reasonDietBMI       = "Your BMI is above 25; dietary guidance supports recovery of musculoskeletal complaints."
	reasonSmoking       = "You indicated that you smoke; quitting improves tissue recovery and reduces chronic pain."
)

// Recommend maps questionnaire answers to recommended care pathways. It is a
// pure function: no state, no randomness, input never mutated. Each pathway
// has an independent predicate, so zero, one or many may fire.
//
// IDs are assigned by the caller at session completion; leaving them empty
// here keeps identical answers yielding structurally identical output.
func Recommend(answers map[string]string) ([]CarePathway, error) {
	bmi, hasBMI, err := bodyMassIndex(answers)
	if err != nil {
		return nil, err
	}

	out := make([]CarePathway, 0, 4)

	if !isYes(answers[AnswerExercisesRegularly]) ||
		!isYes(answers[AnswerHasHadPhysio]) ||
		answers[AnswerComplaintDuration] == DurationLonger {
		out = append(out, recommended(
			DisciplinePhysiotherapy,
			"Physiotherapy",
			"Exercise therapy and guidance for musculoskeletal complaints.",
			reasonPhysiotherapy,
		))
	}

	if isYes(answers[AnswerHindersDaily]) && answers[AnswerComplaintDuration] == DurationLonger {
		out = append(out, recommended(
			DisciplineErgotherapy,
			"Ergotherapy",
			"Support for performing daily activities despite complaints.",
			reasonErgotherapy,
		))
	}

	if !isYes(answers[AnswerHealthyDiet]) {
		out = append(out, recommended(
			DisciplineDietetics,
			"Dietetics",
			"Nutritional advice supporting recovery.",
			reasonDietDiet,
		))
	} else if hasBMI && bmi > bmiThreshold {
		out = append(out, recommended(
			DisciplineDietetics,
			"Dietetics",
			"Nutritional advice supporting recovery.",
			reasonDietBMI,
		))
	}

	if isYes(answers[AnswerSmokes]) {
		out = append(out, recommended(
			DisciplineSmokingCessation,
			"Smoking cessation",
			"Coaching to stop smoking.",
			reasonSmoking,
		))
	}

	return out, nil
}

func recommended(d Discipline, name, description, reason string) CarePathway {
	return CarePathway{
		Discipline:              d,
		Name:                    name,
		Description:             description,
		Recommended:             true,
		Accepted:                nil,
		ReasonForRecommendation: reason,
	}
}

// bodyMassIndex computes weight_kg / height_m² from the free-form height and
// weight answers. Both must be present and positive to count; present but
// non-numeric or non-positive values are a validation error.
func bodyMassIndex(answers map[string]string) (float64, bool, error) {
	hs := strings.TrimSpace(answers[AnswerHeightCM])
	ws := strings.TrimSpace(answers[AnswerWeightKG])
	if hs == "" || ws == "" {
		return 0, false, nil
	}

	heightCM, err := strconv.ParseFloat(hs, 64)
	if err != nil || heightCM <= 0 {
		return 0, false, ErrInvalidInput
	}
	weightKG, err := strconv.ParseFloat(ws, 64)
	if err != nil || weightKG <= 0 {
		return 0, false, ErrInvalidInput
	}

	heightM := heightCM / 100
	return weightKG / (heightM * heightM), true, nil
}

func isYes(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "true", "1":
		return true
	default:
		return false
	}
}
