package pathway

// Discipline is a care discipline a patient can be routed to.
type Discipline string

const (
	DisciplinePhysiotherapy    Discipline = "physiotherapy"
	DisciplineErgotherapy      Discipline = "ergotherapy"
	DisciplineDietetics        Discipline = "dietetics"
	DisciplineSmokingCessation Discipline = "smoking_cessation"
)

func ValidDiscipline(d Discipline) bool {
	switch d {
	case DisciplinePhysiotherapy, DisciplineErgotherapy, DisciplineDietetics, DisciplineSmokingCessation:
		return true
	default:
		return false
	}
}

// CarePathway is one recommended discipline. Accepted stays nil until the
// patient decides; the record itself is never deleted.
type CarePathway struct {
	ID                      string
	Discipline              Discipline
	Name                    string
	Description             string
	Recommended             bool
	Accepted                *bool
	ReasonForRecommendation string
}

// Answer keys the recommender understands. Answers arrive as a flat
// string-keyed map from the intake layer; boolean answers are "yes"/"no".
const (
	AnswerExercisesRegularly = "exercises_regularly"
	AnswerHasHadPhysio       = "has_had_physiotherapy"
	AnswerComplaintDuration  = "complaint_duration" // "shorter" | "longer"
	AnswerHindersDaily       = "hinders_daily_activities"
	AnswerHealthyDiet        = "follows_healthy_diet"
	AnswerSmokes             = "smokes"
	AnswerHeightCM           = "height_cm"
	AnswerWeightKG           = "weight_kg"
)

const DurationLonger = "longer"
