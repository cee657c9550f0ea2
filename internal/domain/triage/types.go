package triage

// Severity of a red flag. Only high severity interrupts the questionnaire.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
)

// Phase of an in-progress triage pass.
type Phase string

const (
	PhaseRedFlags      Phase = "red_flags"
	PhaseSafetyStop    Phase = "safety_stop"
	PhaseQuestionnaire Phase = "questionnaire"
)

// RedFlagQuestion is one entry of the fixed, ordered red-flag screen.
type RedFlagQuestion struct {
	ID       string
	Question string
	Severity Severity
	Action   string
}

// RedFlagQuestions is the screen, in the order it must be answered.
var RedFlagQuestions = []RedFlagQuestion{
	{
		ID:       "rf-trauma",
		Question: "Did the complaints start after a serious accident or fall?",
		Severity: SeverityHigh,
		Action:   "Contact your physician before continuing.",
	},
	{
		ID:       "rf-saddle-numbness",
		Question: "Do you experience numbness around the groin or inner thighs, or loss of bladder/bowel control?",
		Severity: SeverityHigh,
		Action:   "Seek emergency care immediately.",
	},
	{
		ID:       "rf-fever",
		Question: "Do you have a fever alongside the complaints?",
		Severity: SeverityHigh,
		Action:   "Contact your physician before continuing.",
	},
	{
		ID:       "rf-weight-loss",
		Question: "Have you lost weight recently without trying to?",
		Severity: SeverityMedium,
		Action:   "Mention this to your care provider.",
	},
	{
		ID:       "rf-night-pain",
		Question: "Does the pain wake you up at night and persist when resting?",
		Severity: SeverityMedium,
		Action:   "Mention this to your care provider.",
	},
	{
		ID:       "rf-cancer-history",
		Question: "Have you been treated for cancer in the past?",
		Severity: SeverityMedium,
		Action:   "Mention this to your care provider.",
	},
}

// RequiredAnswers is the subset of questionnaire keys that must be present
// before a session can complete.
var RequiredAnswers = []string{
	"complaint_location",
	"complaint_duration",
	"hinders_daily_activities",
	"exercises_regularly",
	"has_had_physiotherapy",
	"follows_healthy_diet",
	"smokes",
}
