package model

// EventType is the classification label §4.4 assigns to a Meeting.
type EventType string

const (
	EventTypeMeeting           EventType = "meeting"
	EventTypePublicEvent       EventType = "public_event"
	EventTypePersonalReminder  EventType = "personal_reminder"
	EventTypeLeisure           EventType = "leisure"
	EventTypeTravel            EventType = "travel"
	EventTypeUnknown           EventType = "unknown"
)

// PrepDepth is the amount of pipeline work a classification authorizes.
type PrepDepth string

const (
	PrepDepthFull    PrepDepth = "full"
	PrepDepthMinimal PrepDepth = "minimal"
	PrepDepthNone    PrepDepth = "none"
)

// Classification is EventClassifier's output.
type Classification struct {
	Type        EventType `json:"type"`
	Confidence  float64   `json:"confidence"`
	ShouldPrep  bool      `json:"should_prep"`
	PrepDepth   PrepDepth `json:"prep_depth"`
	Reason      string    `json:"reason"`
}

// PurposeSource identifies which stage of the three-stage detector a final
// purpose/agenda came from.
type PurposeSource string

const (
	PurposeSourceCalendar  PurposeSource = "calendar"
	PurposeSourceEmail     PurposeSource = "email"
	PurposeSourceCombined  PurposeSource = "combined"
	PurposeSourceLLM       PurposeSource = "llm"
	PurposeSourceUncertain PurposeSource = "uncertain"
)

// PurposeResult is PurposeDetector's aggregated output.
type PurposeResult struct {
	Purpose          string        `json:"purpose"`
	Agenda           []string      `json:"agenda"`
	Confidence       float64       `json:"confidence"`
	Source           PurposeSource `json:"source"`
	ContextEmailRefs []string      `json:"context_email_refs,omitempty"`
}
