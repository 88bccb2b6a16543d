package model

// StreamEventType discriminates the ndjson lines PrepCoordinator emits.
// Mirrors the discriminated-union shape tarsy's agent package uses for
// Chunk, adapted from a typed interface to a single tagged struct since
// the wire format here is newline-delimited JSON, not an in-process channel
// of heterogeneous Go values.
type StreamEventType string

const (
	StreamEventProgress StreamEventType = "progress"
	StreamEventComplete StreamEventType = "complete"
	StreamEventError    StreamEventType = "error"
	StreamEventKeepalive StreamEventType = "keepalive"
)

// StreamStage names the pipeline stage a ProgressEvent reports on.
type StreamStage string

const (
	StageHarvesting  StreamStage = "harvesting"
	StageClassifying StreamStage = "classifying"
	StagePurpose     StreamStage = "purpose"
	StageRelevance   StreamStage = "relevance"
	StageAttendees   StreamStage = "attendees"
	StageSynthesis   StreamStage = "synthesis"
)

// StreamEvent is one ndjson line of the prep stream.
type StreamEvent struct {
	Type StreamEventType `json:"type"`

	// progress fields
	Stage   StreamStage `json:"stage,omitempty"`
	Message string      `json:"message,omitempty"`
	Percent int         `json:"percent,omitempty"`

	// complete fields
	Brief *Brief `json:"brief,omitempty"`

	// error fields
	Error *PrepError `json:"error,omitempty"`
}

// NewProgressEvent builds a progress StreamEvent.
func NewProgressEvent(stage StreamStage, message string, percent int) StreamEvent {
	return StreamEvent{Type: StreamEventProgress, Stage: stage, Message: message, Percent: percent}
}

// NewCompleteEvent builds a terminal complete StreamEvent.
func NewCompleteEvent(brief *Brief) StreamEvent {
	return StreamEvent{Type: StreamEventComplete, Brief: brief}
}

// NewErrorEvent builds a terminal error StreamEvent.
func NewErrorEvent(err *PrepError) StreamEvent {
	return StreamEvent{Type: StreamEventError, Error: err}
}

// KeepaliveEvent is sent on an idle ticker so intermediate proxies don't
// time out a long-running harvest/research stage.
var KeepaliveEvent = StreamEvent{Type: StreamEventKeepalive}
