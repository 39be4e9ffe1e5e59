package dto

import "github.com/customeros/attachstack/internal/models"

type Event struct {
	Event    EventDetails  `json:"event"`
	Metadata EventMetadata `json:"metadata"`
}

type EventDetails struct {
	Id        string      `json:"id"`
	RunId     string      `json:"runId"`
	EventType string      `json:"eventType"`
	Data      interface{} `json:"data"`
}

type EventMetadata struct {
	UberTraceId string `json:"uber-trace-id"`
	AppSource   string `json:"appSource"`
	Timestamp   string `json:"timestamp"`
}

// RunCompleted is emitted once per finished archival run
type RunCompleted struct {
	RunID     string            `json:"runId"`
	Summary   models.RunSummary `json:"summary"`
	StartedAt string            `json:"startedAt"`
	EndedAt   string            `json:"endedAt"`
}
