package sdk

import (
	"github.com/autostack/autostack/pkg/application"
	"github.com/autostack/autostack/pkg/domain/events"
	"github.com/autostack/autostack/pkg/domain/planning"
	"github.com/autostack/autostack/pkg/domain/project"
)

// Results are the server's own domain types.
type (
	Project    = project.Project
	Plan       = planning.Plan
	PlanStatus = application.PlanStatus
	Event      = events.BaseEvent
)

// SchemaInfo is the content of the autostack://schema resource.
type SchemaInfo struct {
	SchemaVersion string   `json:"schema_version"`
	ServerVersion string   `json:"server_version"`
	Tools         []string `json:"tools"`
}

// EventsRequest filters Events.
type EventsRequest struct {
	Type  string
	Limit int
}
