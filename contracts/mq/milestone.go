package mq

import "time"

const RoutingKeyMilestoneStatusChanged = "milestone.status_changed"

// MilestoneStatusChangedPayload is published through the outbox whenever a
// milestone's status is updated.
type MilestoneStatusChangedPayload struct {
	EventID        string     `json:"event_id"`
	MilestoneID    string     `json:"milestone_id"`
	ProjectID      string     `json:"project_id"`
	CustomerID     string     `json:"customer_id"`
	MilestoneKey   string     `json:"milestone_key"`
	PreviousStatus string     `json:"previous_status"`
	Status         string     `json:"status"`
	PlannedDate    *time.Time `json:"planned_date,omitempty"`
	ChangedAt      time.Time  `json:"changed_at"`
	TraceID        string     `json:"trace_id,omitempty"`
}
