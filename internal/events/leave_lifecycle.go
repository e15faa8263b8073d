package events

import "time"

// Lifecycle notifications are fire-and-forget: they are written to the outbox
// inside the primary transaction and published to Kafka by the worker, so a
// broker outage can never roll back a state transition.
const (
	LeaveLifecycleTopic = "leave.request.lifecycle.v1"

	TypeChainCreated     = "leave.chain_created"
	TypeApprovalDecided  = "leave.approval_decided"
	TypeRequestApproved  = "leave.request_approved"
	TypeRequestRejected  = "leave.request_rejected"
	TypeRequestCancelled = "leave.request_cancelled"
	TypeLevelEscalated   = "leave.level_escalated"
	TypeDocumentReady    = "leave.document_ready"
)

type LeaveLifecycleEvent struct {
	EventType  string    `json:"event_type"`
	RequestID  string    `json:"request_id"`
	CompanyID  string    `json:"company_id"`
	EmployeeID string    `json:"employee_id"`
	// RecipientID is who should be notified (the new approver on escalation,
	// the requester on terminal transitions).
	RecipientID string    `json:"recipient_id,omitempty"`
	LevelID     string    `json:"level_id,omitempty"`
	Ordinal     int       `json:"ordinal,omitempty"`
	Outcome     string    `json:"outcome,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}
