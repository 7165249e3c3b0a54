package audit

import (
	"time"

	id "credledger/pkg/domain"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	Actor     id.Address // session caller that performed the action
	Subject   string     // credential id, when known
	Student   id.Address
	Action    string
	Category  Category // derived from Action when empty
	Decision  string
	Reason    string
	TxHash    string
	RequestID string // Correlation ID from HTTP request context
}

type AuditEvent string

const (
	EventCredentialIssued     AuditEvent = "credential_issued"
	EventCredentialRevoked    AuditEvent = "credential_revoked"
	EventIssueDenied          AuditEvent = "credential_issue_denied"
	EventIssueFailed          AuditEvent = "credential_issue_failed"
	EventRevokeFailed         AuditEvent = "credential_revoke_failed"
	EventConfirmationTimedOut AuditEvent = "write_confirmation_timed_out"
)

// Category groups events by who consumes them.
type Category string

const (
	CategoryCompliance Category = "compliance"
	CategorySecurity   Category = "security"
	CategoryOperations Category = "operations"
)

// Category maps an event to its category. Unknown events are operations.
func (e AuditEvent) Category() Category {
	switch e {
	case EventCredentialIssued, EventCredentialRevoked:
		return CategoryCompliance
	case EventIssueDenied, EventRevokeFailed:
		return CategorySecurity
	default:
		return CategoryOperations
	}
}
