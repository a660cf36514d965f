package bonus

import (
	"context"
	"time"
)

// StatusAudit is one entry of the append-only status history.
type StatusAudit struct {
	AuditID       string    `json:"audit_id" bson:"audit_id"`
	RecordID      int64     `json:"record_id" bson:"record_id"`
	FromStatus    Status    `json:"from_status" bson:"from_status"`
	ToStatus      Status    `json:"to_status" bson:"to_status"`
	ActorID       string    `json:"actor_id" bson:"actor_id"`
	ActorName     string    `json:"actor_name" bson:"actor_name"`
	Department    string    `json:"department,omitempty" bson:"department,omitempty"`
	PaymentDate   time.Time `json:"payment_date" bson:"payment_date"`
	CorrelationID string    `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	RecordedAt    time.Time `json:"recorded_at" bson:"recorded_at"`
}

// AuditRepository persists the status history
type AuditRepository interface {
	Append(ctx context.Context, entry *StatusAudit) error
	ListByRecordID(ctx context.Context, recordID int64, limit int) ([]*StatusAudit, error)
}
