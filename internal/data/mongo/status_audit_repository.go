// Package mongo stores the append-only bonus status history in MongoDB.
package mongo

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/distributor-bonus-ledger/internal/domain/bonus"
)

const (
	// StatusAuditCollectionName is the name of the status history collection in MongoDB
	StatusAuditCollectionName = "bonus_status_audit"

	defaultHistoryLimit = 50
)

// auditCollection is the subset of *mongo.Collection the repository uses
type auditCollection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

// StatusAuditRepository implements the bonus.AuditRepository interface for MongoDB
type StatusAuditRepository struct {
	collection auditCollection
	logger     *slog.Logger
	now        func() time.Time
}

// NewStatusAuditRepository creates a new MongoDB status audit repository
func NewStatusAuditRepository(logger *slog.Logger, db *mongo.Database) bonus.AuditRepository {
	return &StatusAuditRepository{
		collection: db.Collection(StatusAuditCollectionName),
		logger:     logger,
		now:        time.Now,
	}
}

// EnsureIndexes creates the index serving history lookups by record.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	model := mongo.IndexModel{
		Keys:    bson.D{{Key: "record_id", Value: 1}, {Key: "recorded_at", Value: -1}},
		Options: options.Index().SetName("record_id_recorded_at"),
	}
	if _, err := db.Collection(StatusAuditCollectionName).Indexes().CreateOne(ctx, model); err != nil {
		return bonus.ErrRepository{Op: "create status audit index", Cause: err}
	}
	return nil
}

// Append stores one transition. AuditID and RecordedAt are filled in when empty.
func (r *StatusAuditRepository) Append(ctx context.Context, entry *bonus.StatusAudit) error {
	if entry.AuditID == "" {
		entry.AuditID = uuid.NewString()
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = r.now().UTC()
	}

	if _, err := r.collection.InsertOne(ctx, entry); err != nil {
		r.logger.Error("Failed to append status audit",
			"record_id", entry.RecordID,
			"to_status", string(entry.ToStatus),
			"error", err)
		return bonus.ErrRepository{Op: "append status audit", Cause: err}
	}

	return nil
}

// ListByRecordID returns the newest entries first. A non-positive limit uses a default of 50.
func (r *StatusAuditRepository) ListByRecordID(ctx context.Context, recordID int64, limit int) ([]*bonus.StatusAudit, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	filter := bson.M{"record_id": recordID}
	opts := options.Find().
		SetSort(bson.D{{Key: "recorded_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list status audit", "record_id", recordID, "error", err)
		return nil, bonus.ErrRepository{Op: "list status audit", Cause: err}
	}
	defer cursor.Close(ctx)

	entries := []*bonus.StatusAudit{}
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode status audit", "record_id", recordID, "error", err)
		return nil, bonus.ErrRepository{Op: "decode status audit", Cause: err}
	}

	return entries, nil
}
