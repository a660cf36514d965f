// Package changefeed turns row-change messages of the bonus table into
// projection updates and manages the live subscription that delivers them.
package changefeed

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/distributor-bonus-ledger/internal/domain/bonus"
)

var (
	// ErrForeignTable marks a well-formed event for a table this feed does not follow.
	ErrForeignTable = errors.New("event for another table")
	// ErrUndecodable marks a message that cannot be turned into a change event.
	ErrUndecodable = errors.New("undecodable change event")
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05-07",
	"2006-01-02 15:04:05",
	bonus.DateLayout,
}

// Envelope is the wire format of a change message.
type Envelope struct {
	Schema          string        `json:"schema"`
	Table           string        `json:"table"`
	EventType       string        `json:"eventType"`
	New             *bonus.Record `json:"new,omitempty"`
	Old             *bonus.Record `json:"old,omitempty"`
	CommitTimestamp string        `json:"commit_timestamp,omitempty"`
}

// NewUpdateEnvelope describes a row rewritten in place.
func NewUpdateEnvelope(table string, rec bonus.Record, previous bonus.Status, at time.Time) Envelope {
	old := rec
	old.Status = previous
	return Envelope{
		Schema:          "public",
		Table:           table,
		EventType:       string(bonus.EventUpdate),
		New:             &rec,
		Old:             &old,
		CommitTimestamp: at.UTC().Format(time.RFC3339Nano),
	}
}

type wireMessage struct {
	Schema          string          `json:"schema"`
	Table           string          `json:"table"`
	EventType       string          `json:"eventType"`
	New             json.RawMessage `json:"new"`
	Old             json.RawMessage `json:"old"`
	CommitTimestamp string          `json:"commit_timestamp"`
}

// wireRow accepts numbers or numeric strings for id and amount, and dates in
// any of timestampLayouts.
type wireRow struct {
	ID            *decimal.Decimal `json:"id"`
	DistributorID string           `json:"distributor_id"`
	BonusDate     string           `json:"bonus_date"`
	Amount        *decimal.Decimal `json:"amount"`
	Status        string           `json:"status"`
	PaymentDate   *string          `json:"payment_date"`
	PaidBy        *string          `json:"paid_by"`
	UserID        *string          `json:"user_id"`
}

// Decoder parses change messages for a single table.
type Decoder struct {
	table string
}

func NewDecoder(table string) Decoder {
	return Decoder{table: table}
}

// Decode returns ErrForeignTable for events of other tables and wraps
// ErrUndecodable for everything it cannot interpret.
func (d Decoder) Decode(value []byte) (bonus.ChangeEvent, error) {
	var msg wireMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		return bonus.ChangeEvent{}, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	if msg.Table != d.table {
		return bonus.ChangeEvent{}, ErrForeignTable
	}

	event := bonus.ChangeEvent{Type: bonus.EventType(strings.ToUpper(strings.TrimSpace(msg.EventType)))}
	if msg.CommitTimestamp != "" {
		if ts, ok := parseTimestamp(msg.CommitTimestamp); ok {
			event.CommittedAt = ts
		}
	}

	var err error
	switch event.Type {
	case bonus.EventInsert, bonus.EventUpdate:
		event.New, err = decodeRow(msg.New, true)
		if err == nil && hasPayload(msg.Old) {
			event.Old, _ = decodeRow(msg.Old, false)
		}
	case bonus.EventDelete:
		event.Old, err = decodeRow(msg.Old, false)
	default:
		err = fmt.Errorf("unknown event type %q", msg.EventType)
	}
	if err != nil {
		return bonus.ChangeEvent{}, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}

	return event, nil
}

func hasPayload(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed != "" && trimmed != "null" && trimmed != "{}"
}

// decodeRow parses a row image. Deletes may carry only the id, so full is false for them.
func decodeRow(raw json.RawMessage, full bool) (*bonus.Record, error) {
	if !hasPayload(raw) {
		return nil, errors.New("missing row image")
	}

	var row wireRow
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, err
	}
	if row.ID == nil || !row.ID.IsInteger() {
		return nil, errors.New("row id is missing or not an integer")
	}

	rec := &bonus.Record{
		ID:            row.ID.IntPart(),
		DistributorID: row.DistributorID,
		Status:        bonus.ParseStatus(row.Status),
		PaidBy:        row.PaidBy,
		UserID:        row.UserID,
	}
	if !full {
		return rec, nil
	}

	if row.DistributorID == "" {
		return nil, errors.New("row distributor_id is missing")
	}
	date, ok := parseTimestamp(row.BonusDate)
	if !ok {
		return nil, fmt.Errorf("row bonus_date %q is not a date", row.BonusDate)
	}
	y, m, day := date.Date()
	rec.Date = time.Date(y, m, day, 0, 0, 0, 0, time.UTC)

	if row.Amount == nil || !row.Amount.IsInteger() {
		return nil, errors.New("row amount is missing or not an integer")
	}
	rec.Amount = row.Amount.IntPart()

	if row.PaymentDate != nil && *row.PaymentDate != "" {
		ts, ok := parseTimestamp(*row.PaymentDate)
		if !ok {
			return nil, fmt.Errorf("row payment_date %q is not a timestamp", *row.PaymentDate)
		}
		rec.PaymentDate = &ts
	}

	return rec, nil
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
