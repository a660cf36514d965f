// Package bonus holds the bonus record model, its status machine and the
// repository contracts the store adapters implement.
package bonus

import (
	"fmt"
	"strings"
	"time"
)

// Status is the payment state of a bonus record. Unrecognized values read from
// the store are kept verbatim so that validation can reject them.
type Status string

const (
	StatusPaid   Status = "Paid"
	StatusUnpaid Status = "Unpaid"
)

// UnknownLabel names a missing distributor attribute or an unassigned group.
const UnknownLabel = "Unknown"

// ParseStatus normalises the spellings used by the store ("Paid", "Unpaid", "UnPaid").
func ParseStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "paid":
		return StatusPaid
	case "unpaid":
		return StatusUnpaid
	default:
		return Status(raw)
	}
}

// Valid reports whether s is one of the two known states.
func (s Status) Valid() bool {
	return s == StatusPaid || s == StatusUnpaid
}

// Record is a bonus row as owned by the store.
//
// PaidBy has three states: nil means the record was never paid, an empty string
// means a payment was reverted, anything else names the user who paid it.
type Record struct {
	ID            int64      `json:"id"`
	DistributorID string     `json:"distributor_id"`
	Date          time.Time  `json:"bonus_date"`
	Amount        int64      `json:"amount"` // Minor units
	Status        Status     `json:"status"`
	PaymentDate   *time.Time `json:"payment_date"`
	PaidBy        *string    `json:"paid_by"`
	UserID        *string    `json:"user_id,omitempty"`
}

// Validate enforces the record invariants the aggregations rely on.
func (r Record) Validate() error {
	switch r.Status {
	case StatusPaid:
		if r.PaymentDate == nil || r.PaidBy == nil || *r.PaidBy == "" {
			return ErrDataIntegrity{RecordID: r.ID, Reason: "paid record is missing payment date or payer"}
		}
	case StatusUnpaid:
	default:
		return ErrDataIntegrity{RecordID: r.ID, Reason: fmt.Sprintf("unrecognized status %q", string(r.Status))}
	}
	if r.Amount < 0 {
		return ErrDataIntegrity{RecordID: r.ID, Reason: "negative amount"}
	}
	return nil
}

// EnrichedRecord is a record joined with its distributor. It is always rebuilt
// as a whole, never patched field by field.
type EnrichedRecord struct {
	Record
	EntityName     string  `json:"distributor_name"`
	EntityPosition string  `json:"distributor_position"`
	GroupKey       *string `json:"group_key"`
}

// Filter selects the records of a fetch. Empty DistributorID and GroupKey mean no restriction.
type Filter struct {
	Range         DateRange
	DistributorID string
	GroupKey      string
}

// Matches reports whether an enriched record belongs to the filter's result set.
// Records without a group never match a group-restricted filter.
func (f Filter) Matches(r EnrichedRecord) bool {
	if !f.Range.Contains(r.Date) {
		return false
	}
	if f.DistributorID != "" && r.DistributorID != f.DistributorID {
		return false
	}
	if f.GroupKey != "" && (r.GroupKey == nil || *r.GroupKey != f.GroupKey) {
		return false
	}
	return true
}

// RecordPage is one bounded fetch. Truncated is set when the store held more
// rows than Limit; Records then holds exactly Limit of them.
type RecordPage struct {
	Records   []Record
	Truncated bool
	Limit     int
}

// PivotTriple is one (date, group, total) aggregate returned by the store.
type PivotTriple struct {
	Date     time.Time
	GroupKey string
	Total    int64
}

// DepartmentSummaryRow is one group's totals as computed by the store.
type DepartmentSummaryRow struct {
	GroupKey    string `json:"group_key"`
	TotalPaid   int64  `json:"total_paid"`
	TotalUnpaid int64  `json:"total_unpaid"`
}
