package bonus

import "time"

// Actor is the user performing a status transition.
type Actor struct {
	ID       string
	Username string
}

// StatusChange is the set of fields a transition writes. They are persisted together.
type StatusChange struct {
	Status      Status
	PaymentDate time.Time
	PaidBy      string
	UserID      string
}

// Apply returns rec with the change written over its status and audit fields.
func (c StatusChange) Apply(rec Record) Record {
	paymentDate := c.PaymentDate
	paidBy := c.PaidBy
	userID := c.UserID

	rec.Status = c.Status
	rec.PaymentDate = &paymentDate
	rec.PaidBy = &paidBy
	rec.UserID = &userID
	return rec
}

// MarkPaid is allowed from any state; marking a paid record again refreshes the
// payment date and payer.
func MarkPaid(rec Record, actor Actor, now time.Time) (Record, StatusChange) {
	change := StatusChange{
		Status:      StatusPaid,
		PaymentDate: now,
		PaidBy:      actor.Username,
		UserID:      actor.ID,
	}
	return change.Apply(rec), change
}

// RevertToUnpaid clears the payer and records the reversal time as the payment date.
func RevertToUnpaid(rec Record, actor Actor, now time.Time) (Record, StatusChange) {
	change := StatusChange{
		Status:      StatusUnpaid,
		PaymentDate: now,
		PaidBy:      "",
		UserID:      actor.ID,
	}
	return change.Apply(rec), change
}

// Transition dispatches to MarkPaid or RevertToUnpaid.
func Transition(rec Record, target Status, actor Actor, now time.Time) (Record, StatusChange, error) {
	switch ParseStatus(string(target)) {
	case StatusPaid:
		r, c := MarkPaid(rec, actor, now)
		return r, c, nil
	case StatusUnpaid:
		r, c := RevertToUnpaid(rec, actor, now)
		return r, c, nil
	default:
		return rec, StatusChange{}, ErrInvalidStatus
	}
}
