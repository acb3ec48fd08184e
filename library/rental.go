package library

import "time"

// Rental tracks one item on loan to one user. A rental starts unpersisted
// (id 0), becomes active once saved, and is returned when a return date is
// recorded. Soft deletion is orthogonal: a deleted rental keeps its dates
// and fee as historical record.
//
// The username and item title are denormalized snapshots. They stay empty
// during the pending-creation phase and are populated by the rental handler
// from the referenced user and item before the rental is persisted.
type Rental struct {
	id         int
	userID     int
	itemID     int
	rentalDate time.Time
	dueDate    time.Time
	returnDate time.Time // zero while active
	username   string
	itemTitle  string
	lateFee    float64 // frozen at return time; 0 while active
	deleted    bool

	cfg Config
	v   *Validator
}

// NewRental builds an unpersisted rental. A zero rentalDate means "now".
// The rental date is truncated to seconds and must not lie in the future;
// the due date is derived from it per the circulation config.
func NewRental(v *Validator, cfg Config, userID, itemID int, rentalDate time.Time) (*Rental, error) {
	if err := v.PersistedID("userID", userID); err != nil {
		return nil, err
	}
	if err := v.PersistedID("itemID", itemID); err != nil {
		return nil, err
	}
	if rentalDate.IsZero() {
		rentalDate = time.Now()
	}
	rentalDate = rentalDate.Truncate(time.Second)
	if err := v.NotFuture("rentalDate", rentalDate); err != nil {
		return nil, err
	}
	return &Rental{
		v:          v,
		cfg:        cfg,
		userID:     userID,
		itemID:     itemID,
		rentalDate: rentalDate,
		dueDate:    cfg.DueDateFrom(rentalDate),
	}, nil
}

func (r *Rental) ID() int               { return r.id }
func (r *Rental) UserID() int           { return r.userID }
func (r *Rental) ItemID() int           { return r.itemID }
func (r *Rental) RentalDate() time.Time { return r.rentalDate }
func (r *Rental) DueDate() time.Time    { return r.dueDate }
func (r *Rental) Username() string      { return r.username }
func (r *Rental) ItemTitle() string     { return r.itemTitle }
func (r *Rental) Deleted() bool         { return r.deleted }

// ReturnDate is zero while the rental is active.
func (r *Rental) ReturnDate() time.Time { return r.returnDate }

// Active reports whether no return has been recorded yet.
func (r *Rental) Active() bool { return r.returnDate.IsZero() }

// Overdue reports whether the rental is active and past due as of asOf.
func (r *Rental) Overdue(asOf time.Time) bool {
	return r.Active() && asOf.After(r.dueDate)
}

// MarkReturned records the return and freezes the late fee at its value as
// of the return date. Only legal while active. A zero returnDate means
// "now"; a return date before the rental date is rejected.
func (r *Rental) MarkReturned(returnDate time.Time) error {
	if !r.Active() {
		return invalid("returnDate", ErrInvalidDate, "rental %d is already returned", r.id)
	}
	if returnDate.IsZero() {
		returnDate = time.Now()
	}
	returnDate = returnDate.Truncate(time.Second)
	if err := r.v.NotBefore("returnDate", returnDate, r.rentalDate); err != nil {
		return err
	}
	r.lateFee = r.feeAsOf(returnDate)
	r.returnDate = returnDate
	return nil
}

// LateFee derives the fee owed as of asOf. While active it grows by
// LateFeePerDay for every started day past due; once returned it stays
// frozen at the value computed at return time.
func (r *Rental) LateFee(asOf time.Time) float64 {
	if !r.Active() {
		return r.lateFee
	}
	return r.feeAsOf(asOf)
}

func (r *Rental) feeAsOf(asOf time.Time) float64 {
	if !asOf.After(r.dueDate) {
		return 0
	}
	days := int(asOf.Sub(r.dueDate)/(24*time.Hour)) + 1
	return float64(days) * r.cfg.LateFeePerDay
}

// SetDueDate recomputes the due date, normalizing the candidate to the
// configured due hour. The raw candidate must not lie before now minus the
// grace window, and the pinned result is what gets validated: it too must
// clear the floor and stay after the rental date, so a successful call can
// never leave the rental in an invalid state.
func (r *Rental) SetDueDate(due time.Time) error {
	floor := time.Now().Add(-r.cfg.DueDateGrace)
	if due.Before(floor) {
		return invalid("rentalDueDate", ErrInvalidDate, "%s is already past", due.Format(time.RFC3339))
	}
	pinned := r.cfg.PinDueHour(due)
	if pinned.Before(floor) {
		return invalid("rentalDueDate", ErrInvalidDate,
			"%s falls in the past once pinned to the %02d:00 due hour", due.Format(time.RFC3339), r.cfg.DueDateHour)
	}
	if err := r.v.After("rentalDueDate", pinned, r.rentalDate); err != nil {
		return err
	}
	r.dueDate = pinned
	return nil
}

// reopen clears a recorded return so a failed follow-up write can restore
// the rental to its active state.
func (r *Rental) reopen() {
	r.returnDate = time.Time{}
	r.lateFee = 0
}

// setSnapshots fills in the denormalized username and item title; the
// handler calls this once the referenced user and item are resolved.
func (r *Rental) setSnapshots(username, itemTitle string) error {
	if err := r.v.Username("username", TableUsers, "username", username); err != nil {
		return err
	}
	if err := r.v.Title("itemTitle", TableItems, "title", itemTitle); err != nil {
		return err
	}
	r.username = username
	r.itemTitle = itemTitle
	return nil
}

func (r *Rental) validate() error {
	if err := r.v.EntityID("id", r.id); err != nil {
		return err
	}
	if err := r.v.PersistedID("userID", r.userID); err != nil {
		return err
	}
	if err := r.v.PersistedID("itemID", r.itemID); err != nil {
		return err
	}
	if err := r.v.NotFuture("rentalDate", r.rentalDate); err != nil {
		return err
	}
	if err := r.v.After("rentalDueDate", r.dueDate, r.rentalDate); err != nil {
		return err
	}
	if !r.returnDate.IsZero() {
		if err := r.v.NotBefore("returnDate", r.returnDate, r.rentalDate); err != nil {
			return err
		}
	}
	// Once past pending creation the snapshots must be populated.
	if r.id != 0 {
		if err := r.v.Username("username", TableUsers, "username", r.username); err != nil {
			return err
		}
		if err := r.v.Title("itemTitle", TableItems, "title", r.itemTitle); err != nil {
			return err
		}
	}
	return r.v.Fee("lateFee", r.lateFee)
}

func (r *Rental) fields() Row {
	return Row{
		"user_id":     r.userID,
		"item_id":     r.itemID,
		"rental_date": EncodeTime(r.rentalDate),
		"due_date":    EncodeTime(r.dueDate),
		"return_date": EncodeTime(r.returnDate),
		"username":    r.username,
		"item_title":  r.itemTitle,
		"late_fee":    r.lateFee,
		"deleted":     r.deleted,
	}
}

func decodeRental(v *Validator, cfg Config, row Row) (*Rental, error) {
	r := &Rental{
		v:          v,
		cfg:        cfg,
		id:         row.Int("id"),
		userID:     row.Int("user_id"),
		itemID:     row.Int("item_id"),
		rentalDate: row.Time("rental_date"),
		dueDate:    row.Time("due_date"),
		returnDate: row.Time("return_date"),
		username:   row.Str("username"),
		itemTitle:  row.Str("item_title"),
		lateFee:    row.Float("late_fee"),
		deleted:    row.Bool("deleted"),
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}
