package library

import (
	"strings"
	"time"
)

// Validator holds the stateless field checks plus a cache of schema-derived
// length limits. Limits come from the MetadataProvider on first use and stay
// cached for the validator's lifetime.
type Validator struct {
	meta   MetadataProvider
	limits map[string]int
}

func NewValidator(meta MetadataProvider) *Validator {
	return &Validator{meta: meta, limits: make(map[string]int)}
}

func (v *Validator) maxLen(table, column string) (int, error) {
	key := table + "." + column
	if n, ok := v.limits[key]; ok {
		return n, nil
	}
	n, err := v.meta.MaxLength(table, column)
	if err != nil {
		return 0, err
	}
	v.limits[key] = n
	return n, nil
}

// PersistedID requires an id already assigned by storage.
func (v *Validator) PersistedID(field string, id int) error {
	if id <= 0 {
		return invalid(field, ErrInvalidID, "%d is not a persisted id", id)
	}
	return nil
}

// EntityID permits 0 for entities not yet persisted, rejecting only
// negative values.
func (v *Validator) EntityID(field string, id int) error {
	if id < 0 {
		return invalid(field, ErrInvalidID, "%d is negative", id)
	}
	return nil
}

func (v *Validator) boundedText(field, table, column, value string, kind error, allowBlank bool) error {
	if !allowBlank && strings.TrimSpace(value) == "" {
		return invalid(field, kind, "must not be blank")
	}
	max, err := v.maxLen(table, column)
	if err != nil {
		return err
	}
	if max > 0 && len(value) > max {
		return invalid(field, ErrInvalidLength, "%d characters exceeds column maximum %d", len(value), max)
	}
	return nil
}

// Name checks a non-blank, length-bounded name column.
func (v *Validator) Name(field, table, column, value string) error {
	return v.boundedText(field, table, column, value, ErrInvalidName, false)
}

// Title checks a non-blank, length-bounded title column.
func (v *Validator) Title(field, table, column, value string) error {
	return v.boundedText(field, table, column, value, ErrInvalidTitle, false)
}

// Username checks a non-blank, length-bounded username column.
func (v *Validator) Username(field, table, column, value string) error {
	return v.boundedText(field, table, column, value, ErrInvalidUsername, false)
}

// Text checks a length-bounded column that may be blank.
func (v *Validator) Text(field, table, column, value string) error {
	return v.boundedText(field, table, column, value, ErrInvalidLength, true)
}

// NotFuture requires a set timestamp no later than now. Both sides are
// truncated to second resolution so the comparison is stable.
func (v *Validator) NotFuture(field string, ts time.Time) error {
	if ts.IsZero() {
		return invalid(field, ErrInvalidDate, "must be set")
	}
	now := time.Now().Truncate(time.Second)
	if ts.Truncate(time.Second).After(now) {
		return invalid(field, ErrInvalidDate, "%s is in the future", ts.Format(time.RFC3339))
	}
	return nil
}

// After requires ts strictly after floor (due date after rental date).
func (v *Validator) After(field string, ts, floor time.Time) error {
	if ts.IsZero() {
		return invalid(field, ErrInvalidDate, "must be set")
	}
	if !ts.After(floor) {
		return invalid(field, ErrInvalidDate, "%s is not after %s",
			ts.Format(time.RFC3339), floor.Format(time.RFC3339))
	}
	return nil
}

// NotBefore requires ts at or after floor (return date vs rental date).
func (v *Validator) NotBefore(field string, ts, floor time.Time) error {
	if ts.IsZero() {
		return invalid(field, ErrInvalidDate, "must be set")
	}
	if ts.Before(floor) {
		return invalid(field, ErrInvalidDate, "%s precedes %s",
			ts.Format(time.RFC3339), floor.Format(time.RFC3339))
	}
	return nil
}

// Fee requires a non-negative monetary amount.
func (v *Validator) Fee(field string, fee float64) error {
	if fee < 0 {
		return invalid(field, ErrInvalidLateFee, "%.2f is negative", fee)
	}
	return nil
}

// RentalCounts checks the cross-field invariant
// 0 <= currentRentals <= allowedRentals.
func (v *Validator) RentalCounts(current, allowed int) error {
	if current < 0 || allowed < 0 {
		return invalid("currentRentals", ErrInvalidRentalCount,
			"counts must not be negative (current %d, allowed %d)", current, allowed)
	}
	if current > allowed {
		return invalid("currentRentals", ErrInvalidRentalCount,
			"current %d exceeds allowed %d", current, allowed)
	}
	return nil
}
