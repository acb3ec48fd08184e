package library

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRental(t *testing.T, cfg Config, rentalDate time.Time) *Rental {
	t.Helper()
	r, err := NewRental(NewValidator(testMeta()), cfg, 1, 1, rentalDate)
	require.NoError(t, err)
	return r
}

func TestNewRentalDerivesDueDate(t *testing.T) {
	cfg := DefaultConfig()
	rentalDate := time.Now().Add(-time.Hour)
	r := testRental(t, cfg, rentalDate)

	assert.Equal(t, 0, r.ID(), "fresh rental must be unpersisted")
	assert.True(t, r.Active())
	assert.True(t, r.ReturnDate().IsZero())

	want := rentalDate.Truncate(time.Second).AddDate(0, 0, cfg.DueDateOffsetDays)
	assert.Equal(t, want.Year(), r.DueDate().Year())
	assert.Equal(t, want.YearDay(), r.DueDate().YearDay())
	assert.Equal(t, cfg.DueDateHour, r.DueDate().Hour())
	assert.Equal(t, 0, r.DueDate().Minute())
	assert.Equal(t, 0, r.DueDate().Second())
}

func TestNewRentalDefaultsToNow(t *testing.T) {
	before := time.Now().Truncate(time.Second)
	r := testRental(t, DefaultConfig(), time.Time{})
	after := time.Now().Truncate(time.Second)

	assert.False(t, r.RentalDate().Before(before))
	assert.False(t, r.RentalDate().After(after))
	assert.Equal(t, 0, r.RentalDate().Nanosecond(), "rental date is second-truncated")
}

func TestNewRentalRejectsBadInput(t *testing.T) {
	v := NewValidator(testMeta())
	cfg := DefaultConfig()

	_, err := NewRental(v, cfg, 0, 1, time.Time{})
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = NewRental(v, cfg, 1, -2, time.Time{})
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = NewRental(v, cfg, 1, 1, time.Now().Add(time.Minute))
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestMarkReturned(t *testing.T) {
	r := testRental(t, DefaultConfig(), time.Now().Add(-time.Hour))

	// A return before the rental date is rejected.
	err := r.MarkReturned(r.RentalDate().Add(-time.Second))
	assert.ErrorIs(t, err, ErrInvalidDate)
	assert.True(t, r.Active())

	// Returning at the rental date itself is fine and owes nothing.
	require.NoError(t, r.MarkReturned(r.RentalDate()))
	assert.False(t, r.Active())
	assert.Equal(t, 0.0, r.LateFee(time.Now().AddDate(0, 0, 30)))

	// A second return is illegal.
	err = r.MarkReturned(time.Now())
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestLateFeeDerivation(t *testing.T) {
	cfg := DefaultConfig()
	r := testRental(t, cfg, time.Now().Add(-time.Hour))
	due := r.DueDate()

	assert.Equal(t, 0.0, r.LateFee(due), "no fee at the due instant")
	assert.Equal(t, cfg.LateFeePerDay, r.LateFee(due.Add(time.Second)), "a started day counts")
	assert.Equal(t, 3*cfg.LateFeePerDay, r.LateFee(due.Add(49*time.Hour)))

	// Idempotent: same asOf, same fee.
	asOf := due.Add(30 * time.Hour)
	assert.Equal(t, r.LateFee(asOf), r.LateFee(asOf))

	// Monotonically non-decreasing while active.
	prev := 0.0
	for h := 0; h < 24*10; h += 7 {
		fee := r.LateFee(due.Add(time.Duration(h) * time.Hour))
		assert.GreaterOrEqual(t, fee, prev)
		prev = fee
	}
}

func TestLateFeeFrozenAfterReturn(t *testing.T) {
	cfg := DefaultConfig()

	// An old rental date puts the derived due date in the past, so the
	// rental is overdue by the time it is returned.
	old := time.Now().AddDate(0, 0, -(cfg.DueDateOffsetDays + 3))
	r := testRental(t, cfg, old)
	require.True(t, r.Overdue(time.Now()))

	returnDate := time.Now().Truncate(time.Second)
	frozen := r.LateFee(returnDate)
	require.Greater(t, frozen, 0.0)
	require.NoError(t, r.MarkReturned(returnDate))

	assert.Equal(t, frozen, r.LateFee(returnDate))
	assert.Equal(t, frozen, r.LateFee(returnDate.AddDate(0, 0, 30)), "fee stays frozen after return")
	assert.False(t, r.Overdue(time.Now().AddDate(0, 0, 30)))
}

func TestSetDueDate(t *testing.T) {
	cfg := DefaultConfig()
	r := testRental(t, cfg, time.Now().Add(-time.Hour))

	err := r.SetDueDate(time.Now().Add(-time.Second))
	assert.ErrorIs(t, err, ErrInvalidDate)

	newDue := time.Now().AddDate(0, 0, 1)
	require.NoError(t, r.SetDueDate(newDue))
	assert.Equal(t, cfg.DueDateHour, r.DueDate().Hour(), "due date normalizes to the configured hour")
	assert.Equal(t, 0, r.DueDate().Minute())
	assert.Equal(t, newDue.YearDay(), r.DueDate().YearDay())
}

func TestSetDueDateValidatesPinnedResult(t *testing.T) {
	cfg := DefaultConfig()
	// Pinning to hour 0 drags any same-day candidate back to a midnight
	// that already lies in the past.
	cfg.DueDateHour = 0
	r := testRental(t, cfg, time.Now().Add(-time.Hour))
	before := r.DueDate()

	// Raw candidate in the future, pinned result in the past: rejected,
	// except in the sliver where now+1m is already the next day.
	err := r.SetDueDate(time.Now().Add(time.Minute))
	if err != nil {
		assert.ErrorIs(t, err, ErrInvalidDate)
		assert.True(t, before.Equal(r.DueDate()), "a rejected candidate must not stick")
	}
	require.NoError(t, r.validate(), "SetDueDate must never leave the rental invalid")
	assert.True(t, r.DueDate().After(r.RentalDate()))
}

func TestRentalSoftDeleteKeepsHistory(t *testing.T) {
	env := newTestEnv()
	_, _, err := env.seedRentable()
	require.NoError(t, err)

	r, err := env.rentals.Create(1, 1, time.Time{})
	require.NoError(t, err)

	require.NoError(t, env.rentals.Delete(r.ID()))
	deleted, err := env.rentals.GetByID(r.ID(), true)
	require.NoError(t, err)
	assert.True(t, deleted.Deleted())
	assert.True(t, r.RentalDate().Equal(deleted.RentalDate()), "soft delete must not touch the rental date")
	assert.Equal(t, r.UserID(), deleted.UserID())

	require.NoError(t, env.rentals.UndoDelete(r.ID()))
	restored, err := env.rentals.GetByID(r.ID(), false)
	require.NoError(t, err)
	assert.False(t, restored.Deleted())
}
