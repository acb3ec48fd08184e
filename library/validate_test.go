package library

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatorIDs(t *testing.T) {
	v := NewValidator(testMeta())

	assert.NoError(t, v.PersistedID("id", 1))
	assert.ErrorIs(t, v.PersistedID("id", 0), ErrInvalidID)
	assert.ErrorIs(t, v.PersistedID("id", -3), ErrInvalidID)

	assert.NoError(t, v.EntityID("id", 0))
	assert.NoError(t, v.EntityID("id", 7))
	assert.ErrorIs(t, v.EntityID("id", -1), ErrInvalidID)
}

func TestValidatorTextKinds(t *testing.T) {
	v := NewValidator(testMeta())

	assert.ErrorIs(t, v.Name("firstName", TableAuthors, "first_name", ""), ErrInvalidName)
	assert.ErrorIs(t, v.Name("firstName", TableAuthors, "first_name", "   "), ErrInvalidName)
	assert.ErrorIs(t, v.Title("title", TableItems, "title", ""), ErrInvalidTitle)
	assert.ErrorIs(t, v.Username("username", TableUsers, "username", ""), ErrInvalidUsername)

	// Blank is fine for Text, length still is not.
	assert.NoError(t, v.Text("biography", TableAuthors, "biography", ""))
	long := strings.Repeat("x", 501)
	assert.ErrorIs(t, v.Text("biography", TableAuthors, "biography", long), ErrInvalidLength)
}

func TestValidatorLengthFromMetadata(t *testing.T) {
	v := NewValidator(testMeta())

	// 40 is the username limit the metadata provider reports.
	assert.NoError(t, v.Username("username", TableUsers, "username", strings.Repeat("a", 40)))
	err := v.Username("username", TableUsers, "username", strings.Repeat("a", 41))
	assert.ErrorIs(t, err, ErrInvalidLength)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "username", verr.Field)
}

func TestValidatorMetadataCached(t *testing.T) {
	calls := 0
	meta := countingMeta{limits: testMeta(), calls: &calls}
	v := NewValidator(meta)

	for i := 0; i < 5; i++ {
		require.NoError(t, v.Username("username", TableUsers, "username", "alice"))
	}
	assert.Equal(t, 1, calls, "limit should be fetched once and cached")
}

type countingMeta struct {
	limits fixedMeta
	calls  *int
}

func (c countingMeta) MaxLength(table, column string) (int, error) {
	*c.calls++
	return c.limits.MaxLength(table, column)
}

func TestValidatorDates(t *testing.T) {
	v := NewValidator(testMeta())
	now := time.Now().Truncate(time.Second)

	assert.NoError(t, v.NotFuture("rentalDate", now))
	assert.NoError(t, v.NotFuture("rentalDate", now.Add(-time.Hour)))
	assert.ErrorIs(t, v.NotFuture("rentalDate", now.Add(time.Minute)), ErrInvalidDate)
	assert.ErrorIs(t, v.NotFuture("rentalDate", time.Time{}), ErrInvalidDate)

	assert.NoError(t, v.After("due", now.Add(time.Hour), now))
	assert.ErrorIs(t, v.After("due", now, now), ErrInvalidDate)

	assert.NoError(t, v.NotBefore("return", now, now))
	assert.ErrorIs(t, v.NotBefore("return", now.Add(-time.Second), now), ErrInvalidDate)
}

func TestValidatorFeeAndCounts(t *testing.T) {
	v := NewValidator(testMeta())

	assert.NoError(t, v.Fee("lateFee", 0))
	assert.NoError(t, v.Fee("lateFee", 2.50))
	assert.ErrorIs(t, v.Fee("lateFee", -0.01), ErrInvalidLateFee)

	assert.NoError(t, v.RentalCounts(0, 0))
	assert.NoError(t, v.RentalCounts(3, 3))
	assert.ErrorIs(t, v.RentalCounts(4, 3), ErrInvalidRentalCount)
	assert.ErrorIs(t, v.RentalCounts(-1, 3), ErrInvalidRentalCount)
	assert.ErrorIs(t, v.RentalCounts(0, -1), ErrInvalidRentalCount)
}
