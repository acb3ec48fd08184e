package library

import (
	"errors"
	"fmt"
	"strings"
)

// UserType is the account role.
type UserType string

const (
	UserPatron UserType = "patron"
	UserAdmin  UserType = "admin"
)

// User is a library account. The password is stored only as an opaque hash.
// Whether the user may take out another rental is always derived (see
// AllowedToRent), never stored.
type User struct {
	id             int
	username       string
	passwordHash   string
	userType       UserType
	allowedRentals int
	currentRentals int
	lateFee        float64
	deleted        bool

	v *Validator
}

// NewUser builds an unpersisted user with no rentals and no outstanding fee.
func NewUser(v *Validator, username, passwordHash string, userType UserType, allowedRentals int) (*User, error) {
	u := &User{v: v}
	if err := u.SetUsername(username); err != nil {
		return nil, err
	}
	if err := u.SetPasswordHash(passwordHash); err != nil {
		return nil, err
	}
	if err := u.SetType(userType); err != nil {
		return nil, err
	}
	if err := v.RentalCounts(0, allowedRentals); err != nil {
		return nil, err
	}
	u.allowedRentals = allowedRentals
	return u, nil
}

func (u *User) ID() int              { return u.id }
func (u *User) Username() string     { return u.username }
func (u *User) PasswordHash() string { return u.passwordHash }
func (u *User) Type() UserType       { return u.userType }
func (u *User) AllowedRentals() int  { return u.allowedRentals }
func (u *User) CurrentRentals() int  { return u.currentRentals }
func (u *User) LateFee() float64     { return u.lateFee }
func (u *User) Deleted() bool        { return u.deleted }

// AllowedToRent derives whether the user may take out another rental. It is
// false as soon as a fee is outstanding, the rental allowance is used up, or
// the user is deleted.
func (u *User) AllowedToRent() bool {
	return !u.deleted && u.lateFee == 0 && u.currentRentals < u.allowedRentals
}

func (u *User) SetUsername(s string) error {
	if err := u.v.Username("username", TableUsers, "username", s); err != nil {
		return err
	}
	u.username = s
	return nil
}

func (u *User) SetPasswordHash(s string) error {
	if strings.TrimSpace(s) == "" {
		return &ValidationError{Field: "password", Err: errors.New("must not be blank")}
	}
	u.passwordHash = s
	return nil
}

func (u *User) SetType(t UserType) error {
	if t != UserPatron && t != UserAdmin {
		return &ValidationError{Field: "userType", Err: fmt.Errorf("unknown user type %q", t)}
	}
	u.userType = t
	return nil
}

func (u *User) SetAllowedRentals(n int) error {
	if err := u.v.RentalCounts(u.currentRentals, n); err != nil {
		return err
	}
	u.allowedRentals = n
	return nil
}

func (u *User) SetCurrentRentals(n int) error {
	if err := u.v.RentalCounts(n, u.allowedRentals); err != nil {
		return err
	}
	u.currentRentals = n
	return nil
}

func (u *User) SetLateFee(fee float64) error {
	if err := u.v.Fee("lateFee", fee); err != nil {
		return err
	}
	u.lateFee = fee
	return nil
}

func (u *User) validate() error {
	if err := u.v.EntityID("id", u.id); err != nil {
		return err
	}
	if err := u.v.Username("username", TableUsers, "username", u.username); err != nil {
		return err
	}
	if strings.TrimSpace(u.passwordHash) == "" {
		return &ValidationError{Field: "password", Err: errors.New("must not be blank")}
	}
	if u.userType != UserPatron && u.userType != UserAdmin {
		return &ValidationError{Field: "userType", Err: fmt.Errorf("unknown user type %q", u.userType)}
	}
	if err := u.v.RentalCounts(u.currentRentals, u.allowedRentals); err != nil {
		return err
	}
	return u.v.Fee("lateFee", u.lateFee)
}

func (u *User) fields() Row {
	return Row{
		"username":        u.username,
		"password_hash":   u.passwordHash,
		"user_type":       string(u.userType),
		"allowed_rentals": u.allowedRentals,
		"current_rentals": u.currentRentals,
		"late_fee":        u.lateFee,
		"deleted":         u.deleted,
	}
}

func decodeUser(v *Validator, r Row) (*User, error) {
	u := &User{
		v:              v,
		id:             r.Int("id"),
		username:       r.Str("username"),
		passwordHash:   r.Str("password_hash"),
		userType:       UserType(r.Str("user_type")),
		allowedRentals: r.Int("allowed_rentals"),
		currentRentals: r.Int("current_rentals"),
		lateFee:        r.Float("late_fee"),
		deleted:        r.Bool("deleted"),
	}
	if err := u.validate(); err != nil {
		return nil, err
	}
	return u, nil
}
