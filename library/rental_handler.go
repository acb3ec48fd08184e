package library

import (
	"fmt"
	"time"
)

// RentalHandler coordinates the rental lifecycle against storage. Creating
// a rental resolves the referenced user and item, snapshots their
// username/title, persists the rental, and updates item availability and
// the user's rental count. Returning reverses those side effects and
// applies the frozen late fee to the user's account.
type RentalHandler struct {
	h     handler[*Rental]
	v     *Validator
	cfg   Config
	users *UserHandler
	items *ItemHandler

	// Orchestration locks held across the whole get-mutate-update sequence
	// of Create/Return, keyed per entity id. Separate from the per-operation
	// locks inside the handlers, which are acquired strictly after these.
	rentalLocks idLocks
	userLocks   idLocks
	itemLocks   idLocks
}

func NewRentalHandler(repo Repository, v *Validator, cfg Config, users *UserHandler, items *ItemHandler) *RentalHandler {
	return &RentalHandler{
		v:     v,
		cfg:   cfg,
		users: users,
		items: items,
		h: handler[*Rental]{
			repo:   repo,
			table:  TableRentals,
			encode: (*Rental).fields,
			decode: func(r Row) (*Rental, error) { return decodeRental(v, cfg, r) },
			check:  (*Rental).validate,
			id:     (*Rental).ID,
			setID:  func(r *Rental, id int) { r.id = id },
		},
	}
}

// Create takes out a rental. A zero rentalDate means "now". The user must
// exist, be allowed to rent, and the item must exist and be available. If a
// follow-up write fails the already-inserted rental is removed again, so an
// error never leaves a half-applied rental behind.
func (rh *RentalHandler) Create(userID, itemID int, rentalDate time.Time) (*Rental, error) {
	r, err := NewRental(rh.v, rh.cfg, userID, itemID, rentalDate)
	if err != nil {
		return nil, err
	}

	unlockUser := rh.userLocks.lock(userID)
	defer unlockUser()
	unlockItem := rh.itemLocks.lock(itemID)
	defer unlockItem()

	u, err := rh.users.GetByID(userID, false)
	if err != nil {
		return nil, err
	}
	if !u.AllowedToRent() {
		return nil, invalid("userID", ErrInvalidRentalCount,
			"user %q may not rent (fee %.2f, rentals %d/%d)",
			u.Username(), u.LateFee(), u.CurrentRentals(), u.AllowedRentals())
	}

	it, err := rh.items.GetByID(itemID, false)
	if err != nil {
		return nil, err
	}
	if !it.Available() {
		return nil, &ValidationError{Field: "itemID", Err: fmt.Errorf("item %q is not available", it.Title())}
	}

	if err := r.setSnapshots(u.Username(), it.Title()); err != nil {
		return nil, err
	}
	created, err := rh.h.create(r)
	if err != nil {
		return nil, err
	}

	it.SetAvailable(false)
	if err := rh.items.Update(it); err != nil {
		rh.h.hardDelete(created.ID())
		return nil, err
	}
	if err := u.SetCurrentRentals(u.CurrentRentals() + 1); err != nil {
		rh.rollbackCreate(created, it)
		return nil, err
	}
	if err := rh.users.Update(u); err != nil {
		rh.rollbackCreate(created, it)
		return nil, err
	}
	return created, nil
}

func (rh *RentalHandler) rollbackCreate(r *Rental, it *Item) {
	it.SetAvailable(true)
	rh.items.Update(it)
	rh.h.hardDelete(r.ID())
}

// Return records the return of an active rental, makes the item available
// again, and moves the frozen late fee plus the freed rental slot onto the
// user's account. A zero returnDate means "now". If a follow-up write fails
// the recorded return is reversed, so an error never leaves a half-applied
// return behind.
func (rh *RentalHandler) Return(rentalID int, returnDate time.Time) (*Rental, error) {
	unlockRental := rh.rentalLocks.lock(rentalID)
	defer unlockRental()

	r, err := rh.h.getByID(rentalID, false)
	if err != nil {
		return nil, err
	}

	unlockUser := rh.userLocks.lock(r.UserID())
	defer unlockUser()
	unlockItem := rh.itemLocks.lock(r.ItemID())
	defer unlockItem()

	if err := r.MarkReturned(returnDate); err != nil {
		return nil, err
	}
	if err := rh.h.update(r); err != nil {
		return nil, err
	}

	it, err := rh.items.GetByID(r.ItemID(), true)
	if err != nil {
		rh.rollbackReturn(r, nil)
		return nil, err
	}
	it.SetAvailable(true)
	if err := rh.items.Update(it); err != nil {
		rh.rollbackReturn(r, nil)
		return nil, err
	}

	u, err := rh.users.GetByID(r.UserID(), true)
	if err != nil {
		rh.rollbackReturn(r, it)
		return nil, err
	}
	if u.CurrentRentals() > 0 {
		if err := u.SetCurrentRentals(u.CurrentRentals() - 1); err != nil {
			rh.rollbackReturn(r, it)
			return nil, err
		}
	}
	if fee := r.LateFee(time.Now()); fee > 0 {
		if err := u.SetLateFee(u.LateFee() + fee); err != nil {
			rh.rollbackReturn(r, it)
			return nil, err
		}
	}
	if err := rh.users.Update(u); err != nil {
		rh.rollbackReturn(r, it)
		return nil, err
	}
	return r, nil
}

// rollbackReturn reverses a half-applied return: the item goes back to
// unavailable when its availability was already flipped, and the rental is
// reopened so the fee and the rental slot stay pending.
func (rh *RentalHandler) rollbackReturn(r *Rental, it *Item) {
	if it != nil {
		it.SetAvailable(false)
		rh.items.Update(it)
	}
	r.reopen()
	rh.h.update(r)
}

func (rh *RentalHandler) GetByID(id int, includeDeleted bool) (*Rental, error) {
	return rh.h.getByID(id, includeDeleted)
}

func (rh *RentalHandler) List(includeDeleted bool) ([]*Rental, error) {
	return rh.h.list(includeDeleted)
}

// ListOverdue returns the active, non-deleted rentals past due as of asOf.
func (rh *RentalHandler) ListOverdue(asOf time.Time) ([]*Rental, error) {
	rentals, err := rh.h.list(false)
	if err != nil {
		return nil, err
	}
	overdue := rentals[:0]
	for _, r := range rentals {
		if r.Overdue(asOf) {
			overdue = append(overdue, r)
		}
	}
	return overdue, nil
}

func (rh *RentalHandler) Update(r *Rental) error { return rh.h.update(r) }

func (rh *RentalHandler) Delete(id int) error { return rh.h.softDelete(id, true) }

func (rh *RentalHandler) UndoDelete(id int) error { return rh.h.softDelete(id, false) }

func (rh *RentalHandler) HardDelete(id int) error { return rh.h.hardDelete(id) }
