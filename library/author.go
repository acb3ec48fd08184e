package library

// Author is a contributor record. Fields are unexported so an Author can
// only exist in a validated state: construction goes through NewAuthor and
// every mutation re-validates.
type Author struct {
	id        int
	firstName string
	lastName  string
	biography string
	deleted   bool

	v *Validator
}

// NewAuthor builds an unpersisted (id 0) author, failing fast on any
// invalid field.
func NewAuthor(v *Validator, firstName, lastName, biography string) (*Author, error) {
	a := &Author{v: v}
	if err := a.SetFirstName(firstName); err != nil {
		return nil, err
	}
	if err := a.SetLastName(lastName); err != nil {
		return nil, err
	}
	if err := a.SetBiography(biography); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Author) ID() int           { return a.id }
func (a *Author) FirstName() string { return a.firstName }
func (a *Author) LastName() string  { return a.lastName }
func (a *Author) Biography() string { return a.biography }
func (a *Author) Deleted() bool     { return a.deleted }

func (a *Author) SetFirstName(s string) error {
	if err := a.v.Name("firstName", TableAuthors, "first_name", s); err != nil {
		return err
	}
	a.firstName = s
	return nil
}

func (a *Author) SetLastName(s string) error {
	if err := a.v.Name("lastName", TableAuthors, "last_name", s); err != nil {
		return err
	}
	a.lastName = s
	return nil
}

// SetBiography accepts a blank biography but enforces the column bound.
func (a *Author) SetBiography(s string) error {
	if err := a.v.Text("biography", TableAuthors, "biography", s); err != nil {
		return err
	}
	a.biography = s
	return nil
}

func (a *Author) validate() error {
	if err := a.v.EntityID("id", a.id); err != nil {
		return err
	}
	if err := a.v.Name("firstName", TableAuthors, "first_name", a.firstName); err != nil {
		return err
	}
	if err := a.v.Name("lastName", TableAuthors, "last_name", a.lastName); err != nil {
		return err
	}
	return a.v.Text("biography", TableAuthors, "biography", a.biography)
}

func (a *Author) fields() Row {
	return Row{
		"first_name": a.firstName,
		"last_name":  a.lastName,
		"biography":  a.biography,
		"deleted":    a.deleted,
	}
}

func decodeAuthor(v *Validator, r Row) (*Author, error) {
	a, err := NewAuthor(v, r.Str("first_name"), r.Str("last_name"), r.Str("biography"))
	if err != nil {
		return nil, err
	}
	a.id = r.Int("id")
	a.deleted = r.Bool("deleted")
	return a, nil
}
