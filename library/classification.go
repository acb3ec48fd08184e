package library

// Classification is a catalog category (e.g. fiction, reference).
type Classification struct {
	id          int
	name        string
	description string
	deleted     bool

	v *Validator
}

func NewClassification(v *Validator, name, description string) (*Classification, error) {
	c := &Classification{v: v}
	if err := c.SetName(name); err != nil {
		return nil, err
	}
	if err := c.SetDescription(description); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Classification) ID() int             { return c.id }
func (c *Classification) Name() string        { return c.name }
func (c *Classification) Description() string { return c.description }
func (c *Classification) Deleted() bool       { return c.deleted }

func (c *Classification) SetName(s string) error {
	if err := c.v.Name("name", TableClassifications, "name", s); err != nil {
		return err
	}
	c.name = s
	return nil
}

func (c *Classification) SetDescription(s string) error {
	if err := c.v.Name("description", TableClassifications, "description", s); err != nil {
		return err
	}
	c.description = s
	return nil
}

func (c *Classification) validate() error {
	if err := c.v.EntityID("id", c.id); err != nil {
		return err
	}
	if err := c.v.Name("name", TableClassifications, "name", c.name); err != nil {
		return err
	}
	return c.v.Name("description", TableClassifications, "description", c.description)
}

func (c *Classification) fields() Row {
	return Row{
		"name":        c.name,
		"description": c.description,
		"deleted":     c.deleted,
	}
}

func decodeClassification(v *Validator, r Row) (*Classification, error) {
	c, err := NewClassification(v, r.Str("name"), r.Str("description"))
	if err != nil {
		return nil, err
	}
	c.id = r.Int("id")
	c.deleted = r.Bool("deleted")
	return c, nil
}
