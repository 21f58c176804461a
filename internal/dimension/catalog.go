// Package dimension maintains the catalog of named axes used to shape metric
// tensors. A dimension is an ordered list of member labels; its position in a
// metric's declared dimension list determines the corresponding tensor axis.
package dimension

import (
	"fmt"
)

// Dimension is a single named axis with ordered members. Member order is
// stable for the lifetime of the definition; lookups go through the
// member→index map rather than scanning.
type Dimension struct {
	Name    string
	Members []string
	index   map[string]int
}

// Size returns the number of members on the axis.
func (d *Dimension) Size() int {
	return len(d.Members)
}

// Index resolves a member label to its position on the axis.
func (d *Dimension) Index(member string) (int, bool) {
	i, ok := d.index[member]
	return i, ok
}

// Catalog is the set of all defined dimensions for one model instance.
type Catalog struct {
	dims map[string]*Dimension
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{dims: make(map[string]*Dimension)}
}

// Define registers a dimension, replacing any previous definition of the same
// name. It returns true if the name was already defined, so callers can react
// to a redefinition (tensors shaped by the old definition must be rebuilt).
func (c *Catalog) Define(name string, members []string) (redefined bool, err error) {
	if name == "" {
		return false, fmt.Errorf("dimension name must not be empty")
	}
	if len(members) == 0 {
		return false, fmt.Errorf("dimension %q must have at least one member", name)
	}
	index := make(map[string]int, len(members))
	for i, m := range members {
		if _, dup := index[m]; dup {
			return false, fmt.Errorf("dimension %q has duplicate member %q", name, m)
		}
		index[m] = i
	}
	_, redefined = c.dims[name]
	c.dims[name] = &Dimension{
		Name:    name,
		Members: append([]string(nil), members...),
		index:   index,
	}
	return redefined, nil
}

// Get returns the dimension with the given name.
func (c *Catalog) Get(name string) (*Dimension, bool) {
	d, ok := c.dims[name]
	return d, ok
}

// Size returns the member count of a named dimension, or 1 for a dimension
// that has not been defined yet. Unknown dimensions contribute a unit axis so
// placeholder metrics remain addressable until their axes are defined.
func (c *Catalog) Size(name string) int {
	if d, ok := c.dims[name]; ok {
		return d.Size()
	}
	return 1
}

// Names returns all defined dimension names in no particular order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.dims))
	for name := range c.dims {
		names = append(names, name)
	}
	return names
}
