package rbac

// Descriptor describes one entry of the fixed permission catalog.
type Descriptor struct {
	Resource    string
	Action      string
	Description string
}

// Code returns the legacy string encoding of the descriptor.
func (d Descriptor) Code() string {
	return Permission{Resource: d.Resource, Action: d.Action}.Code()
}

// Catalog enumerates the closed set of (resource, action) pairs the system
// understands. It is a pure lookup table used at seed time; the persisted
// permissions table is the live source of truth.
type Catalog struct {
	entries []Descriptor
	index   map[string]int
}

// NewCatalog builds a catalog from an explicit descriptor table.
func NewCatalog(entries []Descriptor) *Catalog {
	index := make(map[string]int, len(entries))
	for i, d := range entries {
		index[d.Resource+":"+d.Action] = i
	}
	return &Catalog{entries: entries, index: index}
}

// DefaultCatalog returns the built-in descriptor table.
func DefaultCatalog() *Catalog {
	return NewCatalog([]Descriptor{
		{Resource: SuperResource, Action: WildcardAction, Description: "Global super access"},

		{Resource: "user", Action: "read", Description: "View user accounts"},
		{Resource: "user", Action: "write", Description: "Create and modify user accounts"},
		{Resource: "user", Action: "delete", Description: "Delete user accounts"},
		{Resource: "user", Action: WildcardAction, Description: "All user management actions"},

		{Resource: "role", Action: "read", Description: "View roles and their grants"},
		{Resource: "role", Action: "write", Description: "Create and modify roles"},
		{Resource: "role", Action: "delete", Description: "Delete roles"},
		{Resource: "role", Action: WildcardAction, Description: "All role management actions"},
	})
}

// Resolve maps a (resource, action) pair to its descriptor.
func (c *Catalog) Resolve(resource, action string) (Descriptor, bool) {
	i, ok := c.index[resource+":"+action]
	if !ok {
		return Descriptor{}, false
	}
	return c.entries[i], true
}

// All returns the complete catalog in declaration order.
func (c *Catalog) All() []Descriptor {
	out := make([]Descriptor, len(c.entries))
	copy(out, c.entries)
	return out
}
