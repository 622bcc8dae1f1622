package store

// Relationship describes a child kind that points at a parent kind through a
// reference attribute, looked up in reverse through a GSI.
type Relationship struct {
	// ParentKind is the referenced entity kind (e.g. "boat").
	ParentKind string

	// ChildKind is the referencing entity kind (e.g. "load").
	ChildKind string

	// ChildIndex is the GSI on the child table keyed by ReferenceAttr.
	ChildIndex string

	// ReferenceAttr is the child attribute holding the parent id (e.g. "carrier").
	ReferenceAttr string
}

// ReverseQuery returns the query that finds children referencing parentID.
func (r Relationship) ReverseQuery(parentID any) Query {
	return Query{
		Kind:      r.ChildKind,
		IndexName: r.ChildIndex,
		Attr:      r.ReferenceAttr,
		Value:     parentID,
	}
}

// Registry holds all known entity relationships for reference cleanup.
type Registry struct {
	relationships []Relationship
	byParent      map[string][]Relationship
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		relationships: []Relationship{},
		byParent:      make(map[string][]Relationship),
	}
}

// Register adds a relationship to the registry.
func (r *Registry) Register(rel Relationship) {
	r.relationships = append(r.relationships, rel)
	r.byParent[rel.ParentKind] = append(r.byParent[rel.ParentKind], rel)
}

// ChildrenOf returns all child relationships for a given parent kind.
func (r *Registry) ChildrenOf(parentKind string) []Relationship {
	return r.byParent[parentKind]
}

// AllRelationships returns all registered relationships.
func (r *Registry) AllRelationships() []Relationship {
	return r.relationships
}

// HasChildren returns true if the parent kind has any registered child relationships.
func (r *Registry) HasChildren(parentKind string) bool {
	return len(r.byParent[parentKind]) > 0
}
