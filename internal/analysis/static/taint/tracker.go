// Package taint tracks which local names hold values derived from an HTTP
// request during one forward pass over one unit.
//
// The scope is flat: a name declared anywhere in the unit is the same name
// everywhere. Registration is order dependent, so a use that precedes the
// tainting declaration does not see the taint unless the unit was pre-scanned.
package taint

import (
	"github.com/xkilldash9x/typesentry/internal/analysis/static/classify"
	"github.com/xkilldash9x/typesentry/internal/analysis/static/estree"
	"github.com/xkilldash9x/typesentry/internal/analysis/static/typesys"
)

// Tag is the taint state of a name.
type Tag int

const (
	Untainted Tag = iota
	FromRequest
)

func (t Tag) String() string {
	if t == FromRequest {
		return "from-request"
	}
	return "untainted"
}

// Tracker is the per-unit taint state. It is not safe for concurrent use;
// every unit gets its own instance.
type Tracker struct {
	oracle typesys.Oracle
	tags   map[string]Tag
	// loaded holds names that already appeared in an unsafe module load.
	loaded map[string]bool
}

// NewTracker creates an empty tracker that resolves types through oracle.
func NewTracker(oracle typesys.Oracle) *Tracker {
	return &Tracker{
		oracle: oracle,
		tags:   make(map[string]Tag),
		loaded: make(map[string]bool),
	}
}

// Tag returns the current tag of name.
func (t *Tracker) Tag(name string) Tag {
	return t.tags[name]
}

// Mark records tag for name. Marking an already tracked name re-asserts it.
func (t *Tracker) Mark(name string, tag Tag) {
	if tag == Untainted {
		return
	}
	t.tags[name] = tag
}

// Len returns the number of tainted names.
func (t *Tracker) Len() int { return len(t.tags) }

// Observe registers the declared name of decl as request derived when its
// initializer reads a property of a request object. It reports whether the
// name was tagged.
func (t *Tracker) Observe(decl *estree.VariableDeclarator) bool {
	if decl == nil {
		return false
	}
	id, ok := decl.ID.(*estree.Identifier)
	if !ok {
		return false
	}
	if !t.IsRequestAccess(decl.Init) {
		return false
	}
	t.Mark(id.Name, FromRequest)
	return true
}

// IsRequestAccess reports whether expr is a property access whose receiver
// chain reaches a value typed as a web framework request, such as req.body
// or req.params.id.
func (t *Tracker) IsRequestAccess(expr estree.Node) bool {
	m, ok := expr.(*estree.MemberExpression)
	if !ok || t.oracle == nil {
		return false
	}
	for cur := m.Object; cur != nil; {
		if ty, ok := t.oracle.TypeOf(cur); ok && classify.AnyOf(ty, classify.IsWebRequestObject) {
			return true
		}
		inner, ok := cur.(*estree.MemberExpression)
		if !ok {
			return false
		}
		cur = inner.Object
	}
	return false
}

// ReadsRequest reports whether expr is, or decomposes to, a direct request
// property access.
func (t *Tracker) ReadsRequest(expr estree.Node) bool {
	for leaf := range Operands(expr) {
		if t.IsRequestAccess(leaf) {
			return true
		}
	}
	return false
}

// IsRequestDerived reports whether expr is, or decomposes to, a direct
// request property access or an identifier tagged FromRequest.
func (t *Tracker) IsRequestDerived(expr estree.Node) bool {
	if t.ReadsRequest(expr) {
		return true
	}
	for id := range Identifiers(expr) {
		if t.Tag(id.Name) == FromRequest {
			return true
		}
	}
	return false
}

// NoteLoaded registers every identifier in expr as used by an unsafe module
// load. It reports whether any of them had already been registered.
func (t *Tracker) NoteLoaded(expr estree.Node) bool {
	reused := false
	for id := range Identifiers(expr) {
		if t.loaded[id.Name] {
			reused = true
		}
		t.loaded[id.Name] = true
	}
	return reused
}
