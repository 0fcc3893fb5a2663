package typesys

import (
	"sync"

	"github.com/xkilldash9x/typesentry/internal/analysis/static/estree"
)

// Oracle answers type queries for expression nodes. A missing answer is not
// an error: callers treat it as "no information" and do not fire.
type Oracle interface {
	TypeOf(node estree.Node) (Type, bool)
}

// Annotations is an Oracle backed by a node-to-type map. Front ends populate
// it while building the tree.
type Annotations struct {
	mu    sync.RWMutex
	types map[estree.Node]Type
}

// NewAnnotations creates an empty annotation table.
func NewAnnotations() *Annotations {
	return &Annotations{types: make(map[estree.Node]Type)}
}

// Set records the inferred type of node. Nil nodes and nil types are ignored.
func (a *Annotations) Set(node estree.Node, t Type) {
	if node == nil || t == nil {
		return
	}
	a.mu.Lock()
	a.types[node] = t
	a.mu.Unlock()
}

// TypeOf implements Oracle.
func (a *Annotations) TypeOf(node estree.Node) (Type, bool) {
	if a == nil || node == nil {
		return nil, false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	t, ok := a.types[node]
	return t, ok
}

// Len returns the number of annotated nodes.
func (a *Annotations) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.types)
}
