package symbols

import (
	"fmt"

	"fortio.org/safecast"

	"prism/internal/source"
)

// ScopeKind classifies how a scope was introduced.
type ScopeKind uint8

const (
	ScopeInvalid ScopeKind = iota
	// ScopeGlobal is the single program-wide scope holding types and funcs.
	ScopeGlobal
	// ScopeType covers a type declaration body.
	ScopeType
	// ScopeFunc covers a function's params and body.
	ScopeFunc
	// ScopeBlock covers a nested block.
	ScopeBlock
)

// Scope is a lexical region with its own name bindings.
type Scope struct {
	Kind      ScopeKind
	Parent    ScopeID
	Span      source.Span
	Children  []ScopeID
	NameIndex map[source.StringID][]SymbolID
}

// Scopes stores all allocated scopes in a compact slice arena.
type Scopes struct {
	data []Scope
}

// NewScopes creates an arena with an optional capacity hint.
func NewScopes(capacity uint32) *Scopes {
	if capacity == 0 {
		capacity = 32
	}
	return &Scopes{
		data: make([]Scope, 1, capacity+1), // index 0 reserved for NoScopeID
	}
}

// New allocates a scope and links it under parent.
func (s *Scopes) New(kind ScopeKind, parent ScopeID, span source.Span) ScopeID {
	next, err := safecast.Conv[uint32](len(s.data))
	if err != nil {
		panic(fmt.Errorf("scope arena overflow: %w", err))
	}
	id := ScopeID(next)
	s.data = append(s.data, Scope{
		Kind:      kind,
		Parent:    parent,
		Span:      span,
		NameIndex: make(map[source.StringID][]SymbolID),
	})
	if parent.IsValid() {
		if p := s.Get(parent); p != nil {
			p.Children = append(p.Children, id)
		}
	}
	return id
}

// Get returns the scope pointer or nil for an invalid ID.
func (s *Scopes) Get(id ScopeID) *Scope {
	if !id.IsValid() || int(id) >= len(s.data) {
		return nil
	}
	return &s.data[id]
}

// Len reports the number of scopes excluding the sentinel.
func (s *Scopes) Len() int { return len(s.data) - 1 }
