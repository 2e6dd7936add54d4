// Package idgenerator issues the transient connection identifiers used to
// key live sessions. Identifiers are distinct from player slots and are
// never reused within a process lifetime.
package idgenerator

import "sync/atomic"

// Generator hands out uint32 identifiers by atomic increment. With a start
// value of 0 the first identifier is 1, which leaves 0 free to mean "no
// connection". Safe for concurrent use.
type Generator struct {
	counter atomic.Uint32
}

// NewGenerator creates a Generator whose first Next call returns start+1.
//
// Parameters:
//   - start: The counter's initial value
//
// Returns:
//   - A pointer to the new Generator
func NewGenerator(start uint32) *Generator {
	g := &Generator{}
	g.counter.Store(start)
	return g
}

// Next returns the next identifier.
//
// Returns:
//   - The incremented uint32 identifier
func (g *Generator) Next() uint32 {
	return g.counter.Add(1)
}
