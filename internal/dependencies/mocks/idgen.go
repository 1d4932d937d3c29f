package mocks

import (
	"fmt"
	"sync"

	"github.com/mcoot/d2r-multiplay/internal/dependencies/idgen"
)

// MockIDGen is a mock implementation of IDGen for testing
type MockIDGen struct {
	mu sync.Mutex

	// IDs is a queue of results to return from NewID
	IDs   []string
	index int
	count int
}

// Ensure MockIDGen implements IDGen
var _ idgen.IDGen = (*MockIDGen)(nil)

// NewMockIDGen creates a new MockIDGen
func NewMockIDGen() *MockIDGen {
	return &MockIDGen{}
}

// NewID returns the next queued ID, or a sequential "id-N" if none remain
func (g *MockIDGen) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.count++
	if g.index >= len(g.IDs) {
		return fmt.Sprintf("id-%d", g.count)
	}
	id := g.IDs[g.index]
	g.index++
	return id
}

// Queue adds values to the ID queue
func (g *MockIDGen) Queue(ids ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.IDs = append(g.IDs, ids...)
}
