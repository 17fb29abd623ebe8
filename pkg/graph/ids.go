package graph

import (
	"crypto/rand"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid"
)

// IDGenerator issues identifiers for new nodes and connections.
type IDGenerator interface {
	NodeID() string
	ConnectionID() string
}

// ULIDGenerator issues time-ordered node ids. Ids issued in the same millisecond
// still sort in issue order.
type ULIDGenerator struct {
	mu      sync.Mutex
	now     func() time.Time
	entropy io.Reader
}

func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{
		now:     time.Now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

func (g *ULIDGenerator) NodeID() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := ulid.MustNew(ulid.Timestamp(g.now()), g.entropy)

	return "node_" + strings.ToLower(id.String())
}

func (g *ULIDGenerator) ConnectionID() string {
	return "conn_" + uuid.NewString()
}
