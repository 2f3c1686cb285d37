package logs

import (
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/miradorstack/opsboard/internal/utils"
)

// Services emitting simulated logs.
var Services = []string{"auth", "payments", "search", "deployments", "notifications"}

var baseMessages = map[Level]string{
	LevelDebug: "Debugging step",
	LevelInfo:  "Operation succeeded",
	LevelWarn:  "Latency high",
	LevelError: "Unhandled exception",
}

// Generator produces synthetic log entries. Contexts carry sensitive keys that are masked
// before the entry leaves the generator.
type Generator struct {
	Rand *rand.Rand
	Now  func() time.Time

	seq atomic.Int64
}

// NewGenerator returns a Generator seeded from the runtime.
func NewGenerator() *Generator {
	return &Generator{}
}

// Next returns the next entry.
func (g *Generator) Next() Entry {
	idx := g.seq.Add(1) - 1
	level := Levels[g.intn(len(Levels))]
	service := Services[g.intn(len(Services))]
	user := "service-account"
	if g.intn(2) == 0 {
		user = "alice"
	}
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	return Entry{
		ID:        uuid.NewString(),
		Timestamp: now().UTC(),
		Level:     level,
		Message:   fmt.Sprintf("%s - %s - #%d", baseMessages[level], service, idx),
		Service:   service,
		Context: utils.RedactMap(map[string]any{
			"requestId": uuid.NewString(),
			"user":      user,
			"password":  "super-secret",
			"token":     "abc123",
		}),
	}
}

// Batch returns n entries.
func (g *Generator) Batch(n int) []Entry {
	out := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, g.Next())
	}
	return out
}

func (g *Generator) intn(n int) int {
	if g.Rand != nil {
		return g.Rand.IntN(n)
	}
	return rand.IntN(n)
}
