// Package codegen builds human-facing account codes: a fixed entity prefix
// followed by a ULID, so codes sort by creation time and never collide.
package codegen

import (
	"crypto/rand"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Prefix tags the kind of entity a code belongs to.
type Prefix string

const (
	PrefixClient Prefix = "CLIE"
)

// Generator produces prefixed codes. The zero value is not usable; call New.
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
	now     func() time.Time
}

// New returns a Generator with monotonic entropy so codes minted within the
// same millisecond still sort in order.
func New() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

// NewWithSource builds a Generator over a caller-supplied clock and entropy,
// for deterministic tests.
func NewWithSource(now func() time.Time, entropy io.Reader) *Generator {
	return &Generator{entropy: entropy, now: now}
}

// Generate returns prefix followed by a new ULID.
func (g *Generator) Generate(prefix Prefix) (string, error) {
	g.mu.Lock()
	id, err := ulid.New(ulid.Timestamp(g.now()), g.entropy)
	g.mu.Unlock()
	if err != nil {
		return "", err
	}
	return string(prefix) + id.String(), nil
}

// Parse splits a code into its prefix and ULID.
func Parse(code string, prefix Prefix) (ulid.ULID, bool) {
	rest, ok := strings.CutPrefix(code, string(prefix))
	if !ok {
		return ulid.ULID{}, false
	}
	id, err := ulid.ParseStrict(rest)
	if err != nil {
		return ulid.ULID{}, false
	}
	return id, true
}
