package utils

import (
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ReferenceGenerator mints sortable, collision-free identifiers for
// transaction references and idempotency keys.
type ReferenceGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewReferenceGenerator() *ReferenceGenerator {
	return &ReferenceGenerator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Generate returns a bare ULID (26 characters, sortable, URL-safe).
// Example: 01ARZ3NDEKTSV4RRFFQ69G5FAV
func (g *ReferenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
	return id.String()
}

// GenerateReference returns a prefixed reference, e.g. TXN-01ARZ....
func (g *ReferenceGenerator) GenerateReference(prefix string) string {
	p := "TXN"
	if prefix != "" {
		p = strings.ToUpper(prefix)
	}
	return fmt.Sprintf("%s-%s", p, g.Generate())
}

// ValidateULID reports whether s parses as a ULID.
func ValidateULID(s string) bool {
	if len(s) != 26 {
		return false
	}
	_, err := ulid.Parse(s)
	return err == nil
}
