// Package id provides centralized ID generation for shadowbox.
//
// IDs are prefixed ULIDs:
//   - Lexicographic sortability: run and environment IDs order by creation time
//   - Prefixed types: run_*, thr_*, env_* make log lines readable
//   - Type safety: separate string types prevent mixing a thread with a run
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// RunID identifies one execution of a test run unit
type RunID string

// ThreadID identifies a logical thread of execution inside a sandbox.
// Goroutines carry no identity of their own, so callers mint one per worker
// and pass it explicitly.
type ThreadID string

// EnvID identifies an isolated environment
type EnvID string

// ID prefixes
const (
	RunPrefix    = "run"
	ThreadPrefix = "thr"
	EnvPrefix    = "env"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand
func NewGenerator() *Generator {
	return &Generator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
// Useful for deterministic IDs in tests.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewRunID generates a new run ID
func NewRunID() RunID {
	return RunID(Default().GenerateWithPrefix(RunPrefix))
}

// NewThreadID generates a new thread ID
func NewThreadID() ThreadID {
	return ThreadID(Default().GenerateWithPrefix(ThreadPrefix))
}

// NewEnvID generates a new environment ID
func NewEnvID() EnvID {
	return EnvID(Default().GenerateWithPrefix(EnvPrefix))
}

func (id RunID) String() string    { return string(id) }
func (id ThreadID) String() string { return string(id) }
func (id EnvID) String() string    { return string(id) }

// IsValid checks if a (possibly prefixed) ID carries a valid ULID
func IsValid(id string) bool {
	if i := strings.LastIndexByte(id, '_'); i >= 0 {
		id = id[i+1:]
	}
	_, err := ulid.Parse(id)
	return err == nil
}

// Timestamp extracts the creation time from a (possibly prefixed) ID
func Timestamp(id string) (time.Time, error) {
	if i := strings.LastIndexByte(id, '_'); i >= 0 {
		id = id[i+1:]
	}
	parsed, err := ulid.Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
