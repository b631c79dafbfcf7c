// Package hints serves reviewer guidance for locale-data paths.
//
// A Table is loaded from YAML and installed once per process with Init.
// Callers that run before Init get ErrNotInitialized from Current instead of
// a silently empty table.
package hints

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/hylla/vettrack/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed default_hints.yaml
var defaultHintsYAML []byte

// ErrAlreadyInitialized and related errors describe process-wide table state.
var (
	ErrAlreadyInitialized = errors.New("hint table already initialized")
	ErrNotInitialized     = errors.New("hint table not initialized")
	ErrInvalidTable       = errors.New("invalid hint table")
)

// Entry attaches guidance text to an element, optionally narrowed by attribute and value.
type Entry struct {
	Element   string `yaml:"element" json:"element"`
	Attribute string `yaml:"attribute,omitempty" json:"attribute,omitempty"`
	Value     string `yaml:"value,omitempty" json:"value,omitempty"`
	Text      string `yaml:"text" json:"text"`
}

// specificity ranks entries so narrower matches win.
func (e Entry) specificity() int {
	switch {
	case e.Value != "":
		return 3
	case e.Attribute != "":
		return 2
	default:
		return 1
	}
}

// matches reports whether any element of path satisfies the entry.
func (e Entry) matches(path domain.PathAddress) bool {
	for _, el := range path.Elements() {
		if el.Name != e.Element {
			continue
		}
		if e.Attribute == "" {
			return true
		}
		value, ok := el.Attributes[e.Attribute]
		if !ok {
			continue
		}
		if e.Value == "" || e.Value == value {
			return true
		}
	}
	return false
}

// fileFormat is the YAML document layout.
type fileFormat struct {
	Hints []Entry `yaml:"hints"`
}

// Table is an immutable list of hint entries.
type Table struct {
	entries []Entry
}

// Load parses a YAML hint table.
func Load(r io.Reader) (*Table, error) {
	var doc fileFormat
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode hint table: %w", err)
	}
	entries := make([]Entry, 0, len(doc.Hints))
	for i, entry := range doc.Hints {
		entry.Element = strings.TrimSpace(entry.Element)
		entry.Attribute = strings.TrimSpace(entry.Attribute)
		entry.Text = strings.TrimSpace(entry.Text)
		if entry.Element == "" {
			return nil, fmt.Errorf("%w: hints[%d] element is required", ErrInvalidTable, i)
		}
		if entry.Text == "" {
			return nil, fmt.Errorf("%w: hints[%d] text is required", ErrInvalidTable, i)
		}
		if entry.Value != "" && entry.Attribute == "" {
			return nil, fmt.Errorf("%w: hints[%d] value requires attribute", ErrInvalidTable, i)
		}
		entries = append(entries, entry)
	}
	return &Table{entries: entries}, nil
}

// LoadFile parses a YAML hint table from disk.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open hint table: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Default returns the built-in hint table.
func Default() (*Table, error) {
	return Load(bytes.NewReader(defaultHintsYAML))
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Entries returns a copy of the table entries.
func (t *Table) Entries() []Entry {
	if t == nil {
		return nil
	}
	return append([]Entry(nil), t.entries...)
}

// Lookup returns the most specific hint for path, or "" when none applies.
// Among equally specific entries the first listed wins.
func (t *Table) Lookup(path domain.PathAddress) string {
	if t == nil || path.IsZero() {
		return ""
	}
	best, bestRank := "", 0
	for _, entry := range t.entries {
		rank := entry.specificity()
		if rank <= bestRank || !entry.matches(path) {
			continue
		}
		best, bestRank = entry.Text, rank
	}
	return best
}

var (
	mu      sync.RWMutex
	current *Table
)

// Init installs the process-wide table. It succeeds exactly once.
func Init(t *Table) error {
	if t == nil {
		return fmt.Errorf("%w: nil table", ErrInvalidTable)
	}
	mu.Lock()
	defer mu.Unlock()
	if current != nil {
		return ErrAlreadyInitialized
	}
	current = t
	return nil
}

// Current returns the process-wide table.
func Current() (*Table, error) {
	mu.RLock()
	defer mu.RUnlock()
	if current == nil {
		return nil, ErrNotInitialized
	}
	return current, nil
}

// Reset clears the process-wide table. Tests only.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	current = nil
}
