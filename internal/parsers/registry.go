// Package parsers converts raw broker statements into structured payloads.
// Each broker format gets one Parser implementation; the registry is the only
// place broker identifiers map to code, so adding a broker is a pure
// extension.
package parsers

import (
	"fmt"
	"sort"

	"github.com/brokercursor/brokercursor/internal/domain"
)

// Hint carries the metadata the import pipeline extracted from the file name.
// Parsers may use it to fill fields the statement body does not state, but
// body-derived values always win.
type Hint struct {
	FileName string
	Broker   string
	Account  domain.Account
	Period   domain.Period
}

// Parser extracts a structured payload from one broker's statement format.
type Parser interface {
	// Broker returns the broker identifier this parser handles.
	Broker() string
	// Version identifies the extraction logic; stored with each payload so
	// re-parse runs after a fix are traceable.
	Version() string
	// Parse converts raw content into a payload or fails with a
	// *domain.ParseError. Content arrives as bytes; xlsx formats are
	// binary, not text.
	Parse(rawContent []byte, hint Hint) (*domain.StatementPayload, error)
}

// Registry maps broker identifiers to parsers.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{parsers: map[string]Parser{}}
}

// DefaultRegistry returns a registry with all built-in parsers registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewSberParser())
	r.Register(NewVTBParser())
	return r
}

// Register adds or replaces the parser for its broker.
func (r *Registry) Register(p Parser) {
	r.parsers[p.Broker()] = p
}

// Get returns the parser for a broker, or domain.ErrUnknownBroker.
func (r *Registry) Get(broker string) (Parser, error) {
	p, ok := r.parsers[broker]
	if !ok {
		return nil, fmt.Errorf("broker %q: %w", broker, domain.ErrUnknownBroker)
	}
	return p, nil
}

// Supports reports whether a parser is registered for the broker.
func (r *Registry) Supports(broker string) bool {
	_, ok := r.parsers[broker]
	return ok
}

// Supported returns the sorted list of brokers with registered parsers.
func (r *Registry) Supported() []string {
	brokers := make([]string, 0, len(r.parsers))
	for broker := range r.parsers {
		brokers = append(brokers, broker)
	}
	sort.Strings(brokers)
	return brokers
}
