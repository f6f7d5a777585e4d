// Package operator maps human operator names from form submissions to
// upstream user ids.
package operator

import (
	"strings"

	"github.com/qwli7/meetbridge/internal/log"
)

// Operator is one name-to-id mapping.
type Operator struct {
	Name string
	ID   string
}

// Registry resolves operator names to upstream user ids. It is built once at
// startup and read-only thereafter.
type Registry struct {
	operators []Operator
	defaultID string
}

// NewRegistry parses a "name1:id1,name2:id2,..." spec. Whitespace around
// tokens is stripped and malformed pairs are skipped. An empty spec yields a
// single admin/admin pair.
func NewRegistry(spec string) *Registry {
	logger := log.WithComponent("operator")

	var operators []Operator
	if strings.TrimSpace(spec) != "" {
		for _, pair := range strings.Split(spec, ",") {
			parts := strings.Split(strings.TrimSpace(pair), ":")
			if len(parts) != 2 {
				continue
			}
			name := strings.TrimSpace(parts[0])
			id := strings.TrimSpace(parts[1])
			if name == "" || id == "" {
				continue
			}
			operators = append(operators, Operator{Name: name, ID: id})
		}
	}

	if len(operators) == 0 {
		logger.Info().Msg("no operators configured, using default")
		operators = []Operator{{Name: "admin", ID: "admin"}}
	} else {
		logger.Info().Int("count", len(operators)).Msg("loaded operators")
	}

	return &Registry{
		operators: operators,
		defaultID: operators[0].ID,
	}
}

// Resolve returns the id registered for name (case-insensitive exact match),
// or the default id if no operator matches.
func (r *Registry) Resolve(name string) string {
	for _, op := range r.operators {
		if strings.EqualFold(op.Name, name) {
			return op.ID
		}
	}
	logger := log.WithComponent("operator")
	logger.Info().
		Str("name", name).
		Str("default", r.defaultID).
		Msg("no operator found for name, using default")
	return r.defaultID
}

// Default returns the default operator id (the first registered entry).
func (r *Registry) Default() string {
	return r.defaultID
}

// Operators returns all registered mappings.
func (r *Registry) Operators() []Operator {
	return r.operators
}
