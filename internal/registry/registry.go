package registry

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrConflictingRule is returned when a name is re-registered with a different rule.
	ErrConflictingRule = errors.New("conflicting size rule")
	// ErrInvalidRule is returned for empty names and malformed or non-positive sizes.
	ErrInvalidRule = errors.New("invalid size rule")
)

// RuleKind identifies how a registered type is laid out on the wire.
type RuleKind int

const (
	// KindFixed is a scalar of a fixed byte width.
	KindFixed RuleKind = iota + 1
	// KindCompact is a SCALE compact integer.
	KindCompact
	// KindBytes is a compact length prefix followed by that many bytes.
	KindBytes
)

func (k RuleKind) String() string {
	switch k {
	case KindFixed:
		return "fixed"
	case KindCompact:
		return "compact"
	case KindBytes:
		return "bytes"
	default:
		return "unknown"
	}
}

// SizeRule describes the wire size of a type the schema cannot size on its own.
type SizeRule struct {
	Kind  RuleKind
	Width int
}

func (r SizeRule) String() string {
	if r.Kind == KindFixed {
		return strconv.Itoa(r.Width)
	}
	return r.Kind.String()
}

func (r SizeRule) validate() error {
	switch r.Kind {
	case KindFixed:
		if r.Width <= 0 {
			return fmt.Errorf("%w: fixed width %d", ErrInvalidRule, r.Width)
		}
	case KindCompact, KindBytes:
		if r.Width != 0 {
			return fmt.Errorf("%w: %s rule carries width %d", ErrInvalidRule, r.Kind, r.Width)
		}
	default:
		return fmt.Errorf("%w: kind %d", ErrInvalidRule, r.Kind)
	}
	return nil
}

// Fixed returns a rule for a scalar of n bytes.
func Fixed(n int) SizeRule {
	return SizeRule{Kind: KindFixed, Width: n}
}

// Compact returns a rule for a SCALE compact integer.
func Compact() SizeRule {
	return SizeRule{Kind: KindCompact}
}

// Bytes returns a rule for a compact-length-prefixed byte string.
func Bytes() SizeRule {
	return SizeRule{Kind: KindBytes}
}

// FixedOf derives a fixed rule from the encoded size of T.
func FixedOf[T any]() (SizeRule, error) {
	var zero T
	n := binary.Size(zero)
	if n <= 0 {
		return SizeRule{}, fmt.Errorf("%w: %T has no fixed size", ErrInvalidRule, zero)
	}
	return Fixed(n), nil
}

// ParseRule parses "4", "compact" or "bytes".
func ParseRule(input string) (SizeRule, error) {
	input = strings.ToLower(strings.TrimSpace(input))
	switch input {
	case "compact":
		return Compact(), nil
	case "bytes":
		return Bytes(), nil
	}
	n, err := strconv.Atoi(input)
	if err != nil {
		return SizeRule{}, fmt.Errorf("%w: %q", ErrInvalidRule, input)
	}
	rule := Fixed(n)
	if err := rule.validate(); err != nil {
		return SizeRule{}, err
	}
	return rule, nil
}

// Registration pairs a type name with its rule.
type Registration struct {
	Name string
	Rule SizeRule
}

// ParseRegistrations converts a name->rule map (as read from config) into registrations.
func ParseRegistrations(in map[string]string) ([]Registration, error) {
	names := make([]string, 0, len(in))
	for name := range in {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Registration, 0, len(in))
	for _, name := range names {
		rule, err := ParseRule(in[name])
		if err != nil {
			return nil, fmt.Errorf("register %s: %w", name, err)
		}
		out = append(out, Registration{Name: name, Rule: rule})
	}
	return out, nil
}

// Registry maps type names to caller-declared size rules.
//
// A Registry is not safe for concurrent mutation; callers build one per decode
// attempt or share a fully built one read-only.
type Registry struct {
	rules map[string]SizeRule
}

func New() *Registry {
	return &Registry{rules: make(map[string]SizeRule)}
}

// Build registers every entry in order, stopping at the first failure.
func Build(regs []Registration) (*Registry, error) {
	r := New()
	for _, reg := range regs {
		if err := r.Register(reg.Name, reg.Rule); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register binds name to rule. Registering an identical rule again is a no-op;
// a different rule for a bound name fails with ErrConflictingRule.
func (r *Registry) Register(name string, rule SizeRule) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: empty type name", ErrInvalidRule)
	}
	if err := rule.validate(); err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}
	if existing, ok := r.rules[name]; ok {
		if existing == rule {
			return nil
		}
		return fmt.Errorf("%w: %s bound to %s, got %s", ErrConflictingRule, name, existing, rule)
	}
	r.rules[name] = rule
	return nil
}

// Resolve returns the rule bound to name.
func (r *Registry) Resolve(name string) (SizeRule, bool) {
	if r == nil {
		return SizeRule{}, false
	}
	rule, ok := r.rules[name]
	return rule, ok
}

// Len returns the number of registered names.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.rules)
}
