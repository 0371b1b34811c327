package metadata

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrUnknownVariant is returned when a (module, event) index pair is not in the schema.
var ErrUnknownVariant = errors.New("unknown event variant")

// Document is the on-disk schema: module names, event names and argument type names.
type Document struct {
	Topics  *bool            `yaml:"topics" json:"topics"`
	Modules []ModuleDocument `yaml:"modules" json:"modules"`
}

// ModuleDocument describes one module and the events it emits.
type ModuleDocument struct {
	Name   string          `yaml:"name" json:"name"`
	Index  *uint8          `yaml:"index" json:"index"`
	Events []EventDocument `yaml:"events" json:"events"`
}

// EventDocument describes one event and its ordered argument type names.
type EventDocument struct {
	Name  string   `yaml:"name" json:"name"`
	Index *uint8   `yaml:"index" json:"index"`
	Args  []string `yaml:"args" json:"args"`
}

// EventMeta is the resolved view of one event.
type EventMeta struct {
	Module      string
	Name        string
	ModuleIndex uint8
	EventIndex  uint8
	Args        []string
	ArgTypes    []TypeExpr
}

type variantKey struct {
	module uint8
	event  uint8
}

type nameKey struct {
	module string
	event  string
}

// Index is an immutable, queryable view of a schema. It is safe for concurrent use.
type Index struct {
	topics    bool
	byVariant map[variantKey]EventMeta
	byName    map[nameKey]EventMeta
	modules   []string
}

// New validates doc and builds an Index.
func New(doc Document) (*Index, error) {
	idx := &Index{
		topics:    true,
		byVariant: make(map[variantKey]EventMeta),
		byName:    make(map[nameKey]EventMeta),
	}
	if doc.Topics != nil {
		idx.topics = *doc.Topics
	}

	moduleNames := make(map[string]struct{}, len(doc.Modules))
	moduleIndices := make(map[uint8]string, len(doc.Modules))
	for pos, mod := range doc.Modules {
		if mod.Name == "" {
			return nil, fmt.Errorf("module %d: missing name", pos)
		}
		if _, ok := moduleNames[mod.Name]; ok {
			return nil, fmt.Errorf("duplicate module %s", mod.Name)
		}
		moduleNames[mod.Name] = struct{}{}

		modIdx, err := position(mod.Index, pos)
		if err != nil {
			return nil, fmt.Errorf("module %s: %w", mod.Name, err)
		}
		if other, ok := moduleIndices[modIdx]; ok {
			return nil, fmt.Errorf("module %s: index %d already used by %s", mod.Name, modIdx, other)
		}
		moduleIndices[modIdx] = mod.Name
		idx.modules = append(idx.modules, mod.Name)

		for evPos, ev := range mod.Events {
			meta, err := buildEvent(mod.Name, modIdx, ev, evPos)
			if err != nil {
				return nil, err
			}
			vk := variantKey{module: modIdx, event: meta.EventIndex}
			if other, ok := idx.byVariant[vk]; ok {
				return nil, fmt.Errorf("event %s.%s: index %d already used by %s", mod.Name, ev.Name, meta.EventIndex, other.Name)
			}
			nk := nameKey{module: mod.Name, event: ev.Name}
			if _, ok := idx.byName[nk]; ok {
				return nil, fmt.Errorf("duplicate event %s.%s", mod.Name, ev.Name)
			}
			idx.byVariant[vk] = meta
			idx.byName[nk] = meta
		}
	}

	return idx, nil
}

func buildEvent(module string, modIdx uint8, ev EventDocument, pos int) (EventMeta, error) {
	if ev.Name == "" {
		return EventMeta{}, fmt.Errorf("module %s: event %d missing name", module, pos)
	}
	evIdx, err := position(ev.Index, pos)
	if err != nil {
		return EventMeta{}, fmt.Errorf("event %s.%s: %w", module, ev.Name, err)
	}

	args := make([]string, len(ev.Args))
	copy(args, ev.Args)
	types := make([]TypeExpr, 0, len(ev.Args))
	for _, arg := range ev.Args {
		expr, err := ParseType(arg)
		if err != nil {
			return EventMeta{}, fmt.Errorf("event %s.%s: %w", module, ev.Name, err)
		}
		types = append(types, expr)
	}

	return EventMeta{
		Module:      module,
		Name:        ev.Name,
		ModuleIndex: modIdx,
		EventIndex:  evIdx,
		Args:        args,
		ArgTypes:    types,
	}, nil
}

func position(explicit *uint8, pos int) (uint8, error) {
	if explicit != nil {
		return *explicit, nil
	}
	if pos > 255 {
		return 0, fmt.Errorf("position %d does not fit in u8", pos)
	}
	return uint8(pos), nil
}

// Load reads a YAML or JSON schema document from path.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return Parse(data)
}

// Parse builds an Index from a YAML or JSON document.
func Parse(data []byte) (*Index, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	return New(doc)
}

// Topics reports whether each event record ends with a topics vector.
func (i *Index) Topics() bool {
	return i.topics
}

// Lookup resolves the module and event discriminators of a record.
func (i *Index) Lookup(moduleIdx, eventIdx uint8) (EventMeta, error) {
	meta, ok := i.byVariant[variantKey{module: moduleIdx, event: eventIdx}]
	if !ok {
		return EventMeta{}, fmt.Errorf("%w: module %d event %d", ErrUnknownVariant, moduleIdx, eventIdx)
	}
	return meta, nil
}

// Event finds an event by module and event name. Names are case-sensitive.
func (i *Index) Event(module, name string) (EventMeta, bool) {
	meta, ok := i.byName[nameKey{module: module, event: name}]
	return meta, ok
}

// Modules returns module names in schema order.
func (i *Index) Modules() []string {
	out := make([]string, len(i.modules))
	copy(out, i.modules)
	return out
}
