package odvd

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Registry indexes parsed descriptors by data type identifier and name.
type Registry struct {
	ordered []*Descriptor
	byID    map[int32]*Descriptor
	byName  map[string]*Descriptor
	short   map[string][]*Descriptor
}

func newRegistry(descriptors []*Descriptor) (*Registry, error) {
	r := &Registry{
		byID:   make(map[int32]*Descriptor, len(descriptors)),
		byName: make(map[string]*Descriptor, len(descriptors)*2),
		short:  make(map[string][]*Descriptor, len(descriptors)),
	}
	for _, d := range descriptors {
		if prev, dup := r.byID[d.ID]; dup {
			return nil, &SyntaxError{Line: d.Line, Msg: fmt.Sprintf("message %s reuses id %d of message %s", d.Name, d.ID, prev.Name)}
		}
		r.byID[d.ID] = d
		r.byName[d.Name] = d
		r.byName[d.QualifiedName()] = d
		r.short[d.ShortName()] = append(r.short[d.ShortName()], d)
		r.ordered = append(r.ordered, d)
	}
	for _, d := range r.ordered {
		for _, f := range d.Fields {
			if f.Type != TypeMessage {
				continue
			}
			if _, ok := r.Resolve(d, f); !ok {
				return nil, &SyntaxError{Line: f.Line, Msg: fmt.Sprintf("message %s: field %s has unknown type %s", d.Name, f.Name, f.TypeName)}
			}
		}
	}
	for _, d := range r.ordered {
		if err := r.checkCycle(d, map[*Descriptor]bool{}); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) checkCycle(d *Descriptor, visiting map[*Descriptor]bool) error {
	if visiting[d] {
		return fmt.Errorf("%w: %s", ErrRecursiveMessage, d.Name)
	}
	visiting[d] = true
	defer delete(visiting, d)
	for _, f := range d.Fields {
		if f.Type != TypeMessage {
			continue
		}
		nested, _ := r.Resolve(d, f)
		if err := r.checkCycle(nested, visiting); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of registered messages.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.ordered)
}

// Messages returns descriptors in declaration order.
func (r *Registry) Messages() []*Descriptor {
	if r == nil {
		return nil
	}
	out := make([]*Descriptor, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// SortedByID returns descriptors ordered by identifier.
func (r *Registry) SortedByID() []*Descriptor {
	out := r.Messages()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Lookup returns the descriptor registered for a data type identifier.
func (r *Registry) Lookup(id int32) (*Descriptor, bool) {
	if r == nil {
		return nil, false
	}
	d, ok := r.byID[id]
	return d, ok
}

// LookupName resolves a message by its declared, qualified, or unambiguous
// short name.
func (r *Registry) LookupName(name string) (*Descriptor, bool) {
	if r == nil {
		return nil, false
	}
	name = strings.TrimSpace(name)
	if d, ok := r.byName[name]; ok {
		return d, true
	}
	if candidates := r.short[name]; len(candidates) == 1 {
		return candidates[0], true
	}
	return nil, false
}

// Resolve returns the descriptor of a nested message field declared in scope.
func (r *Registry) Resolve(scope *Descriptor, f Field) (*Descriptor, bool) {
	if f.Type != TypeMessage {
		return nil, false
	}
	if d, ok := r.byName[f.TypeName]; ok {
		return d, true
	}
	if scope != nil {
		if pkg := scope.Package; pkg != "" {
			if d, ok := r.byName[pkg+"."+f.TypeName]; ok {
				return d, true
			}
		}
		if idx := strings.LastIndex(scope.Name, "."); idx >= 0 {
			if d, ok := r.byName[scope.Name[:idx+1]+f.TypeName]; ok {
				return d, true
			}
		}
	}
	return r.LookupName(f.TypeName)
}

// Select resolves a user supplied selector, either a numeric identifier or a
// message name.
func (r *Registry) Select(selector string) (*Descriptor, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return nil, fmt.Errorf("odvd: empty message selector")
	}
	if id, err := strconv.ParseInt(selector, 10, 32); err == nil {
		if d, ok := r.Lookup(int32(id)); ok {
			return d, nil
		}
		return nil, fmt.Errorf("odvd: no message with id %d", id)
	}
	if d, ok := r.LookupName(selector); ok {
		return d, nil
	}
	return nil, fmt.Errorf("odvd: no message named %q", selector)
}
