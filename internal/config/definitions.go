package config

import (
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"
)

// Definitions is the union-typed "link-time variable definitions" value: a
// single string, an ordered list of strings, or a key→value mapping. The
// tagged form keeps the declared shape around for diagnostics; Normalize is
// the one place the three shapes collapse into canonical flag operands.
type Definitions struct {
	str     *string
	list    []string
	mapping map[string]*string
}

// DefinitionsFromString wraps a single definition string.
func DefinitionsFromString(s string) Definitions {
	return Definitions{str: &s}
}

// DefinitionsFromList wraps an ordered list of definition strings.
func DefinitionsFromList(l []string) Definitions {
	return Definitions{list: l}
}

// DefinitionsFromMap wraps a key→value mapping. A nil value emits the bare
// key with no "=value" suffix.
func DefinitionsFromMap(m map[string]*string) Definitions {
	return Definitions{mapping: m}
}

// DefinitionsFromCty builds Definitions from a decoded HCL value, accepting
// the three legal shapes and rejecting everything else as a configuration
// error.
func DefinitionsFromCty(v cty.Value) (Definitions, error) {
	if v.IsNull() {
		return Definitions{}, nil
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		return DefinitionsFromString(v.AsString()), nil
	case ty.IsTupleType() || ty.IsListType():
		var list []string
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			if ev.Type() != cty.String || ev.IsNull() {
				return Definitions{}, fmt.Errorf("definitions list elements must be strings")
			}
			list = append(list, ev.AsString())
		}
		return DefinitionsFromList(list), nil
	case ty.IsObjectType() || ty.IsMapType():
		m := make(map[string]*string)
		for it := v.ElementIterator(); it.Next(); {
			kv, ev := it.Element()
			key := kv.AsString()
			if ev.IsNull() {
				m[key] = nil
				continue
			}
			if ev.Type() != cty.String {
				return Definitions{}, fmt.Errorf("definition %q must be a string or null", key)
			}
			val := ev.AsString()
			m[key] = &val
		}
		return DefinitionsFromMap(m), nil
	default:
		return Definitions{}, fmt.Errorf("definitions must be a string, a list of strings or a map, got %s", ty.FriendlyName())
	}
}

// IsZero reports whether no definitions were declared.
func (d Definitions) IsZero() bool {
	return d.str == nil && d.list == nil && d.mapping == nil
}

// Normalize produces the canonical ordered sequence of definition operands.
// Lists keep declaration order; mapping keys are sorted lexicographically so
// the resulting command text is deterministic. A nil mapping value yields the
// bare key.
func (d Definitions) Normalize() []string {
	switch {
	case d.str != nil:
		return []string{*d.str}
	case d.list != nil:
		out := make([]string, len(d.list))
		copy(out, d.list)
		return out
	case d.mapping != nil:
		keys := make([]string, 0, len(d.mapping))
		for k := range d.mapping {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]string, 0, len(keys))
		for _, k := range keys {
			if v := d.mapping[k]; v != nil {
				out = append(out, k+"="+*v)
			} else {
				out = append(out, k)
			}
		}
		return out
	default:
		return nil
	}
}
