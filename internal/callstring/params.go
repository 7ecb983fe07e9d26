package callstring

import "strings"

// Param is a single parameter of a call.
//
// A bare value has Assigned == false and carries its token in Value.
// An assignment has Assigned == true; Value may be empty ("b=").
type Param struct {
	Name     string
	Value    string
	Assigned bool
}

// Bare returns a bare value parameter.
func Bare(value string) Param {
	return Param{Value: value}
}

// Assign returns a named assignment parameter.
func Assign(name, value string) Param {
	return Param{Name: name, Value: value, Assigned: true}
}

// Key returns the index key of the parameter.
func (p Param) Key() string {
	if p.Assigned {
		return p.Name
	}
	return p.Value
}

// IndexValue returns the value stored under Key in the index.
func (p Param) IndexValue() string {
	if p.Assigned {
		return p.Value
	}
	return ""
}

// String returns the parameter as it appears in a call string.
func (p Param) String() string {
	if p.Assigned {
		return p.Name + "=" + p.Value
	}
	return p.Value
}

// Params is an immutable parameter list together with its index.
// The zero value is an empty parameter set.
type Params struct {
	list  []Param
	index map[string]string
}

// NewParams builds a parameter set from an ordered list.
// The index is derived from the list; the last occurrence of a key wins.
func NewParams(list ...Param) Params {
	if len(list) == 0 {
		return Params{}
	}
	p := Params{
		list:  make([]Param, len(list)),
		index: make(map[string]string, len(list)),
	}
	copy(p.list, list)
	for _, param := range p.list {
		p.index[param.Key()] = param.IndexValue()
	}
	return p
}

// Len returns the number of parameters in the list.
func (p Params) Len() int {
	return len(p.list)
}

// At returns the i-th parameter in source order.
func (p Params) At(i int) Param {
	return p.list[i]
}

// List returns a copy of the ordered parameter list. Never nil.
func (p Params) List() []Param {
	out := make([]Param, len(p.list))
	copy(out, p.list)
	return out
}

// Index returns a copy of the parameter index. Never nil.
func (p Params) Index() map[string]string {
	out := make(map[string]string, len(p.index))
	for k, v := range p.index {
		out[k] = v
	}
	return out
}

// Lookup returns the indexed value for key.
func (p Params) Lookup(key string) (string, bool) {
	v, ok := p.index[key]
	return v, ok
}

// Has reports whether key is present in the index.
func (p Params) Has(key string) bool {
	_, ok := p.index[key]
	return ok
}

// String returns the parameters joined as in a call string, without '?'.
func (p Params) String() string {
	parts := make([]string, len(p.list))
	for i, param := range p.list {
		parts[i] = param.String()
	}
	return strings.Join(parts, "&")
}

// Call is a parsed call string.
type Call struct {
	// Name is the lowercased command name.
	Name   string
	Params Params
}

// String returns the call in canonical form.
func (c Call) String() string {
	if c.Params.Len() == 0 {
		return c.Name
	}
	return c.Name + "?" + c.Params.String()
}
