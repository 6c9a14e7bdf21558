// Package pipeline compiles declarative stream definitions into PetalStream
// publishers. A definition names a source and an ordered operator chain;
// values are dynamically typed (float64, string or bool) as decoded from
// JSON or YAML.
package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Source kinds.
const (
	SourceValues = "values"
	SourceEmpty  = "empty"
	SourceFail   = "fail"
)

// Definition describes one pipeline.
type Definition struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Source      Source     `json:"source"`
	Operators   []Operator `json:"operators,omitempty"`
}

// Source is the publisher at the head of a pipeline. An empty Kind means
// "values".
type Source struct {
	Kind   string `json:"kind,omitempty"`
	Values []any  `json:"values,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Params holds operator arguments. Each operator reads only the fields it
// needs.
type Params struct {
	Fn      string `json:"fn,omitempty"`
	Initial any    `json:"initial,omitempty"`
	Size    int    `json:"size,omitempty"`
	Index   int    `json:"index,omitempty"`
	From    int    `json:"from,omitempty"`
	To      int    `json:"to,omitempty"`
	Value   any    `json:"value,omitempty"`
	Prefix  string `json:"prefix,omitempty"`
}

// Operator is one step of the chain. In a definition file it is written
// either as a bare name ("min") or as a single-key map whose value is a
// Params object or, for single-argument operators, a scalar shorthand:
//
//   - min
//   - collect: 2
//   - scan: {initial: 50, fn: max0_add}
type Operator struct {
	Name   string
	Params Params
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Operator) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		o.Name = name
		return nil
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("operator must be a name or a single-key map: %w", err)
	}
	if len(m) != 1 {
		return fmt.Errorf("operator must be a single-key map, got %d keys", len(m))
	}
	for k, raw := range m {
		o.Name = k
		return o.Params.decode(k, raw)
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (o Operator) MarshalJSON() ([]byte, error) {
	if o.Params.isZero() {
		return json.Marshal(o.Name)
	}
	return json.Marshal(map[string]Params{o.Name: o.Params})
}

func (p Params) isZero() bool {
	return p.Fn == "" && p.Initial == nil && p.Size == 0 && p.Index == 0 &&
		p.From == 0 && p.To == 0 && p.Value == nil && p.Prefix == ""
}

// decode fills p from raw, which is an object, null, or a scalar shorthand
// for the operator's main argument.
func (p *Params) decode(op string, raw json.RawMessage) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '{' {
		return json.Unmarshal(trimmed, p)
	}

	var scalar any
	if err := json.Unmarshal(trimmed, &scalar); err != nil {
		return err
	}
	switch op {
	case "map", "first_where", "contains_where", "all_satisfy":
		s, ok := scalar.(string)
		if !ok {
			return fmt.Errorf("%s: function name must be a string, got %T", op, scalar)
		}
		p.Fn = s
	case "collect", "output_at":
		n, ok := scalar.(float64)
		if !ok || n != float64(int(n)) {
			return fmt.Errorf("%s: expected an integer, got %v", op, scalar)
		}
		if op == "collect" {
			p.Size = int(n)
		} else {
			p.Index = int(n)
		}
	case "contains", "replace_empty":
		p.Value = scalar
	case "print":
		s, ok := scalar.(string)
		if !ok {
			return fmt.Errorf("%s: prefix must be a string, got %T", op, scalar)
		}
		p.Prefix = s
	default:
		return fmt.Errorf("%s: takes no shorthand argument", op)
	}
	return nil
}
