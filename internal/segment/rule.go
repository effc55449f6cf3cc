// Package segment implements the closed JSON rule-tree DSL from spec.md
// §3/§4.4 as a typed tagged-variant tree, per the "dynamic rule tree ->
// typed sum" design note in spec.md §9. Unknown tags are rejected at
// parse time rather than carried as untyped JSON through the evaluator.
package segment

import (
	"encoding/json"
	"fmt"
)

// Operator is one of the closed set of leaf comparison operators.
type Operator string

const (
	OpEquals    Operator = "equals"
	OpNotEquals Operator = "not_equals"
	OpIn        Operator = "in"
	OpNotIn     Operator = "not_in"
	OpExists    Operator = "exists"
	OpGT        Operator = "gt"
	OpLT        Operator = "lt"
	OpGTE       Operator = "gte"
	OpLTE       Operator = "lte"
	OpMatches   Operator = "matches"
)

var validOperators = map[Operator]bool{
	OpEquals: true, OpNotEquals: true, OpIn: true, OpNotIn: true,
	OpExists: true, OpGT: true, OpLT: true, OpGTE: true, OpLTE: true,
	OpMatches: true,
}

// Logic joins composite conditions.
type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

// Node is the closed sum type: Leaf | And | Or.
type Node interface {
	isNode()
}

// Leaf compares a recipient's attribute (or the reserved "consent_state"
// attribute) against Value using Operator.
type Leaf struct {
	Attribute string
	Operator  Operator
	Value     any
}

func (Leaf) isNode() {}

// Composite is an AND/OR combination of child nodes.
type Composite struct {
	Logic      Logic
	Conditions []Node
}

func (Composite) isNode() {}

// wireNode mirrors the untyped JSON boundary shape before validation.
type wireNode struct {
	Attribute  string          `json:"attribute"`
	Operator   string          `json:"operator"`
	Value      json.RawMessage `json:"value"`
	Logic      string          `json:"logic"`
	Conditions []json.RawMessage `json:"conditions"`
}

// Parse decodes a raw JSON rule tree into the typed Node sum, rejecting
// unknown tags, operators, or logic values.
func Parse(raw []byte) (Node, error) {
	var w wireNode
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("segment: invalid rule JSON: %w", err)
	}
	return parseWire(w)
}

func parseWire(w wireNode) (Node, error) {
	switch {
	case w.Logic != "" || w.Conditions != nil:
		logic := Logic(w.Logic)
		if logic != LogicAnd && logic != LogicOr {
			return nil, fmt.Errorf("segment: unknown logic %q", w.Logic)
		}
		if len(w.Conditions) == 0 {
			return nil, fmt.Errorf("segment: composite node requires conditions")
		}
		children := make([]Node, 0, len(w.Conditions))
		for _, raw := range w.Conditions {
			var cw wireNode
			if err := json.Unmarshal(raw, &cw); err != nil {
				return nil, fmt.Errorf("segment: invalid condition JSON: %w", err)
			}
			child, err := parseWire(cw)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		return Composite{Logic: logic, Conditions: children}, nil

	case w.Attribute != "":
		op := Operator(w.Operator)
		if !validOperators[op] {
			return nil, fmt.Errorf("segment: unknown operator %q", w.Operator)
		}
		var value any
		if len(w.Value) > 0 {
			if err := json.Unmarshal(w.Value, &value); err != nil {
				return nil, fmt.Errorf("segment: invalid leaf value: %w", err)
			}
		}
		if op != OpExists {
			switch op {
			case OpIn, OpNotIn:
				if _, ok := value.([]any); !ok {
					return nil, fmt.Errorf("segment: operator %q requires an array value", op)
				}
			}
		}
		return Leaf{Attribute: w.Attribute, Operator: op, Value: value}, nil

	default:
		return nil, fmt.Errorf("segment: unrecognized rule node")
	}
}

// WithImplicitConsentFilter wraps root in an AND with the reserved
// consent_state = OPT_IN leaf, matching the spec's rule that every
// evaluation implicitly ANDs this condition at the root.
func WithImplicitConsentFilter(root Node) Node {
	consentLeaf := Leaf{Attribute: "consent_state", Operator: OpEquals, Value: "OPT_IN"}
	return Composite{Logic: LogicAnd, Conditions: []Node{consentLeaf, root}}
}
