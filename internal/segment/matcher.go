package segment

import (
	"fmt"
	"regexp"
	"strconv"
)

// Subject is the minimal view of a recipient the matcher needs: its
// consent column (a reserved pseudo-attribute) and its attribute bag.
type Subject struct {
	ConsentState string
	Attributes   map[string]any
}

func (s Subject) lookup(attribute string) (any, bool) {
	if attribute == "consent_state" {
		return s.ConsentState, true
	}
	v, ok := s.Attributes[attribute]
	return v, ok
}

// Match evaluates node against subject.
func Match(node Node, subject Subject) (bool, error) {
	switch n := node.(type) {
	case Leaf:
		return matchLeaf(n, subject)
	case Composite:
		return matchComposite(n, subject)
	default:
		return false, fmt.Errorf("segment: unknown node type %T", node)
	}
}

func matchComposite(c Composite, subject Subject) (bool, error) {
	switch c.Logic {
	case LogicAnd:
		for _, child := range c.Conditions {
			ok, err := Match(child, subject)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case LogicOr:
		for _, child := range c.Conditions {
			ok, err := Match(child, subject)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("segment: unknown logic %q", c.Logic)
	}
}

func matchLeaf(l Leaf, subject Subject) (bool, error) {
	value, present := subject.lookup(l.Attribute)

	if l.Operator == OpExists {
		return present, nil
	}
	if !present {
		return false, nil
	}

	switch l.Operator {
	case OpEquals:
		return fmt.Sprint(value) == fmt.Sprint(l.Value), nil
	case OpNotEquals:
		return fmt.Sprint(value) != fmt.Sprint(l.Value), nil
	case OpIn:
		return containsAny(l.Value, value), nil
	case OpNotIn:
		return !containsAny(l.Value, value), nil
	case OpMatches:
		pattern, ok := l.Value.(string)
		if !ok {
			return false, fmt.Errorf("segment: matches requires a string pattern")
		}
		re, err := regexp.Compile("^(?:" + pattern + ")$")
		if err != nil {
			return false, fmt.Errorf("segment: invalid regex %q: %w", pattern, err)
		}
		return re.MatchString(fmt.Sprint(value)), nil
	case OpGT, OpLT, OpGTE, OpLTE:
		a, aok := toFloat(value)
		b, bok := toFloat(l.Value)
		if !aok || !bok {
			return false, fmt.Errorf("segment: %s requires numeric operands", l.Operator)
		}
		switch l.Operator {
		case OpGT:
			return a > b, nil
		case OpLT:
			return a < b, nil
		case OpGTE:
			return a >= b, nil
		default:
			return a <= b, nil
		}
	default:
		return false, fmt.Errorf("segment: unknown operator %q", l.Operator)
	}
}

func containsAny(set any, value any) bool {
	arr, ok := set.([]any)
	if !ok {
		return false
	}
	for _, item := range arr {
		if fmt.Sprint(item) == fmt.Sprint(value) {
			return true
		}
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
