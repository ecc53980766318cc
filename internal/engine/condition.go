package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/huyndq/adpilot/internal/models"
	"github.com/shopspring/decimal"
)

// Operator is a closed set of numeric comparison operators. Anything else in
// a stored rule is a configuration error at parse time; operator strings are
// never dispatched dynamically.
type Operator string

const (
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpEqual        Operator = "="
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
)

func validOperator(op Operator) bool {
	switch op {
	case OpGreater, OpLess, OpEqual, OpGreaterEqual, OpLessEqual:
		return true
	}
	return false
}

// Condition is one guard clause of a rule. All conditions of a rule must hold
// (logical AND) for the rule to match.
type Condition struct {
	Metric   string          `json:"metric"`
	Operator Operator        `json:"operator"`
	Value    decimal.Decimal `json:"value"`
}

// ParseConditions decodes and validates the JSON condition list stored on a
// rule. An empty or blank document parses to an empty list, which is a valid
// configuration that matches everything in scope.
func ParseConditions(raw string) ([]Condition, error) {
	if strings.TrimSpace(raw) == "" || strings.TrimSpace(raw) == "[]" {
		return nil, nil
	}

	var conds []Condition
	if err := json.Unmarshal([]byte(raw), &conds); err != nil {
		return nil, wrapError(ErrKindConfiguration, "invalid conditions document", err)
	}

	for i, c := range conds {
		if c.Metric == "" {
			return nil, newError(ErrKindConfiguration, fmt.Sprintf("condition %d: missing metric", i))
		}
		if !validOperator(c.Operator) {
			return nil, newError(ErrKindConfiguration, fmt.Sprintf("condition %d: unknown operator %q", i, c.Operator))
		}
	}

	return conds, nil
}

// EvaluateConditions reports whether the snapshot satisfies every condition.
// An empty condition list matches everything. A condition whose metric is
// absent from the snapshot evaluates false, so a rule never fires on missing
// data.
func EvaluateConditions(conds []Condition, snap *models.MetricSnapshot) bool {
	for _, c := range conds {
		value, ok := snap.Metric(c.Metric)
		if !ok {
			return false
		}
		if !compare(value, c.Operator, c.Value) {
			return false
		}
	}
	return true
}

func compare(left decimal.Decimal, op Operator, right decimal.Decimal) bool {
	cmp := left.Cmp(right)
	switch op {
	case OpGreater:
		return cmp > 0
	case OpLess:
		return cmp < 0
	case OpEqual:
		return cmp == 0
	case OpGreaterEqual:
		return cmp >= 0
	case OpLessEqual:
		return cmp <= 0
	}
	return false
}
