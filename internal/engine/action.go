package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ActionType identifies what a matched rule does to an object.
type ActionType string

const (
	ActionTurnOff      ActionType = "turn_off"
	ActionTurnOn       ActionType = "turn_on"
	ActionAdjustBudget ActionType = "adjust_budget"
)

// BudgetMode selects how adjust_budget derives the new budget.
type BudgetMode string

const (
	BudgetModePercentage BudgetMode = "percentage"
	BudgetModeFixed      BudgetMode = "fixed"
)

// Action is one side effect a rule applies on match. When AutoRevert is set,
// exactly one of RevertAfterHours / RevertAtTime is meaningful; after-hours
// takes precedence when both are present.
type Action struct {
	Type             ActionType      `json:"type"`
	BudgetMode       BudgetMode      `json:"budget_mode,omitempty"`
	Value            decimal.Decimal `json:"value,omitempty"`
	AutoRevert       bool            `json:"auto_revert,omitempty"`
	RevertAfterHours int             `json:"revert_after_hours,omitempty"`
	RevertAtTime     string          `json:"revert_at_time,omitempty"` // HH:MM in the tenant timezone
}

// ParseActions decodes and validates the JSON action list stored on a rule.
// Revert timing strings are validated later, at scheduling time, so a bad
// time string degrades to a scheduling warning instead of blocking the whole
// rule.
func ParseActions(raw string) ([]Action, error) {
	if strings.TrimSpace(raw) == "" || strings.TrimSpace(raw) == "[]" {
		return nil, newError(ErrKindConfiguration, "rule has no actions")
	}

	var actions []Action
	if err := json.Unmarshal([]byte(raw), &actions); err != nil {
		return nil, wrapError(ErrKindConfiguration, "invalid actions document", err)
	}
	if len(actions) == 0 {
		return nil, newError(ErrKindConfiguration, "rule has no actions")
	}

	for i, a := range actions {
		switch a.Type {
		case ActionTurnOff, ActionTurnOn:
		case ActionAdjustBudget:
			if a.BudgetMode != BudgetModePercentage && a.BudgetMode != BudgetModeFixed {
				return nil, newError(ErrKindConfiguration, fmt.Sprintf("action %d: unknown budget_mode %q", i, a.BudgetMode))
			}
		default:
			return nil, newError(ErrKindConfiguration, fmt.Sprintf("action %d: unknown action type %q", i, a.Type))
		}
	}

	return actions, nil
}

// NewBudget computes the budget an adjust_budget action yields from the
// current value. Percentage mode scales the old budget; fixed mode replaces
// it outright.
func (a *Action) NewBudget(old decimal.Decimal) decimal.Decimal {
	if a.BudgetMode == BudgetModeFixed {
		return a.Value
	}
	factor := decimal.NewFromInt(1).Add(a.Value.Div(decimal.NewFromInt(100)))
	return old.Mul(factor)
}

// revertPayload is the opaque state a revert needs to restore the exact prior
// value. For budget reverts it carries the budget that was in effect before
// the action ran, so repeated adjustments never compound into the restore.
type revertPayload struct {
	Budget string `json:"budget,omitempty"`
}

// Inverse returns the reverse action name and its payload. priorBudget is
// only consulted for adjust_budget.
func (a *Action) Inverse(priorBudget decimal.Decimal) (string, string, error) {
	switch a.Type {
	case ActionTurnOff:
		return string(ActionTurnOn), "", nil
	case ActionTurnOn:
		return string(ActionTurnOff), "", nil
	case ActionAdjustBudget:
		payload, err := json.Marshal(revertPayload{Budget: priorBudget.String()})
		if err != nil {
			return "", "", err
		}
		return string(ActionAdjustBudget), string(payload), nil
	}
	return "", "", fmt.Errorf("no inverse for action type %q", a.Type)
}
