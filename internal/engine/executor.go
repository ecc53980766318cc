package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/huyndq/adpilot/internal/models"
	"github.com/huyndq/adpilot/pkg/logger"
	"github.com/shopspring/decimal"
)

// applyAction executes one action against one object and, when the action is
// configured to auto-revert, persists the scheduled inverse. A platform
// rejection is recorded on the outcome, never raised, so one object's failure
// cannot abort the owning rule.
func (e *Engine) applyAction(ctx context.Context, rule *models.AutomationRule, act Action, objectID string) ActionOutcome {
	out := ActionOutcome{Type: act.Type}

	var priorBudget decimal.Decimal

	switch act.Type {
	case ActionTurnOff:
		if err := e.platform.UpdateStatus(ctx, objectID, false); err != nil {
			return failedOutcome(out, err)
		}
	case ActionTurnOn:
		if err := e.platform.UpdateStatus(ctx, objectID, true); err != nil {
			return failedOutcome(out, err)
		}
	case ActionAdjustBudget:
		old, err := e.platform.GetBudget(ctx, objectID)
		if err != nil {
			return failedOutcome(out, err)
		}
		priorBudget = old
		if err := e.platform.UpdateBudget(ctx, objectID, act.NewBudget(old)); err != nil {
			return failedOutcome(out, err)
		}
	default:
		out.ErrKind = ErrKindConfiguration
		out.Message = fmt.Sprintf("unknown action type %q", act.Type)
		return out
	}

	out.Success = true

	if act.AutoRevert {
		revertID, err := e.scheduleRevert(rule, act, objectID, priorBudget)
		if err != nil {
			// The action itself succeeded; the operator needs to know a
			// manual revert is required.
			out.ErrKind = ErrKindScheduling
			out.Message = err.Error()
			logger.Warnf("[RuleEngine] rule %d object %s: action applied but revert not scheduled: %v",
				rule.ID, objectID, err)
		} else {
			out.RevertID = revertID
		}
	}

	return out
}

func failedOutcome(out ActionOutcome, err error) ActionOutcome {
	out.Success = false
	out.ErrKind = KindOf(err)
	if out.ErrKind == "" {
		out.ErrKind = ErrKindPlatformRejected
	}
	out.Message = err.Error()
	return out
}

// scheduleRevert computes the due time and inserts the PendingRevert row.
func (e *Engine) scheduleRevert(rule *models.AutomationRule, act Action, objectID string, priorBudget decimal.Decimal) (string, error) {
	dueAt, err := e.computeDueAt(e.now(), act)
	if err != nil {
		return "", err
	}

	revertAction, revertValue, err := act.Inverse(priorBudget)
	if err != nil {
		return "", wrapError(ErrKindScheduling, "cannot compute inverse action", err)
	}

	revert := models.PendingRevert{
		ID:           uuid.NewString(),
		RuleID:       rule.ID,
		ObjectID:     objectID,
		ObjectType:   rule.Scope,
		RevertAction: revertAction,
		RevertValue:  revertValue,
		DueAt:        dueAt,
		Status:       models.RevertStatusPending,
	}
	if err := e.db.Create(&revert).Error; err != nil {
		return "", wrapError(ErrKindScheduling, "cannot persist pending revert", err)
	}

	logger.Infof("[RuleEngine] scheduled revert %s for object %s at %s", revert.ID, objectID, dueAt.Format(time.RFC3339))
	return revert.ID, nil
}

// computeDueAt resolves the revert due time. Times of day are interpreted in
// the tenant timezone and the result is converted to the reference frame here
// and nowhere else, so every stored due_at compares against "now" with plain
// numeric comparison.
func (e *Engine) computeDueAt(now time.Time, act Action) (time.Time, error) {
	if act.RevertAfterHours > 0 {
		return now.Add(time.Duration(act.RevertAfterHours) * time.Hour).In(e.refLoc), nil
	}

	if act.RevertAtTime == "" {
		return time.Time{}, newError(ErrKindScheduling, "auto_revert set but no revert timing configured")
	}

	at, err := time.Parse("15:04", act.RevertAtTime)
	if err != nil {
		return time.Time{}, wrapError(ErrKindScheduling, fmt.Sprintf("invalid revert_at_time %q", act.RevertAtTime), err)
	}

	local := now.In(e.tenantLoc)
	due := time.Date(local.Year(), local.Month(), local.Day(), at.Hour(), at.Minute(), 0, 0, e.tenantLoc)
	if !due.After(local) {
		due = due.Add(24 * time.Hour)
	}
	return due.In(e.refLoc), nil
}

// executeRevert applies the stored inverse of a claimed pending revert.
func (e *Engine) executeRevert(ctx context.Context, revert *models.PendingRevert) error {
	switch ActionType(revert.RevertAction) {
	case ActionTurnOn:
		return e.platform.UpdateStatus(ctx, revert.ObjectID, true)
	case ActionTurnOff:
		return e.platform.UpdateStatus(ctx, revert.ObjectID, false)
	case ActionAdjustBudget:
		var payload revertPayload
		if err := json.Unmarshal([]byte(revert.RevertValue), &payload); err != nil {
			return wrapError(ErrKindConfiguration, "invalid revert payload", err)
		}
		budget, err := decimal.NewFromString(payload.Budget)
		if err != nil {
			return wrapError(ErrKindConfiguration, fmt.Sprintf("invalid revert budget %q", payload.Budget), err)
		}
		return e.platform.UpdateBudget(ctx, revert.ObjectID, budget)
	}
	return newError(ErrKindConfiguration, fmt.Sprintf("unknown revert action %q", revert.RevertAction))
}
