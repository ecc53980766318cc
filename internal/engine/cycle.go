package engine

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"github.com/huyndq/adpilot/internal/models"
	"github.com/huyndq/adpilot/pkg/logger"
)

// RunRuleEvaluationCycle evaluates every active rule (optionally narrowed to
// one tenant) once. Rule failures are isolated into their own execution log
// entries; only the inability to list rules at all fails the invocation. The
// cycle stops starting new rules once its wall-clock budget is spent but
// keeps every log entry already written.
func (e *Engine) RunRuleEvaluationCycle(ctx context.Context, tenantID *uint) (*CycleSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.CycleBudget())
	defer cancel()

	summary := &CycleSummary{StartedAt: e.now()}

	query := e.db.Where("is_active = ?", true)
	if tenantID != nil {
		query = query.Where("owner_id = ?", *tenantID)
	}
	var rules []models.AutomationRule
	if err := query.Find(&rules).Error; err != nil {
		return summary, wrapError(ErrKindDataUnavailable, "cannot list active rules", err)
	}

	logger.Infof("[RuleEngine] cycle started: %d active rules", len(rules))

	for i := range rules {
		if ctx.Err() != nil {
			summary.Aborted = true
			logger.Warnf("[RuleEngine] cycle budget exceeded after %d/%d rules", i, len(rules))
			break
		}

		outcome := e.evaluateRule(ctx, &rules[i])
		summary.Rules = append(summary.Rules, outcome.RuleOutcome)
		summary.RulesProcessed++
		if outcome.Status == models.ExecStatusFailed {
			summary.RulesFailed++
		}

		e.appendLog(&rules[i], outcome)
	}

	summary.FinishedAt = e.now()
	logger.Infof("[RuleEngine] cycle finished: processed=%d failed=%d aborted=%v",
		summary.RulesProcessed, summary.RulesFailed, summary.Aborted)
	return summary, nil
}

// ruleEvaluation is the full per-rule result, including the per-object detail
// that goes into the execution log.
type ruleEvaluation struct {
	RuleOutcome
	Objects []ObjectOutcome
}

func (e *Engine) evaluateRule(ctx context.Context, rule *models.AutomationRule) ruleEvaluation {
	eval := ruleEvaluation{RuleOutcome: RuleOutcome{RuleID: rule.ID, RuleName: rule.Name}}

	conds, err := ParseConditions(rule.Conditions)
	if err != nil {
		eval.Status = models.ExecStatusFailed
		eval.Error = err.Error()
		return eval
	}
	actions, err := ParseActions(rule.Actions)
	if err != nil {
		eval.Status = models.ExecStatusFailed
		eval.Error = err.Error()
		return eval
	}

	candidates, err := e.resolveCandidates(ctx, rule)
	if err != nil {
		eval.Status = models.ExecStatusFailed
		eval.Error = err.Error()
		return eval
	}
	if len(candidates) == 0 {
		eval.Status = models.ExecStatusSkipped
		return eval
	}

	eval.Objects = e.processObjects(ctx, rule, conds, actions, candidates)

	failedActions := 0
	for _, obj := range eval.Objects {
		if obj.Matched {
			eval.MatchedCount++
		}
		for _, act := range obj.Actions {
			if act.Success {
				eval.ExecutedCount++
			} else {
				failedActions++
			}
		}
	}

	switch {
	case eval.MatchedCount == 0:
		eval.Status = models.ExecStatusSkipped
	case failedActions > 0:
		eval.Status = models.ExecStatusPartial
	default:
		eval.Status = models.ExecStatusSuccess
	}
	return eval
}

// resolveCandidates returns the object IDs the rule applies to: the label
// targets intersected with the rule's scope when labels are set, otherwise
// every object in scope for the owner.
func (e *Engine) resolveCandidates(ctx context.Context, rule *models.AutomationRule) ([]string, error) {
	labelIDs, err := parseLabelIDs(rule.TargetLabelIDs)
	if err != nil {
		return nil, wrapError(ErrKindConfiguration, "invalid target_label_ids document", err)
	}

	var ids []string
	if len(labelIDs) > 0 {
		ids, err = e.labels.ResolveLabelObjects(ctx, labelIDs, rule.Scope)
	} else {
		ids, err = e.metrics.ListObjects(ctx, rule.OwnerID, rule.Scope, e.reportingDate())
	}
	if err != nil {
		return nil, wrapError(ErrKindDataUnavailable, "cannot resolve candidate objects", err)
	}

	sort.Strings(ids)
	return ids, nil
}

func parseLabelIDs(raw string) ([]string, error) {
	if raw == "" || raw == "[]" {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// processObjects fetches snapshots, evaluates conditions, and applies actions
// with bounded concurrency. Per-object order in the result is stable so log
// entries stay readable.
func (e *Engine) processObjects(ctx context.Context, rule *models.AutomationRule, conds []Condition, actions []Action, candidates []string) []ObjectOutcome {
	concurrency := e.cfg.ObjectConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	outcomes := make([]ObjectOutcome, len(candidates))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	date := e.reportingDate()
	for i, objectID := range candidates {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, objectID string) {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[i] = e.processObject(ctx, rule, conds, actions, objectID, date)
		}(i, objectID)
	}
	wg.Wait()

	return outcomes
}

func (e *Engine) processObject(ctx context.Context, rule *models.AutomationRule, conds []Condition, actions []Action, objectID, date string) ObjectOutcome {
	out := ObjectOutcome{ObjectID: objectID}

	snap, err := e.metrics.GetSnapshot(ctx, objectID, rule.Scope, date)
	if err != nil {
		// No snapshot yet is a skip, not a failure; the sync job simply has
		// not caught up for this object. A lookup that errored is also a
		// skip, but the error goes on the record so the log can tell the
		// two apart.
		if !errors.Is(err, ErrSnapshotNotFound) {
			logger.Warnf("[RuleEngine] rule %d object %s: snapshot lookup failed: %v", rule.ID, objectID, err)
			out.Error = err.Error()
		}
		out.Skipped = true
		return out
	}

	if !EvaluateConditions(conds, snap) {
		return out
	}
	out.Matched = true

	for _, act := range actions {
		out.Actions = append(out.Actions, e.applyAction(ctx, rule, act, objectID))
	}
	return out
}

// appendLog writes the per-rule execution log entry. Log writes themselves
// must not fail the cycle; a write error is logged and evaluation moves on.
func (e *Engine) appendLog(rule *models.AutomationRule, eval ruleEvaluation) {
	details, err := json.Marshal(eval.Objects)
	if err != nil {
		details = []byte("[]")
	}

	entry := models.ExecutionLogEntry{
		RuleID:        rule.ID,
		ExecutedAt:    e.now(),
		Status:        eval.Status,
		MatchedCount:  eval.MatchedCount,
		ExecutedCount: eval.ExecutedCount,
		Details:       string(details),
		ErrorMessage:  eval.Error,
	}
	if err := e.db.Create(&entry).Error; err != nil {
		logger.Errorf("[RuleEngine] rule %d: cannot append execution log: %v", rule.ID, err)
	}
}
