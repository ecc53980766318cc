package engine

import (
	"context"
	"time"

	"github.com/huyndq/adpilot/internal/models"
	"github.com/huyndq/adpilot/pkg/logger"
)

// RunRevertCycle processes every pending revert whose due time has passed.
// Each row is claimed with a conditional status update before the reversal is
// applied, so overlapping cycles never double-apply the same row. Completed
// and failed are terminal; a failed revert is surfaced for manual
// intervention rather than retried.
func (e *Engine) RunRevertCycle(ctx context.Context) (*RevertSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.CycleBudget())
	defer cancel()

	now := e.now()
	summary := &RevertSummary{StartedAt: now}

	// A processing row whose claim has outlived a full cycle budget belongs
	// to a run that crashed between claim and finish. Requeue it so the due
	// scan below picks it up again instead of leaving it stranded.
	res := e.db.Model(&models.PendingRevert{}).
		Where("status = ? AND claimed_at < ?", models.RevertStatusProcessing, now.Add(-e.cfg.CycleBudget())).
		Updates(map[string]interface{}{
			"status":     models.RevertStatusPending,
			"claimed_by": "",
			"claimed_at": nil,
		})
	if res.Error != nil {
		logger.Errorf("[RevertCycle] cannot requeue stranded reverts: %v", res.Error)
	} else if res.RowsAffected > 0 {
		summary.Reclaimed = int(res.RowsAffected)
		logger.Warnf("[RevertCycle] requeued %d reverts stranded in processing", summary.Reclaimed)
	}

	var due []models.PendingRevert
	if err := e.db.Where("status = ? AND due_at <= ?", models.RevertStatusPending, now).
		Order("due_at ASC").Find(&due).Error; err != nil {
		return summary, wrapError(ErrKindDataUnavailable, "cannot list due pending reverts", err)
	}
	summary.Due = len(due)

	// A pending row still due from before the previous interval means a past
	// cycle stalled or crashed mid-run. Surface it; silence here would hide
	// an operational defect.
	staleBefore := now.Add(-e.revertInterval())
	for i := range due {
		if due[i].DueAt.Before(staleBefore) {
			summary.Stalled++
		}
	}
	if summary.Stalled > 0 {
		logger.Warnf("[RevertCycle] %d pending reverts overdue by more than one interval", summary.Stalled)
	}

	for i := range due {
		if ctx.Err() != nil {
			logger.Warnf("[RevertCycle] budget exceeded after %d/%d reverts", i, len(due))
			break
		}
		outcome := e.processRevert(ctx, &due[i])
		summary.Reverts = append(summary.Reverts, outcome)
		switch outcome.Status {
		case models.RevertStatusCompleted:
			summary.Completed++
		case models.RevertStatusFailed:
			summary.Failed++
		}
	}

	summary.FinishedAt = e.now()
	if summary.Due > 0 {
		logger.Infof("[RevertCycle] due=%d completed=%d failed=%d", summary.Due, summary.Completed, summary.Failed)
	}
	return summary, nil
}

func (e *Engine) revertInterval() time.Duration {
	if e.cfg.RevertEveryMin <= 0 {
		return time.Minute
	}
	return time.Duration(e.cfg.RevertEveryMin) * time.Minute
}

// processRevert claims one due row and applies its stored inverse.
func (e *Engine) processRevert(ctx context.Context, revert *models.PendingRevert) RevertOutcome {
	out := RevertOutcome{RevertID: revert.ID, ObjectID: revert.ObjectID}

	claimed, err := e.claimRevert(revert)
	if err != nil {
		out.Status = revert.Status
		out.Error = err.Error()
		return out
	}
	if !claimed {
		// Another invocation got here first. Detectable duplicate selection
		// is expected under at-least-once semantics; log it and move on.
		logger.Infof("[RevertCycle] revert %s already claimed, skipping", revert.ID)
		out.Status = models.RevertStatusProcessing
		return out
	}

	if err := e.executeRevert(ctx, revert); err != nil {
		logger.Errorf("[RevertCycle] revert %s for object %s failed: %v", revert.ID, revert.ObjectID, err)
		e.finishRevert(revert, models.RevertStatusFailed, err.Error())
		out.Status = models.RevertStatusFailed
		out.Error = err.Error()
		return out
	}

	e.finishRevert(revert, models.RevertStatusCompleted, "")
	out.Status = models.RevertStatusCompleted
	return out
}

// claimRevert transitions pending -> processing for exactly one holder. The
// conditional update is the row-level claim that keeps two overlapping revert
// cycles off the same row.
func (e *Engine) claimRevert(revert *models.PendingRevert) (bool, error) {
	now := e.now()
	res := e.db.Model(&models.PendingRevert{}).
		Where("id = ? AND status = ?", revert.ID, models.RevertStatusPending).
		Updates(map[string]interface{}{
			"status":     models.RevertStatusProcessing,
			"claimed_by": e.holder,
			"claimed_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	revert.Status = models.RevertStatusProcessing
	revert.ClaimedBy = e.holder
	revert.ClaimedAt = &now
	return true, nil
}

func (e *Engine) finishRevert(revert *models.PendingRevert, status models.RevertStatus, errMsg string) {
	if err := e.db.Model(&models.PendingRevert{}).
		Where("id = ?", revert.ID).
		Updates(map[string]interface{}{
			"status":        status,
			"error_message": errMsg,
		}).Error; err != nil {
		logger.Errorf("[RevertCycle] cannot update revert %s to %s: %v", revert.ID, status, err)
		return
	}
	revert.Status = status
	revert.ErrorMessage = errMsg
}

// ExecuteRevertNow lets an operator run one pending revert ahead of its due
// time. The same claim protocol applies.
func (e *Engine) ExecuteRevertNow(ctx context.Context, revertID string) (*RevertOutcome, error) {
	var revert models.PendingRevert
	if err := e.db.First(&revert, "id = ?", revertID).Error; err != nil {
		return nil, err
	}
	if revert.Status != models.RevertStatusPending {
		return nil, newError(ErrKindConfiguration, "revert is not pending")
	}
	out := e.processRevert(ctx, &revert)
	return &out, nil
}
