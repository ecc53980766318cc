package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/huyndq/adpilot/internal/models"
	"github.com/shopspring/decimal"
)

func TestRunRuleEvaluationCycle_MatchAndApply(t *testing.T) {
	db := testDB(t)
	metrics := newFakeMetrics()
	platform := newFakePlatform()
	eng := testEngine(t, db, metrics, platform)

	metrics.snapshots["camp-hot"] = &models.MetricSnapshot{
		ObjectID: "camp-hot", Spend: decimal.NewFromInt(150000), Results: 1,
	}
	metrics.snapshots["camp-ok"] = &models.MetricSnapshot{
		ObjectID: "camp-ok", Spend: decimal.NewFromInt(40000), Results: 8,
	}

	rule := models.AutomationRule{
		Name:       "kill overspenders",
		OwnerID:    1,
		IsActive:   true,
		Scope:      models.ScopeCampaign,
		Conditions: `[{"metric":"spend","operator":">","value":100000}]`,
		Actions:    `[{"type":"turn_off"}]`,
	}
	if err := db.Create(&rule).Error; err != nil {
		t.Fatalf("cannot seed rule: %v", err)
	}

	summary, err := eng.RunRuleEvaluationCycle(context.Background(), nil)
	if err != nil {
		t.Fatalf("cycle returned error: %v", err)
	}
	if summary.RulesProcessed != 1 || summary.RulesFailed != 0 {
		t.Errorf("processed=%d failed=%d, expected 1/0", summary.RulesProcessed, summary.RulesFailed)
	}

	if active, ok := platform.status("camp-hot"); !ok || active {
		t.Error("camp-hot should have been turned off")
	}
	if _, ok := platform.status("camp-ok"); ok {
		t.Error("camp-ok did not match and must not be touched")
	}

	var entry models.ExecutionLogEntry
	if err := db.First(&entry, "rule_id = ?", rule.ID).Error; err != nil {
		t.Fatalf("execution log entry not written: %v", err)
	}
	if entry.Status != models.ExecStatusSuccess {
		t.Errorf("log status = %q, expected success", entry.Status)
	}
	if entry.MatchedCount != 1 || entry.ExecutedCount != 1 {
		t.Errorf("matched=%d executed=%d, expected 1/1", entry.MatchedCount, entry.ExecutedCount)
	}
}

func TestRunRuleEvaluationCycle_NoMatchIsSkipped(t *testing.T) {
	db := testDB(t)
	metrics := newFakeMetrics()
	eng := testEngine(t, db, metrics, newFakePlatform())

	metrics.snapshots["camp-1"] = &models.MetricSnapshot{ObjectID: "camp-1", Spend: decimal.NewFromInt(10)}

	rule := models.AutomationRule{
		Name: "never fires", OwnerID: 1, IsActive: true, Scope: models.ScopeCampaign,
		Conditions: `[{"metric":"spend","operator":">","value":999999}]`,
		Actions:    `[{"type":"turn_off"}]`,
	}
	db.Create(&rule)

	if _, err := eng.RunRuleEvaluationCycle(context.Background(), nil); err != nil {
		t.Fatalf("cycle returned error: %v", err)
	}

	var entry models.ExecutionLogEntry
	db.First(&entry, "rule_id = ?", rule.ID)
	if entry.Status != models.ExecStatusSkipped {
		t.Errorf("log status = %q, expected skipped", entry.Status)
	}
}

func TestRunRuleEvaluationCycle_NoCandidatesIsSkipped(t *testing.T) {
	db := testDB(t)
	eng := testEngine(t, db, newFakeMetrics(), newFakePlatform())

	rule := models.AutomationRule{
		Name: "empty scope", OwnerID: 1, IsActive: true, Scope: models.ScopeCampaign,
		Conditions: `[]`,
		Actions:    `[{"type":"turn_off"}]`,
	}
	db.Create(&rule)

	if _, err := eng.RunRuleEvaluationCycle(context.Background(), nil); err != nil {
		t.Fatalf("cycle returned error: %v", err)
	}

	var entry models.ExecutionLogEntry
	db.First(&entry, "rule_id = ?", rule.ID)
	if entry.Status != models.ExecStatusSkipped {
		t.Errorf("log status = %q, expected skipped when no objects are in scope", entry.Status)
	}
}

func TestRunRuleEvaluationCycle_ConfigErrorIsolated(t *testing.T) {
	db := testDB(t)
	metrics := newFakeMetrics()
	platform := newFakePlatform()
	eng := testEngine(t, db, metrics, platform)

	metrics.snapshots["camp-1"] = &models.MetricSnapshot{ObjectID: "camp-1", Spend: decimal.NewFromInt(150000)}

	bad := models.AutomationRule{
		Name: "broken", OwnerID: 1, IsActive: true, Scope: models.ScopeCampaign,
		Conditions: `[{"metric":"spend","operator":"~","value":1}]`,
		Actions:    `[{"type":"turn_off"}]`,
	}
	good := models.AutomationRule{
		Name: "works", OwnerID: 1, IsActive: true, Scope: models.ScopeCampaign,
		Conditions: `[{"metric":"spend","operator":">","value":100000}]`,
		Actions:    `[{"type":"turn_off"}]`,
	}
	db.Create(&bad)
	db.Create(&good)

	summary, err := eng.RunRuleEvaluationCycle(context.Background(), nil)
	if err != nil {
		t.Fatalf("cycle returned error: %v", err)
	}
	if summary.RulesProcessed != 2 || summary.RulesFailed != 1 {
		t.Errorf("processed=%d failed=%d, expected 2/1", summary.RulesProcessed, summary.RulesFailed)
	}

	var badEntry, goodEntry models.ExecutionLogEntry
	db.First(&badEntry, "rule_id = ?", bad.ID)
	db.First(&goodEntry, "rule_id = ?", good.ID)

	if badEntry.Status != models.ExecStatusFailed {
		t.Errorf("broken rule log status = %q, expected failed", badEntry.Status)
	}
	if badEntry.ErrorMessage == "" {
		t.Error("broken rule log entry should carry the parse error")
	}
	if goodEntry.Status != models.ExecStatusSuccess {
		t.Errorf("good rule log status = %q, expected success", goodEntry.Status)
	}
	if active, ok := platform.status("camp-1"); !ok || active {
		t.Error("good rule should still have acted on camp-1")
	}
}

func TestRunRuleEvaluationCycle_PartialOnActionFailure(t *testing.T) {
	db := testDB(t)
	metrics := newFakeMetrics()
	platform := newFakePlatform()
	eng := testEngine(t, db, metrics, platform)

	metrics.snapshots["camp-a"] = &models.MetricSnapshot{ObjectID: "camp-a", Spend: decimal.NewFromInt(200000)}
	metrics.snapshots["camp-b"] = &models.MetricSnapshot{ObjectID: "camp-b", Spend: decimal.NewFromInt(200000)}
	platform.failOn["camp-b"] = newError(ErrKindPlatformRejected, "object is archived")

	rule := models.AutomationRule{
		Name: "pause all", OwnerID: 1, IsActive: true, Scope: models.ScopeCampaign,
		Conditions: `[{"metric":"spend","operator":">","value":100000}]`,
		Actions:    `[{"type":"turn_off"}]`,
	}
	db.Create(&rule)

	if _, err := eng.RunRuleEvaluationCycle(context.Background(), nil); err != nil {
		t.Fatalf("cycle returned error: %v", err)
	}

	var entry models.ExecutionLogEntry
	db.First(&entry, "rule_id = ?", rule.ID)
	if entry.Status != models.ExecStatusPartial {
		t.Errorf("log status = %q, expected partial", entry.Status)
	}
	if entry.MatchedCount != 2 || entry.ExecutedCount != 1 {
		t.Errorf("matched=%d executed=%d, expected 2/1", entry.MatchedCount, entry.ExecutedCount)
	}
}

func TestRunRuleEvaluationCycle_MissingSnapshotSkipsObject(t *testing.T) {
	db := testDB(t)
	metrics := newFakeMetrics()
	platform := newFakePlatform()
	eng := testEngine(t, db, metrics, platform)

	// Label resolution can name objects that have no snapshot yet.
	metrics.labels["label-1"] = []string{"camp-synced", "camp-unsynced"}
	metrics.snapshots["camp-synced"] = &models.MetricSnapshot{ObjectID: "camp-synced", Spend: decimal.NewFromInt(200000)}

	rule := models.AutomationRule{
		Name: "labelled", OwnerID: 1, IsActive: true, Scope: models.ScopeCampaign,
		TargetLabelIDs: `["label-1"]`,
		Conditions:     `[{"metric":"spend","operator":">","value":100000}]`,
		Actions:        `[{"type":"turn_off"}]`,
	}
	db.Create(&rule)

	if _, err := eng.RunRuleEvaluationCycle(context.Background(), nil); err != nil {
		t.Fatalf("cycle returned error: %v", err)
	}

	if _, ok := platform.status("camp-unsynced"); ok {
		t.Error("object without a snapshot must not be acted on")
	}
	if active, ok := platform.status("camp-synced"); !ok || active {
		t.Error("synced object should have been turned off")
	}

	var entry models.ExecutionLogEntry
	db.First(&entry, "rule_id = ?", rule.ID)
	if entry.Status != models.ExecStatusSuccess {
		t.Errorf("log status = %q, expected success", entry.Status)
	}
	if entry.MatchedCount != 1 {
		t.Errorf("matched=%d, expected 1", entry.MatchedCount)
	}
}

func TestRunRuleEvaluationCycle_TenantFilter(t *testing.T) {
	db := testDB(t)
	metrics := newFakeMetrics()
	eng := testEngine(t, db, metrics, newFakePlatform())

	metrics.snapshots["camp-1"] = &models.MetricSnapshot{ObjectID: "camp-1", Spend: decimal.NewFromInt(1)}

	mine := models.AutomationRule{
		Name: "mine", OwnerID: 1, IsActive: true, Scope: models.ScopeCampaign,
		Conditions: `[]`, Actions: `[{"type":"turn_on"}]`,
	}
	theirs := models.AutomationRule{
		Name: "theirs", OwnerID: 2, IsActive: true, Scope: models.ScopeCampaign,
		Conditions: `[]`, Actions: `[{"type":"turn_on"}]`,
	}
	db.Create(&mine)
	db.Create(&theirs)

	tenant := uint(1)
	summary, err := eng.RunRuleEvaluationCycle(context.Background(), &tenant)
	if err != nil {
		t.Fatalf("cycle returned error: %v", err)
	}
	if summary.RulesProcessed != 1 {
		t.Errorf("processed=%d, expected only tenant 1's rule", summary.RulesProcessed)
	}
}

func TestRunRuleEvaluationCycle_InactiveRuleIgnored(t *testing.T) {
	db := testDB(t)
	eng := testEngine(t, db, newFakeMetrics(), newFakePlatform())

	rule := models.AutomationRule{
		Name: "disabled", OwnerID: 1, IsActive: false, Scope: models.ScopeCampaign,
		Conditions: `[]`, Actions: `[{"type":"turn_off"}]`,
	}
	db.Create(&rule)

	summary, err := eng.RunRuleEvaluationCycle(context.Background(), nil)
	if err != nil {
		t.Fatalf("cycle returned error: %v", err)
	}
	if summary.RulesProcessed != 0 {
		t.Errorf("processed=%d, expected 0 for inactive rules", summary.RulesProcessed)
	}

	var count int64
	db.Model(&models.ExecutionLogEntry{}).Count(&count)
	if count != 0 {
		t.Errorf("found %d log entries for an inactive rule", count)
	}
}

func TestRunRuleEvaluationCycle_SnapshotLookupErrorRecorded(t *testing.T) {
	db := testDB(t)
	metrics := newFakeMetrics()
	eng := testEngine(t, db, metrics, newFakePlatform())

	metrics.snapshots["camp-1"] = &models.MetricSnapshot{ObjectID: "camp-1"}
	metrics.failOn["camp-1"] = errors.New("insights backend down")

	rule := models.AutomationRule{
		Name: "blind rule", OwnerID: 1, IsActive: true, Scope: models.ScopeCampaign,
		Conditions: `[{"metric":"spend","operator":">","value":1}]`,
		Actions:    `[{"type":"turn_off"}]`,
	}
	db.Create(&rule)

	if _, err := eng.RunRuleEvaluationCycle(context.Background(), nil); err != nil {
		t.Fatalf("cycle returned error: %v", err)
	}

	var entry models.ExecutionLogEntry
	if err := db.First(&entry, "rule_id = ?", rule.ID).Error; err != nil {
		t.Fatalf("execution log entry not written: %v", err)
	}
	if entry.Status != models.ExecStatusSkipped {
		t.Errorf("log status = %q, expected skipped", entry.Status)
	}
	// The failed lookup must be distinguishable from "no snapshot yet" in
	// the per-object details.
	if !strings.Contains(entry.Details, "insights backend down") {
		t.Errorf("details should carry the lookup error, got %s", entry.Details)
	}
}

func TestRunRuleEvaluationCycle_BudgetAbortKeepsWrittenEntries(t *testing.T) {
	db := testDB(t)
	metrics := newFakeMetrics()
	platform := newFakePlatform()
	eng := testEngine(t, db, metrics, platform)

	metrics.snapshots["camp-1"] = &models.MetricSnapshot{
		ObjectID: "camp-1", Spend: decimal.NewFromInt(500),
	}

	for _, name := range []string{"first", "second"} {
		rule := models.AutomationRule{
			Name: name, OwnerID: 1, IsActive: true, Scope: models.ScopeCampaign,
			Conditions: `[{"metric":"spend","operator":">","value":1}]`,
			Actions:    `[{"type":"turn_off"}]`,
		}
		if err := db.Create(&rule).Error; err != nil {
			t.Fatalf("cannot seed rule %s: %v", name, err)
		}
	}

	// The first platform call burns the budget, as a slow cycle would.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	platform.onCall = cancel

	summary, err := eng.RunRuleEvaluationCycle(ctx, nil)
	if err != nil {
		t.Fatalf("cycle returned error: %v", err)
	}
	if !summary.Aborted {
		t.Error("summary should report the abort")
	}
	if summary.RulesProcessed != 1 {
		t.Errorf("processed=%d, expected only the first rule", summary.RulesProcessed)
	}

	// The entry written before the abort stays.
	var count int64
	db.Model(&models.ExecutionLogEntry{}).Count(&count)
	if count != 1 {
		t.Errorf("log entries = %d, expected the first rule's entry preserved", count)
	}
}
