package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/huyndq/adpilot/internal/config"
	"github.com/huyndq/adpilot/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// fakePlatform records every call and can be told to reject objects. onCall,
// when set, runs at the start of every API call.
type fakePlatform struct {
	mu       sync.Mutex
	statuses map[string]bool
	budgets  map[string]decimal.Decimal
	failOn   map[string]error
	calls    []string
	onCall   func()
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		statuses: make(map[string]bool),
		budgets:  make(map[string]decimal.Decimal),
		failOn:   make(map[string]error),
	}
}

func (p *fakePlatform) UpdateStatus(ctx context.Context, objectID string, active bool) error {
	if p.onCall != nil {
		p.onCall()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failOn[objectID]; err != nil {
		return err
	}
	p.statuses[objectID] = active
	p.calls = append(p.calls, fmt.Sprintf("status:%s:%v", objectID, active))
	return nil
}

func (p *fakePlatform) GetBudget(ctx context.Context, objectID string) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failOn[objectID]; err != nil {
		return decimal.Zero, err
	}
	return p.budgets[objectID], nil
}

func (p *fakePlatform) UpdateBudget(ctx context.Context, objectID string, budget decimal.Decimal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failOn[objectID]; err != nil {
		return err
	}
	p.budgets[objectID] = budget
	p.calls = append(p.calls, fmt.Sprintf("budget:%s:%s", objectID, budget))
	return nil
}

func (p *fakePlatform) status(objectID string) (bool, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.statuses[objectID]
	return v, ok
}

func (p *fakePlatform) budget(objectID string) decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.budgets[objectID]
}

// fakeMetrics serves snapshots from an in-memory map keyed by object ID.
// failOn injects lookup errors per object.
type fakeMetrics struct {
	snapshots map[string]*models.MetricSnapshot
	labels    map[string][]string
	failOn    map[string]error
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		snapshots: make(map[string]*models.MetricSnapshot),
		labels:    make(map[string][]string),
		failOn:    make(map[string]error),
	}
}

func (m *fakeMetrics) GetSnapshot(ctx context.Context, objectID string, level models.Scope, date string) (*models.MetricSnapshot, error) {
	if err := m.failOn[objectID]; err != nil {
		return nil, err
	}
	snap, ok := m.snapshots[objectID]
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	return snap, nil
}

func (m *fakeMetrics) ListObjects(ctx context.Context, ownerID uint, level models.Scope, date string) ([]string, error) {
	var ids []string
	for id := range m.snapshots {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *fakeMetrics) ResolveLabelObjects(ctx context.Context, labelIDs []string, level models.Scope) ([]string, error) {
	var ids []string
	for _, labelID := range labelIDs {
		ids = append(ids, m.labels[labelID]...)
	}
	return ids, nil
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("cannot open test database: %v", err)
	}
	if err := db.AutoMigrate(
		&models.AutomationRule{},
		&models.MetricSnapshot{},
		&models.ExecutionLogEntry{},
		&models.PendingRevert{},
	); err != nil {
		t.Fatalf("cannot migrate test database: %v", err)
	}
	return db
}

func testEngine(t *testing.T, db *gorm.DB, metrics *fakeMetrics, platform *fakePlatform) *Engine {
	t.Helper()
	cfg := &config.EngineConfig{
		ReferenceTimezone: "UTC",
		TenantTimezone:    "Asia/Ho_Chi_Minh",
		RevertEveryMin:    1,
		ObjectConcurrency: 2,
	}
	eng, err := New(db, metrics, metrics, platform, cfg)
	if err != nil {
		t.Fatalf("cannot build engine: %v", err)
	}
	return eng
}

func TestNew_InvalidTimezone(t *testing.T) {
	cfg := &config.EngineConfig{ReferenceTimezone: "Mars/Olympus", TenantTimezone: "UTC"}
	if _, err := New(nil, nil, nil, nil, cfg); err == nil {
		t.Error("expected error for unknown reference timezone")
	}

	cfg = &config.EngineConfig{ReferenceTimezone: "UTC", TenantTimezone: "nope"}
	if _, err := New(nil, nil, nil, nil, cfg); err == nil {
		t.Error("expected error for unknown tenant timezone")
	}
}

func TestEngine_ReportingDate_TenantFrame(t *testing.T) {
	eng := testEngine(t, testDB(t), newFakeMetrics(), newFakePlatform())

	// 20:00 UTC on Jan 1 is already Jan 2 in Asia/Ho_Chi_Minh (UTC+7).
	eng.now = func() time.Time {
		return time.Date(2025, 1, 1, 20, 0, 0, 0, time.UTC)
	}
	if got := eng.reportingDate(); got != "2025-01-02" {
		t.Errorf("reportingDate = %q, expected 2025-01-02", got)
	}
}
