package engine

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/huyndq/adpilot/internal/config"
	"github.com/huyndq/adpilot/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MetricSource supplies performance snapshots and the object inventory for a
// tenant. Implemented over the tables the external sync job maintains.
type MetricSource interface {
	// GetSnapshot returns the snapshot for one object on one reporting day,
	// or ErrSnapshotNotFound when the sync job has not produced one yet.
	GetSnapshot(ctx context.Context, objectID string, level models.Scope, date string) (*models.MetricSnapshot, error)
	// ListObjects returns every object of the given level owned by the
	// tenant that has a snapshot for the reporting day.
	ListObjects(ctx context.Context, ownerID uint, level models.Scope, date string) ([]string, error)
}

// LabelResolver maps label IDs to the objects currently assigned them.
type LabelResolver interface {
	ResolveLabelObjects(ctx context.Context, labelIDs []string, level models.Scope) ([]string, error)
}

// PlatformClient is the ad platform capability the executor acts through.
type PlatformClient interface {
	UpdateStatus(ctx context.Context, objectID string, active bool) error
	GetBudget(ctx context.Context, objectID string) (decimal.Decimal, error)
	UpdateBudget(ctx context.Context, objectID string, budget decimal.Decimal) error
}

// Engine evaluates automation rules and processes scheduled reverts. It is
// built once at process start and holds no mutable state between cycle
// invocations; everything durable lives in the database.
type Engine struct {
	db       *gorm.DB
	metrics  MetricSource
	labels   LabelResolver
	platform PlatformClient
	cfg      *config.EngineConfig

	refLoc    *time.Location
	tenantLoc *time.Location
	holder    string

	now func() time.Time
}

// New wires an Engine. The reference and tenant timezones are resolved here,
// once; every stored due time is produced in the reference frame.
func New(db *gorm.DB, metrics MetricSource, labels LabelResolver, platform PlatformClient, cfg *config.EngineConfig) (*Engine, error) {
	refLoc, err := time.LoadLocation(cfg.ReferenceTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid reference timezone %q: %w", cfg.ReferenceTimezone, err)
	}
	tenantLoc, err := time.LoadLocation(cfg.TenantTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid tenant timezone %q: %w", cfg.TenantTimezone, err)
	}

	hostname, _ := os.Hostname()

	return &Engine{
		db:        db,
		metrics:   metrics,
		labels:    labels,
		platform:  platform,
		cfg:       cfg,
		refLoc:    refLoc,
		tenantLoc: tenantLoc,
		holder:    fmt.Sprintf("%s-%s", hostname, uuid.NewString()[:8]),
		now:       time.Now,
	}, nil
}

// Holder identifies this engine instance in lock and claim rows.
func (e *Engine) Holder() string { return e.holder }

// reportingDate is the current reporting day in the tenant's frame.
func (e *Engine) reportingDate() string {
	return e.now().In(e.tenantLoc).Format("2006-01-02")
}

// ActionOutcome is the result of applying one action to one object.
type ActionOutcome struct {
	Type     ActionType `json:"type"`
	Success  bool       `json:"success"`
	ErrKind  ErrKind    `json:"err_kind,omitempty"`
	Message  string     `json:"message,omitempty"`
	RevertID string     `json:"revert_id,omitempty"`
}

// ObjectOutcome is the per-object record kept in an execution log entry.
// Error distinguishes a skip caused by a failed snapshot lookup from the
// ordinary "no snapshot yet"; the log entry is the only place an operator
// can see the difference.
type ObjectOutcome struct {
	ObjectID string          `json:"object_id"`
	Skipped  bool            `json:"skipped,omitempty"` // no snapshot this cycle
	Error    string          `json:"error,omitempty"`
	Matched  bool            `json:"matched"`
	Actions  []ActionOutcome `json:"actions,omitempty"`
}

// RuleOutcome summarizes one rule within a cycle.
type RuleOutcome struct {
	RuleID        uint                   `json:"rule_id"`
	RuleName      string                 `json:"rule_name"`
	Status        models.ExecutionStatus `json:"status"`
	MatchedCount  int                    `json:"matched_count"`
	ExecutedCount int                    `json:"executed_count"`
	Error         string                 `json:"error,omitempty"`
}

// CycleSummary is returned by RunRuleEvaluationCycle for the caller to log or
// alert on.
type CycleSummary struct {
	StartedAt      time.Time     `json:"started_at"`
	FinishedAt     time.Time     `json:"finished_at"`
	RulesProcessed int           `json:"rules_processed"`
	RulesFailed    int           `json:"rules_failed"`
	Aborted        bool          `json:"aborted"` // wall-clock budget exceeded
	Rules          []RuleOutcome `json:"rules"`
}

// RevertOutcome summarizes one pending revert within a revert cycle.
type RevertOutcome struct {
	RevertID string              `json:"revert_id"`
	ObjectID string              `json:"object_id"`
	Status   models.RevertStatus `json:"status"`
	Error    string              `json:"error,omitempty"`
}

// RevertSummary is returned by RunRevertCycle.
type RevertSummary struct {
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Due        int             `json:"due"`
	Completed  int             `json:"completed"`
	Failed     int             `json:"failed"`
	Stalled    int             `json:"stalled"`   // pending past due by more than one interval
	Reclaimed  int             `json:"reclaimed"` // processing rows requeued after a crashed claim
	Reverts    []RevertOutcome `json:"reverts"`
}
