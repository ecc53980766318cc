package models

import "time"

// SchedulerLock is a lease row guarding a cycle type against overlapping
// invocations. LockName identifies the cycle (evaluation, revert) and LockKey
// scopes it (tenant id or "global"). A lock is free once ExpiresAt has
// passed, so a crashed holder never wedges the scheduler.
type SchedulerLock struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	LockName  string    `gorm:"uniqueIndex:idx_lock_name_key;size:100;not null" json:"lock_name"`
	LockKey   string    `gorm:"uniqueIndex:idx_lock_name_key;size:100;not null" json:"lock_key"`
	LockedBy  string    `gorm:"size:100" json:"locked_by"`
	LockedAt  time.Time `json:"locked_at"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
}

func (SchedulerLock) TableName() string { return "scheduler_locks" }

// Expired reports whether the lease can be taken over at t.
func (l *SchedulerLock) Expired(t time.Time) bool {
	return l.ExpiresAt.Before(t)
}
