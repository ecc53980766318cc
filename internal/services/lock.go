package services

import (
	"time"

	"github.com/huyndq/adpilot/internal/models"
	"github.com/huyndq/adpilot/pkg/logger"
	"gorm.io/gorm"
)

// SchedulerLockService hands out lease rows that keep two invocations of the
// same cycle type from overlapping for the same key. A lease self-expires, so
// a crashed holder is taken over after its TTL instead of blocking forever.
type SchedulerLockService struct {
	db *gorm.DB
}

func NewSchedulerLockService(db *gorm.DB) *SchedulerLockService {
	return &SchedulerLockService{db: db}
}

// Acquire attempts to take the lease. It returns false when any live holder
// has it, including a previous invocation under the same holder string; a
// holder extends its own lease through Renew, never by re-acquiring.
func (s *SchedulerLockService) Acquire(name, key, holder string, ttl time.Duration) (bool, error) {
	now := time.Now()
	expires := now.Add(ttl)

	// Take over an expired lease.
	res := s.db.Model(&models.SchedulerLock{}).
		Where("lock_name = ? AND lock_key = ? AND expires_at < ?", name, key, now).
		Updates(map[string]interface{}{
			"locked_by":  holder,
			"locked_at":  now,
			"expires_at": expires,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	// No row to take over: either the lock is held live, or it has never
	// been created. Try to create it; a unique violation means we lost the
	// race, which is an ordinary "not acquired".
	lock := models.SchedulerLock{
		LockName:  name,
		LockKey:   key,
		LockedBy:  holder,
		LockedAt:  now,
		ExpiresAt: expires,
	}
	if err := s.db.Create(&lock).Error; err != nil {
		logger.Debug().Str("lock", name+"/"+key).Msg("lock not acquired")
		return false, nil
	}
	return true, nil
}

// Renew extends the lease while this holder still owns it. A false return
// means the lease expired and was taken over, so the caller has lost it.
func (s *SchedulerLockService) Renew(name, key, holder string, ttl time.Duration) (bool, error) {
	res := s.db.Model(&models.SchedulerLock{}).
		Where("lock_name = ? AND lock_key = ? AND locked_by = ?", name, key, holder).
		Update("expires_at", time.Now().Add(ttl))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Release frees the lease if this holder still owns it.
func (s *SchedulerLockService) Release(name, key, holder string) error {
	return s.db.Model(&models.SchedulerLock{}).
		Where("lock_name = ? AND lock_key = ? AND locked_by = ?", name, key, holder).
		Update("expires_at", time.Now()).Error
}
