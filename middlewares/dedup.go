package middlewares

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/netresearch/ofelia/core"
)

// NotificationDedup provides deduplication of error notifications.
// It tracks recent error notifications and suppresses duplicates within
// a configurable cooldown period to prevent notification spam.
type NotificationDedup struct {
	cooldown time.Duration
	entries  map[string]time.Time
	mu       sync.RWMutex
}

// NewNotificationDedup creates a new notification deduplicator with the
// specified cooldown period. If cooldown is 0, deduplication is disabled
// and all notifications are allowed.
func NewNotificationDedup(cooldown time.Duration) *NotificationDedup {
	return &NotificationDedup{
		cooldown: cooldown,
		entries:  make(map[string]time.Time),
	}
}

// ShouldNotify returns true if the notification should be sent, false if it
// should be suppressed as a duplicate. Successful executions always return
// true (no deduplication for success). Failed jobs are deduplicated based
// on route name and error message.
func (d *NotificationDedup) ShouldNotify(jc *core.JobContext, jobErr error) bool {
	if d.cooldown == 0 {
		return true
	}
	if jobErr == nil {
		return true
	}

	key := d.generateKey(jc, jobErr)

	d.mu.Lock()
	defer d.mu.Unlock()

	lastNotified, exists := d.entries[key]
	now := time.Now()

	if !exists || now.Sub(lastNotified) >= d.cooldown {
		d.entries[key] = now
		return true
	}

	return false
}

// generateKey creates a unique key for deduplication based on route name
// and error message, so unrelated routes never collide.
func (d *NotificationDedup) generateKey(jc *core.JobContext, jobErr error) string {
	h := sha256.New()
	h.Write([]byte(jc.Job.RouteName()))
	h.Write([]byte(jobErr.Error()))
	return hex.EncodeToString(h.Sum(nil))
}

// Cleanup removes expired entries from the deduplication map.
// This should be called periodically to prevent memory leaks for
// jobs that no longer fail.
func (d *NotificationDedup) Cleanup() {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	for key, lastNotified := range d.entries {
		if now.Sub(lastNotified) >= d.cooldown {
			delete(d.entries, key)
		}
	}
}

// Len returns the number of entries in the deduplication map.
// Useful for testing and monitoring.
func (d *NotificationDedup) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}

// StartCleanupRoutine starts a background goroutine that periodically
// cleans up expired entries. Returns a stop function to cancel the routine.
func (d *NotificationDedup) StartCleanupRoutine(interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				d.Cleanup()
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() {
		close(done)
	}
}
