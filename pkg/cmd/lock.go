package cmd

import (
	"log/slog"

	"github.com/nishchith-m1015/campaign-sync/pkg/lock"
)

// NewLocker creates the sweep advisory lock. A redis URL makes the lock
// effective across process instances; without one the lock is in-process
// only.
func NewLocker(redisURL string, logger *slog.Logger) lock.Locker {
	if redisURL == "" {
		logger.Warn("no redis URL configured, sweep lock is per-process only")

		return lock.NewLocalLocker()
	}

	locker, err := lock.NewRedisLocker(redisURL)
	if err != nil {
		panic("failed to initialize redis locker: " + err.Error())
	}

	return locker
}
