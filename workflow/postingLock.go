package workflow

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/corefin/erpledger_backend/config"
	"github.com/sirupsen/logrus"
)

// AcquireBusinessPostingLock serializes posting per business across instances.
// A Redis lock is taken first as a best-effort optimization to avoid long
// in-request blocking; correctness does not depend on Redis because posting is
// also serialized via MySQL advisory locks. The returned release func must be
// deferred by the caller.
// NOTE: GET_LOCK is session-scoped, so the lock is taken on a dedicated
// pinned connection that is held until release. Releasing elsewhere (or on a
// committed transaction) would leave the lock held by the pooled session.
func AcquireBusinessPostingLock(ctx context.Context, businessId string) (func(), error) {
	logger := config.GetLogger()
	lockName := fmt.Sprintf("posting:%s", businessId)

	var redisLock *redislock.Lock
	if locker := config.GetRedisLock(); locker != nil {
		lock, err := locker.Obtain(ctx, lockName, 30*time.Second, nil)
		if err == redislock.ErrNotObtained || err != nil {
			logger.WithFields(logrus.Fields{
				"business_id": businessId,
			}).Warn("could not obtain redis posting lock; proceeding with advisory lock only")
		} else {
			redisLock = lock
		}
	}

	sqlDB, err := config.GetDB().DB()
	if err != nil {
		releaseRedisLock(ctx, redisLock)
		return nil, err
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		releaseRedisLock(ctx, redisLock)
		return nil, err
	}

	var ok sql.NullInt64
	if err := conn.QueryRowContext(ctx, "SELECT GET_LOCK(?, 30)", lockName).Scan(&ok); err != nil {
		_ = conn.Close()
		releaseRedisLock(ctx, redisLock)
		return nil, err
	}
	if !ok.Valid || ok.Int64 != 1 {
		_ = conn.Close()
		releaseRedisLock(ctx, redisLock)
		return nil, fmt.Errorf("could not acquire posting lock for business_id=%s", businessId)
	}

	release := func() {
		var released sql.NullInt64
		_ = conn.QueryRowContext(context.Background(), "SELECT RELEASE_LOCK(?)", lockName).Scan(&released)
		_ = conn.Close()
		releaseRedisLock(ctx, redisLock)
	}
	return release, nil
}

func releaseRedisLock(ctx context.Context, lock *redislock.Lock) {
	if lock != nil {
		_ = lock.Release(ctx)
	}
}
