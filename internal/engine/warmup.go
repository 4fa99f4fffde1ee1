package engine

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// WarmupState синхронизирует два уровня кэша состояния студий: локальную
// память шлюза (L1) и разделяемый Redis-набор (L2). Источником истины служит
// список ID из PostgreSQL; вызывается при старте и при каждом переподключении
// слушателя сигналов.
func WarmupState(
	ctx context.Context,
	rdb *redis.Client,
	logger *zap.Logger,
	ids []string,
	redisKey string,
	lockKey string,
	updateL1 func([]string),
) error {
	// L1 обновляется всегда — шлюз обязан знать актуальное состояние,
	// даже если Redis недоступен.
	updateL1(ids)

	// SetNX: наполнять L2 должен ровно один инстанс шлюза
	ok, err := rdb.SetNX(ctx, lockKey, "processing", 30*time.Second).Result()
	if err != nil || !ok {
		// Сбой сети или кто-то уже держит блокировку — L2 не наша забота
		return nil
	}

	count, err := rdb.SCard(ctx, redisKey).Result()
	if err != nil {
		count = 0
		logger.Warn("redis set size unknown, continuing warm-up",
			zap.String("key", redisKey), zap.Error(err))
	}

	// Заливаем L2 только если он пуст, а в БД записи есть: непустой набор
	// считается прогретым другим инстансом.
	if count == 0 && len(ids) > 0 {
		logger.Info("seeding redis state set from the database",
			zap.String("key", redisKey), zap.Int("count", len(ids)))

		pipe := rdb.Pipeline()
		for _, id := range ids {
			pipe.SAdd(ctx, redisKey, id)
		}
		_, err = pipe.Exec(ctx)
		return err
	}

	return nil
}
