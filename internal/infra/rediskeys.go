package infra

import "fmt"

const (
	// RedisNamespace — базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "atelier"
)

// Ключи для Sets (состояние)
const (
	RedisKeyLockedStudios     = RedisNamespace + ":studios:locked_set"
	RedisKeyLockWarmupLockout = RedisNamespace + ":lock:warmup:lockout"
)

// Каналы Pub/Sub (события)
const (
	// RedisChanApprovalDecisions — канал для трансляции решений оператора (HITL).
	RedisChanApprovalDecisions = RedisNamespace + ":proposals:decisions"
	RedisChanLockout           = RedisNamespace + ":studios:lockout-signal"
	RedisChanPolicyUpdate      = RedisNamespace + ":policies:update"
)

// GetWarmupLockKey — генератор ключей для блокировок (если нужны динамические)
func GetWarmupLockKey(resource string) string {
	return fmt.Sprintf("%s:lock:warmup:%s", RedisNamespace, resource)
}
