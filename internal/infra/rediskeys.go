package infra

import "fmt"

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "devguard"
)

// Каналы Pub/Sub (события)
const (
	// RedisChanPolicyUpdate — широковещательный сигнал "политики изменились, перечитайте".
	RedisChanPolicyUpdate = RedisNamespace + ":policy-update"

	// RedisChanApprovalDecisions — префикс каналов решений по заявкам.
	// Полный канал строится через DeviceApprovalChan.
	RedisChanApprovalDecisions = RedisNamespace + ":approvals"
)

// DeviceApprovalChan — канал решений для конкретного устройства.
// Push-уведомление best-effort: устройство все равно опрашивает checkStatus.
func DeviceApprovalChan(deviceID string) string {
	return fmt.Sprintf("%s:device:%s", RedisChanApprovalDecisions, deviceID)
}
