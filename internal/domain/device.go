package domain

import "time"

// DefaultCooldownHours применяется, когда у устройства нет строки настроек
// или значение не задано.
const DefaultCooldownHours = 48

type Device struct {
	ID            string    `json:"id"` // UUID
	DeviceName    string    `json:"device_name"`
	AndroidID     string    `json:"android_id"` // Уникален на весь флот, ключ идемпотентной регистрации
	DeviceToken   string    `json:"-"`          // JWT устройства, наружу не отдаем списками
	PolicyVersion int       `json:"policy_version"`
	IsRestricted  bool      `json:"is_restricted"`
	LastSeen      time.Time `json:"last_seen"`
	CreatedAt     time.Time `json:"created_at"`
}

// DeviceSettings — per-device конфигурация, включая переопределение кулдауна.
type DeviceSettings struct {
	DeviceID             string    `json:"device_id"`
	CooldownHours        int       `json:"cooldown_hours"`
	RequireAdminApproval bool      `json:"require_admin_approval"`
	VPNAlwaysOn          bool      `json:"vpn_always_on"`
	PreventFactoryReset  bool      `json:"prevent_factory_reset"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// SettingsPatch — частичное обновление настроек: nil-поля не трогаем (COALESCE в SQL).
type SettingsPatch struct {
	CooldownHours        *int  `json:"cooldown_hours,omitempty"`
	RequireAdminApproval *bool `json:"require_admin_approval,omitempty"`
	VPNAlwaysOn          *bool `json:"vpn_always_on,omitempty"`
	PreventFactoryReset  *bool `json:"prevent_factory_reset,omitempty"`
}

type AppPolicy struct {
	DeviceID        string    `json:"device_id"`
	PackageName     string    `json:"package_name"`
	AppName         string    `json:"app_name,omitempty"`
	IsBlocked       bool      `json:"is_blocked"`
	IsUninstallable bool      `json:"is_uninstallable"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type InstalledApp struct {
	PackageName string    `json:"package_name"`
	AppName     string    `json:"app_name"`
	VersionCode int       `json:"version_code"`
	VersionName string    `json:"version_name"`
	IsBlocked   bool      `json:"is_blocked"`
	IsUninstall bool      `json:"is_uninstallable"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type BlockedURL struct {
	ID          string    `json:"id"`
	DeviceID    string    `json:"device_id"`
	URLPattern  string    `json:"url_pattern"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// AccessibilityPolicy — блокировки на уровне Accessibility Service
// (жесты, шторка, настройки). Устройство применяет их локально.
type AccessibilityPolicy struct {
	DeviceID  string `json:"device_id"`
	LockType  string `json:"lock_type"`
	IsEnabled bool   `json:"is_enabled"`
}

// PolicyBundle — полный снимок политик, который устройство тянет одним запросом.
type PolicyBundle struct {
	Apps          []AppPolicy           `json:"apps"`
	URLs          []BlockedURL          `json:"urls"`
	Accessibility []AccessibilityPolicy `json:"accessibility"`
	Settings      *DeviceSettings       `json:"settings,omitempty"`
	PolicyVersion int                   `json:"policy_version"`
	IsRestricted  bool                  `json:"is_restricted"`
}

type Violation struct {
	ID            string         `json:"id"`
	DeviceID      string         `json:"device_id"`
	DeviceName    string         `json:"device_name,omitempty"`
	ViolationType string         `json:"violation_type"`
	Details       map[string]any `json:"details,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}
