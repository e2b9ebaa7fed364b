package model

import "time"

// BackgroundPolicy controls how the Engine behaves once the host app is
// backgrounded (platform-reported via the lifecycle collector).
type BackgroundPolicy int

const (
	BackgroundContinue BackgroundPolicy = iota
	BackgroundPause
	BackgroundStop
)

// Collector is a bitmask flag identifying one automatic collector.
type Collector uint32

const (
	CollectorNetwork Collector = 1 << iota
	CollectorLifecycle
	CollectorUI
	CollectorPerformance
	CollectorCrash
)

// FilterConfig is the global/per-category level gate (orig §3, §4.2).
type FilterConfig struct {
	GlobalMinLevel     LogLevel            `yaml:"global_min_level"`
	PerCategoryMinimum map[string]LogLevel `yaml:"per_category_minimum"`
	DisabledCategories map[string]struct{} `yaml:"-"`
}

// TransportConfig configures the WebSocket server, Bonjour advertiser, and
// pairing manager (orig §3, §4.3, §4.4, §4.5, §4.6).
type TransportConfig struct {
	Port                int           `yaml:"port"`
	BonjourServiceName  string        `yaml:"bonjour_service_name"`
	AnonymizeDeviceName bool          `yaml:"anonymize_device_name"`
	AdvertiseAppName    bool          `yaml:"advertise_app_name"`
	MaxConnections      int           `yaml:"max_connections"`
	HeartbeatInterval   time.Duration `yaml:"heartbeat_interval"`
	RequiresPairing     bool          `yaml:"requires_pairing"`
	FixedPIN            string        `yaml:"fixed_pin"`
	MaxAttempts         int           `yaml:"max_attempts"`
	CooldownDuration    time.Duration `yaml:"cooldown_duration"`
}

// FileProtectionClass mirrors the platform's data-at-rest protection
// levels (orig §4.7); a no-op on platforms without the facility.
type FileProtectionClass int

const (
	ProtectionComplete FileProtectionClass = iota
	ProtectionCompleteUntilFirstUserAuthentication
)

// PersistenceConfig configures the on-disk journal (orig §3, §4.7).
type PersistenceConfig struct {
	Enabled          bool                `yaml:"enabled"`
	Directory        string              `yaml:"directory"`
	MaxFileSize      int64               `yaml:"max_file_size"`
	MaxFileCount     int                 `yaml:"max_file_count"`
	MaxRetention     time.Duration       `yaml:"max_retention"`
	FlushOnConnect   bool                `yaml:"flush_on_connect"`
	MaxReplayEntries int                 `yaml:"max_replay_entries"`
	Protection       FileProtectionClass `yaml:"protection"`
	CompressSealed   bool                `yaml:"compress_sealed"`
}

// PrivacyConfig drives pkg/redact (orig §3, §4.10).
type PrivacyConfig struct {
	RedactedHeaderNames []string `yaml:"redacted_header_names"`
	RedactedMetadataKeys []string `yaml:"redacted_metadata_keys"`
	RedactedQueryParams []string `yaml:"redacted_query_params"`
	MaxBodyCaptureBytes int      `yaml:"max_body_capture_bytes"`
	Placeholder         string   `yaml:"placeholder"`
}

// LimitsConfig drives the ring buffer, rate limiter, and flush timer
// (orig §3, §4.1, §4.2, §5).
type LimitsConfig struct {
	MaxBufferCount             int              `yaml:"max_buffer_count"`
	MaxPriorityBufferCount     int              `yaml:"max_priority_buffer_count"`
	FlushInterval              time.Duration    `yaml:"flush_interval"`
	MaxLogsPerSecond           int              `yaml:"max_logs_per_second"`
	PerformanceSamplingInterval time.Duration   `yaml:"performance_sampling_interval"`
	Background                 BackgroundPolicy `yaml:"background_policy"`
	EstimatedBytesPerEntry     int64            `yaml:"estimated_bytes_per_entry"`
	MemoryHardCapBytes         int64            `yaml:"memory_hard_cap_bytes"`
}

// Config is the immutable configuration tree built by the caller and
// moved into the Engine at Start (orig §3: "immutable after start").
type Config struct {
	Enabled          bool            `yaml:"enabled"`
	DebugBuildsOnly  bool            `yaml:"debug_builds_only"`
	IsDebugBuild     bool            `yaml:"-"`
	EnabledCollectors Collector      `yaml:"-"`
	Filter           FilterConfig    `yaml:"filter"`
	Transport        TransportConfig `yaml:"transport"`
	Persistence      PersistenceConfig `yaml:"persistence"`
	Privacy          PrivacyConfig   `yaml:"privacy"`
	Limits           LimitsConfig    `yaml:"limits"`
	SDKVersion       string          `yaml:"-"`
}

// Default returns a Config populated with the defaults named throughout
// orig §3/§4 (port 9394, ring capacity 1000/100, 500ms flush interval, etc).
func Default() Config {
	return Config{
		Enabled:         true,
		DebugBuildsOnly: true,
		Filter: FilterConfig{
			GlobalMinLevel:     LevelInfo,
			PerCategoryMinimum: map[string]LogLevel{},
			DisabledCategories: map[string]struct{}{},
		},
		Transport: TransportConfig{
			Port:              9394,
			MaxConnections:    4,
			HeartbeatInterval: 30 * time.Second,
			RequiresPairing:   true,
			MaxAttempts:       3,
			CooldownDuration:  30 * time.Second,
		},
		Persistence: PersistenceConfig{
			Enabled:          true,
			Directory:        "logs",
			MaxFileSize:      5 * 1024 * 1024,
			MaxFileCount:     10,
			MaxRetention:     7 * 24 * time.Hour,
			FlushOnConnect:   true,
			MaxReplayEntries: 5000,
			Protection:       ProtectionCompleteUntilFirstUserAuthentication,
		},
		Privacy: PrivacyConfig{
			RedactedHeaderNames:  []string{"authorization", "cookie", "set-cookie", "x-api-key"},
			RedactedMetadataKeys: []string{"password", "token", "secret"},
			RedactedQueryParams:  []string{"token", "api_key", "access_token"},
			MaxBodyCaptureBytes:  16 * 1024,
			Placeholder:          "***",
		},
		Limits: LimitsConfig{
			MaxBufferCount:              1000,
			MaxPriorityBufferCount:      100,
			FlushInterval:               500 * time.Millisecond,
			MaxLogsPerSecond:            200,
			PerformanceSamplingInterval: 5 * time.Second,
			Background:                  BackgroundContinue,
			EstimatedBytesPerEntry:      512,
			MemoryHardCapBytes:          5 * 1024 * 1024,
		},
		SDKVersion: "1.0.0",
	}
}
