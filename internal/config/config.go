// Package config loads the immutable model.Config tree the Engine is
// started with: defaults, then the YAML file, then environment-variable
// overrides; Validate reports the validation warnings separately (orig
// §3, §6).
//
// The defaults-then-load-file-then-apply-env-overrides pipeline and
// its getEnv* helper family are grounded on the teacher's
// internal/config/config.go LoadConfig/applyDefaults/applyEnvironmentOverrides
// trio, narrowed from the teacher's sprawling multi-sink config tree down
// to model.Config's five sections.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"

	apperrors "github.com/Oreo-Mcflurry/ProbySDK/pkg/errors"
	"github.com/Oreo-Mcflurry/ProbySDK/pkg/model"
)

// Load reads configFile (if non-empty) over model.Default(), then applies
// environment overrides. A missing file is not fatal; a file that exists
// but cannot be read or parsed is reported through the returned error.
func Load(configFile string) (*model.Config, error) {
	cfg := model.Default()

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, apperrors.ConfigError("read", "failed to read config file "+configFile).Wrap(err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, apperrors.ConfigError("parse", "failed to parse config file "+configFile).Wrap(err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func applyEnvOverrides(cfg *model.Config) {
	cfg.Enabled = getEnvBool("PROBYSDK_ENABLED", cfg.Enabled)
	cfg.DebugBuildsOnly = getEnvBool("PROBYSDK_DEBUG_BUILDS_ONLY", cfg.DebugBuildsOnly)

	if lvl := getEnvString("PROBYSDK_GLOBAL_MIN_LEVEL", ""); lvl != "" {
		if parsed, ok := model.ParseLevel(lvl); ok {
			cfg.Filter.GlobalMinLevel = parsed
		}
	}

	cfg.Transport.Port = getEnvInt("PROBYSDK_PORT", cfg.Transport.Port)
	cfg.Transport.RequiresPairing = getEnvBool("PROBYSDK_REQUIRES_PAIRING", cfg.Transport.RequiresPairing)
	cfg.Transport.FixedPIN = getEnvString("PROBYSDK_FIXED_PIN", cfg.Transport.FixedPIN)
	cfg.Transport.BonjourServiceName = getEnvString("PROBYSDK_SERVICE_NAME", cfg.Transport.BonjourServiceName)

	cfg.Persistence.Enabled = getEnvBool("PROBYSDK_PERSISTENCE_ENABLED", cfg.Persistence.Enabled)
	cfg.Persistence.Directory = getEnvString("PROBYSDK_PERSISTENCE_DIR", cfg.Persistence.Directory)
	cfg.Persistence.MaxFileSize = getEnvInt64("PROBYSDK_MAX_FILE_SIZE", cfg.Persistence.MaxFileSize)

	cfg.Limits.FlushInterval = getEnvDuration("PROBYSDK_FLUSH_INTERVAL", cfg.Limits.FlushInterval)
	cfg.Limits.MaxLogsPerSecond = getEnvInt("PROBYSDK_MAX_LOGS_PER_SECOND", cfg.Limits.MaxLogsPerSecond)
}

// Warning is one orig §6 configuration warning: a stable key plus the
// human-readable message emitted to the platform log.
type Warning struct {
	Key     string
	Message string
}

// Validate implements orig §6's configuration warnings. None of these are
// fatal — the Engine starts regardless — they exist so a misconfiguration
// shows up in the log instead of as a silent behavior change.
func Validate(cfg *model.Config) []Warning {
	var warnings []Warning

	if cfg.Transport.Port != 0 && cfg.Transport.Port < 1024 {
		warnings = append(warnings, Warning{
			Key:     "transport.port",
			Message: fmt.Sprintf("configured port %d is a privileged port (<1024)", cfg.Transport.Port),
		})
	}

	if cfg.Limits.FlushInterval < 16*time.Millisecond || cfg.Limits.FlushInterval > 5*time.Second {
		warnings = append(warnings, Warning{
			Key:     "limits.flushInterval",
			Message: fmt.Sprintf("flush interval %s is outside the recommended [16ms, 5s] range", cfg.Limits.FlushInterval),
		})
	}

	if cfg.Persistence.Enabled && cfg.Persistence.MaxFileSize == 0 {
		warnings = append(warnings, Warning{
			Key:     "persistence.maxFileSize",
			Message: "persistence is enabled but max file size is 0",
		})
	}

	if !cfg.Transport.RequiresPairing {
		warnings = append(warnings, Warning{
			Key:     "transport.requiresPairing",
			Message: "pairing is disabled; any peer on the local network can connect without authorization",
		})
	}

	if cfg.Privacy.MaxBodyCaptureBytes > 100*1024 {
		warnings = append(warnings, Warning{
			Key:     "privacy.maxBodySize",
			Message: fmt.Sprintf("max body capture %d bytes exceeds the recommended 100 KiB", cfg.Privacy.MaxBodyCaptureBytes),
		})
	}

	return warnings
}

func getEnvString(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}
