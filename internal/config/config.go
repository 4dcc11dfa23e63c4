package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr          string // API bind address, e.g., "127.0.0.1:8080"
	LogDir        string // logs directory
	ProvidersFile string // opencode provider config to monitor

	PollInterval      time.Duration // time between rounds; 0 disables the tick
	HistoryCapacity   int           // per-target result history depth
	DegradedThreshold time.Duration // chat latency above this is degraded
	ProbeTimeout      time.Duration // per-target timeout within a round
	RoundCeiling      time.Duration // absolute round fail-safe
	MaxConcurrent     int           // probe worker pool size
	ChatCheckEnabled  bool          // synthetic authenticated check toggle

	PublicAPIKeys []string
	AdminAPIKeys  []string
	PublicRPM     int
	PublicBurst   int
}

func FromEnv() Config {
	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = "127.0.0.1:8080"
	}

	logDir := os.Getenv("LOG_DIR")
	if logDir == "" {
		logDir = "logs"
	}

	providers := os.Getenv("PROVIDERS_FILE")
	if providers == "" {
		providers = "opencode.json"
	}

	return Config{
		Addr:          addr,
		LogDir:        logDir,
		ProvidersFile: providers,

		PollInterval:      envMS("POLL_INTERVAL_MS", 60_000),
		HistoryCapacity:   envInt("HISTORY_CAPACITY", 60),
		DegradedThreshold: envMS("DEGRADED_THRESHOLD_MS", 6_000),
		ProbeTimeout:      envMS("PROBE_TIMEOUT_MS", 15_000),
		RoundCeiling:      envMS("ROUND_CEILING_MS", 60_000),
		MaxConcurrent:     envInt("MAX_CONCURRENT_PROBES", 6),
		ChatCheckEnabled:  envBool("CHAT_CHECK_ENABLED", true),

		PublicAPIKeys: splitKeys(os.Getenv("PUBLIC_API_KEYS")),
		AdminAPIKeys:  splitKeys(os.Getenv("ADMIN_API_KEYS")),
		PublicRPM:     envInt("PUBLIC_RPM", 120),
		PublicBurst:   envInt("PUBLIC_BURST", 60),
	}
}

func envInt(name string, def int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func envMS(name string, defMS int) time.Duration {
	return time.Duration(envInt(name, defMS)) * time.Millisecond
}

func envBool(name string, def bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	switch v {
	case "":
		return def
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func splitKeys(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
