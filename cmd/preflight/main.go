// cmd/preflight/main.go
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Checks the environment a modelwatch daemon is about to start with and
// flags the usual footguns before anything binds a port.

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	providers := strings.TrimSpace(os.Getenv("PROVIDERS_FILE"))
	if providers == "" {
		providers = "opencode.json"
		warn("PROVIDERS_FILE empty; defaulting to ./opencode.json")
	}
	if data, err := os.ReadFile(providers); err != nil {
		warn("cannot read " + providers + " — the daemon will start with zero targets until a reload")
	} else if !json.Valid(data) {
		fail(providers + " is not valid JSON")
	} else {
		ok("providers file readable: " + providers)
	}

	admin := strings.TrimSpace(os.Getenv("ADMIN_API_KEYS"))
	if admin == "" {
		warn("ADMIN_API_KEYS empty — round trigger/toggle/reload routes are open")
	} else {
		if strings.Contains(admin, " ") {
			warn("ADMIN_API_KEYS contains spaces; use comma-separated with no spaces, e.g. key1,key2")
		}
		ok("admin keys configured")
	}

	if addr := strings.TrimSpace(os.Getenv("ADDR")); addr == "" {
		warn("ADDR is empty; default 127.0.0.1:8080 will be used.")
	} else {
		ok("ADDR=" + addr)
	}

	for _, name := range []string{"POLL_INTERVAL_MS", "PROBE_TIMEOUT_MS", "DEGRADED_THRESHOLD_MS", "HISTORY_CAPACITY", "MAX_CONCURRENT_PROBES"} {
		v := strings.TrimSpace(os.Getenv(name))
		if v == "" {
			continue
		}
		if n, err := strconv.Atoi(v); err != nil || n < 0 {
			fail(name + "=" + v + " is not a non-negative integer")
		}
	}

	if timeout, interval := envInt("PROBE_TIMEOUT_MS", 15000), envInt("POLL_INTERVAL_MS", 60000); interval > 0 && timeout > interval {
		warn("PROBE_TIMEOUT_MS exceeds POLL_INTERVAL_MS; slow targets will make rounds overlap their tick (ticks are skipped while a round runs)")
	}

	ok("preflight passed")
}

func envInt(name string, def int) int {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
