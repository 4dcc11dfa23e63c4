package domain

import "time"

// Status classifies the outcome of one probe. The five values are mutually
// exclusive and ordered from healthy to unconfigured for display.
type Status string

const (
	StatusOperational Status = "operational" // check succeeded within the latency threshold
	StatusDegraded    Status = "degraded"    // check succeeded but slower than acceptable
	StatusFailed      Status = "failed"      // the endpoint actively rejected the request
	StatusError       Status = "error"       // the check could not complete at all
	StatusNoConfig    Status = "no_config"   // missing base address or credential
)

// Available reports whether the status counts toward availability.
// Degraded is available but non-ideal.
func (s Status) Available() bool {
	return s == StatusOperational || s == StatusDegraded
}

// Target identifies one provider/model endpoint under observation.
// The list is rebuilt wholesale whenever provider configuration changes.
type Target struct {
	ProviderKey  string `json:"provider_key"`
	ProviderName string `json:"provider_name"`
	ModelID      string `json:"model_id"`
	ModelName    string `json:"model_name"`
	BaseAddress  string `json:"base_address,omitempty"`
	Credential   string `json:"-"`
}

// ID is the stable key history is stored under.
func (t Target) ID() string { return t.ProviderKey + "/" + t.ModelID }

// ProbeResult is the immutable outcome of one check of one target.
// Nil latencies mean "not measured".
type ProbeResult struct {
	TargetID      string    `json:"target_id"`
	Status        Status    `json:"status"`
	ChatLatencyMS *int64    `json:"chat_latency_ms"`
	PingLatencyMS *int64    `json:"ping_latency_ms"`
	CheckedAt     time.Time `json:"checked_at"`
	Message       string    `json:"message,omitempty"`
}
