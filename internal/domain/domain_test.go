package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestTarget_ID(t *testing.T) {
	tgt := Target{ProviderKey: "openai", ModelID: "gpt-4o"}
	if got := tgt.ID(); got != "openai/gpt-4o" {
		t.Fatalf("ID()=%q, want openai/gpt-4o", got)
	}
}

func TestStatus_Available(t *testing.T) {
	cases := []struct {
		s    Status
		want bool
	}{
		{StatusOperational, true},
		{StatusDegraded, true},
		{StatusFailed, false},
		{StatusError, false},
		{StatusNoConfig, false},
	}
	for _, c := range cases {
		if got := c.s.Available(); got != c.want {
			t.Fatalf("Available(%s)=%v want %v", c.s, got, c.want)
		}
	}
}

func TestTarget_JSONHidesCredential(t *testing.T) {
	tgt := Target{
		ProviderKey: "openai",
		ModelID:     "gpt-4o",
		BaseAddress: "https://api.openai.com/v1",
		Credential:  "sk-secret",
	}
	b, err := json.Marshal(tgt)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(b), "sk-secret") {
		t.Fatalf("credential leaked into JSON: %s", b)
	}
}

func TestProbeResult_JSONRoundTrip(t *testing.T) {
	lat := int64(123)
	want := ProbeResult{
		TargetID:      "openai/gpt-4o",
		Status:        StatusOperational,
		ChatLatencyMS: &lat,
		CheckedAt:     time.Date(2026, 8, 18, 12, 0, 0, 0, time.UTC),
		Message:       "ok (123 ms)",
	}
	b, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got ProbeResult
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.TargetID != want.TargetID || got.Status != want.Status ||
		got.Message != want.Message || !got.CheckedAt.Equal(want.CheckedAt) {
		t.Fatalf("mismatch after round-trip:\nwant=%+v\ngot =%+v", want, got)
	}
	if got.ChatLatencyMS == nil || *got.ChatLatencyMS != lat {
		t.Fatalf("chat latency lost: %+v", got.ChatLatencyMS)
	}
	if got.PingLatencyMS != nil {
		t.Fatalf("ping latency should stay nil, got %v", *got.PingLatencyMS)
	}
}
