package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stamns/modelwatch/internal/domain"
	"github.com/stamns/modelwatch/internal/history"
)

func res(id string, status domain.Status, chatMS, pingMS int64, at time.Time) domain.ProbeResult {
	r := domain.ProbeResult{TargetID: id, Status: status, CheckedAt: at}
	if chatMS >= 0 {
		r.ChatLatencyMS = &chatMS
	}
	if pingMS >= 0 {
		r.PingLatencyMS = &pingMS
	}
	return r
}

var t0 = time.Date(2026, 8, 18, 12, 0, 0, 0, time.UTC)

func TestAvailability(t *testing.T) {
	assert.Nil(t, Availability(nil), "empty history has no availability")

	hist := []domain.ProbeResult{
		res("t", domain.StatusOperational, 100, -1, t0),
		res("t", domain.StatusDegraded, 7000, -1, t0),
		res("t", domain.StatusFailed, -1, -1, t0),
		res("t", domain.StatusError, -1, -1, t0),
		res("t", domain.StatusNoConfig, -1, -1, t0),
	}
	got := Availability(hist)
	require.NotNil(t, got)
	// operational and degraded count, the other three do not
	assert.InDelta(t, 40.0, *got, 1e-9)

	allUp := hist[:2]
	assert.InDelta(t, 100.0, *Availability(allUp), 1e-9)
	allDown := hist[2:]
	assert.InDelta(t, 0.0, *Availability(allDown), 1e-9)
}

func TestLatestLatencies(t *testing.T) {
	assert.Nil(t, LatestChatLatency(nil))
	assert.Nil(t, LatestPingLatency(nil))

	hist := []domain.ProbeResult{
		res("t", domain.StatusOperational, 100, 10, t0),
		res("t", domain.StatusError, -1, -1, t0.Add(time.Minute)),
	}
	// latest entry has no latencies even though an older one does
	assert.Nil(t, LatestChatLatency(hist))
	assert.Nil(t, LatestPingLatency(hist))

	hist = append(hist, res("t", domain.StatusOperational, 250, 20, t0.Add(2*time.Minute)))
	require.NotNil(t, LatestChatLatency(hist))
	assert.EqualValues(t, 250, *LatestChatLatency(hist))
	require.NotNil(t, LatestPingLatency(hist))
	assert.EqualValues(t, 20, *LatestPingLatency(hist))
}

func TestSummarize(t *testing.T) {
	book := history.NewBook(10)
	assert.Equal(t, Summary{}, Summarize(book), "empty book yields the zero summary")

	book.Append(res("a/x", domain.StatusOperational, 100, 10, t0))
	book.Append(res("a/x", domain.StatusOperational, 200, 20, t0.Add(2*time.Minute)))
	book.Append(res("b/y", domain.StatusFailed, 400, -1, t0.Add(time.Minute)))
	book.Append(res("c/z", domain.StatusNoConfig, -1, -1, t0))

	sum := Summarize(book)
	assert.Equal(t, 3, sum.Targets)
	// only each target's latest result feeds the means
	require.NotNil(t, sum.MeanChatLatencyMS)
	assert.InDelta(t, 300.0, *sum.MeanChatLatencyMS, 1e-9) // (200+400)/2
	require.NotNil(t, sum.MeanPingLatencyMS)
	assert.InDelta(t, 20.0, *sum.MeanPingLatencyMS, 1e-9)
	// failed counts, no_config does not
	assert.Equal(t, 1, sum.FailingTargets)
	require.NotNil(t, sum.LastCheckedAt)
	assert.True(t, sum.LastCheckedAt.Equal(t0.Add(2*time.Minute)))
}
