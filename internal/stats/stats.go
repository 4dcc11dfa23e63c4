// Package stats derives display figures from probe history. Everything here
// is a pure function over a history snapshot; nothing mutates or blocks.
package stats

import (
	"time"

	"github.com/stamns/modelwatch/internal/domain"
	"github.com/stamns/modelwatch/internal/history"
)

// Availability returns the percentage of results whose status counts as
// available (operational or degraded), or nil for an empty history.
func Availability(results []domain.ProbeResult) *float64 {
	if len(results) == 0 {
		return nil
	}
	avail := 0
	for _, r := range results {
		if r.Status.Available() {
			avail++
		}
	}
	pct := 100 * float64(avail) / float64(len(results))
	return &pct
}

// LatestChatLatency returns the most recent result's chat latency, if any.
func LatestChatLatency(results []domain.ProbeResult) *int64 {
	if len(results) == 0 {
		return nil
	}
	return results[len(results)-1].ChatLatencyMS
}

// LatestPingLatency returns the most recent result's ping latency, if any.
func LatestPingLatency(results []domain.ProbeResult) *int64 {
	if len(results) == 0 {
		return nil
	}
	return results[len(results)-1].PingLatencyMS
}

// Summary aggregates the latest result of every target for the overview.
type Summary struct {
	Targets           int        `json:"targets"`
	MeanChatLatencyMS *float64   `json:"mean_chat_latency_ms"`
	MeanPingLatencyMS *float64   `json:"mean_ping_latency_ms"`
	FailingTargets    int        `json:"failing_targets"`
	LastCheckedAt     *time.Time `json:"last_checked_at"`
}

// Summarize walks every target that has history and folds the latest results
// into a Summary. Means only cover targets that have the respective latency.
func Summarize(book *history.Book) Summary {
	var sum Summary
	var chatSum, pingSum float64
	var chatN, pingN int
	var last time.Time
	for _, id := range book.TargetIDs() {
		latest, ok := book.Latest(id)
		if !ok {
			continue
		}
		sum.Targets++
		if latest.ChatLatencyMS != nil {
			chatSum += float64(*latest.ChatLatencyMS)
			chatN++
		}
		if latest.PingLatencyMS != nil {
			pingSum += float64(*latest.PingLatencyMS)
			pingN++
		}
		if latest.Status == domain.StatusFailed || latest.Status == domain.StatusError {
			sum.FailingTargets++
		}
		if latest.CheckedAt.After(last) {
			last = latest.CheckedAt
		}
	}
	if chatN > 0 {
		mean := chatSum / float64(chatN)
		sum.MeanChatLatencyMS = &mean
	}
	if pingN > 0 {
		mean := pingSum / float64(pingN)
		sum.MeanPingLatencyMS = &mean
	}
	if !last.IsZero() {
		sum.LastCheckedAt = &last
	}
	return sum
}
