package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/stamns/modelwatch/internal/domain"
)

// maxReasonLen bounds the human-readable message carried on error results.
const maxReasonLen = 120

// DefaultDegradedThreshold marks a successful chat check as degraded when the
// response took longer than this.
const DefaultDegradedThreshold = 6 * time.Second

// Prober checks one endpoint: a TCP reachability timing against the origin of
// the base address, plus an optional authenticated minimal chat-completion
// request measuring end-to-end latency.
type Prober struct {
	Client *http.Client
	Dialer *net.Dialer
}

func New(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Prober{
		Client: &http.Client{Timeout: timeout},
		Dialer: &net.Dialer{},
	}
}

// Check probes the target. It never fails: every outcome, including
// misconfiguration and transport errors, is encoded in the returned result.
func (p *Prober) Check(ctx context.Context, t domain.Target, opts Options) domain.ProbeResult {
	res := domain.ProbeResult{
		TargetID:  t.ID(),
		CheckedAt: time.Now().UTC(),
	}

	// Reachability timing first. A ping failure alone does not fail the
	// probe; it just leaves the latency unset.
	if t.BaseAddress != "" {
		if ms, err := p.ping(ctx, t.BaseAddress); err == nil {
			res.PingLatencyMS = &ms
		}
	}

	if !opts.ChatCheck {
		switch {
		case t.BaseAddress == "":
			res.Status = domain.StatusNoConfig
			res.Message = "no base address configured"
		case res.PingLatencyMS != nil:
			res.Status = domain.StatusOperational
			res.Message = "chat check paused (ping only)"
		default:
			res.Status = domain.StatusError
			res.Message = "ping failed"
		}
		return res
	}

	if t.BaseAddress == "" {
		res.Status = domain.StatusNoConfig
		res.Message = "no base address configured"
		return res
	}
	if t.Credential == "" {
		res.Status = domain.StatusNoConfig
		res.Message = "missing credential"
		return res
	}

	p.chat(ctx, t, opts, &res)
	return res
}

// ping opens and immediately closes a TCP connection to the origin derived
// from the base address, returning the elapsed milliseconds.
func (p *Prober) ping(ctx context.Context, base string) (int64, error) {
	addr, err := originAddr(base)
	if err != nil {
		return 0, err
	}
	start := time.Now()
	conn, err := p.Dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return 0, err
	}
	_ = conn.Close()
	return time.Since(start).Milliseconds(), nil
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (p *Prober) chat(ctx context.Context, t domain.Target, opts Options, res *domain.ProbeResult) {
	threshold := opts.DegradedThreshold
	if threshold <= 0 {
		threshold = DefaultDegradedThreshold
	}

	body, _ := json.Marshal(chatRequest{
		Model:     t.ModelID,
		Messages:  []chatMessage{{Role: "user", Content: "hi"}},
		MaxTokens: 1,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ChatURL(t.BaseAddress), bytes.NewReader(body))
	if err != nil {
		res.Status = domain.StatusError
		res.Message = truncate(err.Error())
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.Credential)

	start := time.Now()
	resp, err := p.Client.Do(req)
	lat := time.Since(start).Milliseconds()
	if err != nil {
		res.Status = domain.StatusError
		if errors.Is(err, context.DeadlineExceeded) {
			res.Message = "request timed out"
		} else {
			res.Message = truncate(err.Error())
		}
		return
	}
	defer resp.Body.Close()

	res.ChatLatencyMS = &lat
	res.Status, res.Message = classify(resp.StatusCode, lat, threshold)
}

// classify maps an HTTP response and its latency onto the status taxonomy.
// The degraded threshold is inclusive: exactly at the threshold is still
// operational.
func classify(code int, latencyMS int64, threshold time.Duration) (domain.Status, string) {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return domain.StatusFailed, "authentication failed"
	case code < 200 || code > 299:
		return domain.StatusFailed, fmt.Sprintf("HTTP %d", code)
	case latencyMS > threshold.Milliseconds():
		return domain.StatusDegraded, fmt.Sprintf("slow response: %d ms", latencyMS)
	default:
		return domain.StatusOperational, fmt.Sprintf("ok (%d ms)", latencyMS)
	}
}

var versionedPath = regexp.MustCompile(`/v\d+$`)

// ChatURL derives the chat-completions endpoint from a base address,
// inserting a v1 segment unless the base already pins an API version or
// already names the endpoint outright.
func ChatURL(base string) string {
	trimmed := strings.TrimRight(base, "/")
	switch {
	case strings.Contains(trimmed, "/chat/completions"):
		return trimmed
	case versionedPath.MatchString(trimmed):
		return trimmed + "/chat/completions"
	default:
		return trimmed + "/v1/chat/completions"
	}
}

// originAddr reduces a base address to a dialable host:port.
func originAddr(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	host := u.Hostname()
	if host == "" {
		return "", errors.New("no host in base address")
	}
	port := u.Port()
	if port == "" {
		if u.Scheme == "http" {
			port = "80"
		} else {
			port = "443"
		}
	}
	return net.JoinHostPort(host, port), nil
}

func truncate(s string) string {
	if len(s) <= maxReasonLen {
		return s
	}
	return s[:maxReasonLen] + "..."
}
