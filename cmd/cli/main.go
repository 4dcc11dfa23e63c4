package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

// Small operator tool: trigger a probe round against a running modelwatch
// API, wait for it to finish, and print the per-target outcome.

type roundState struct {
	Running bool   `json:"running"`
	State   string `json:"state"`
}

type targetView struct {
	TargetID string `json:"target_id"`
	Latest   *struct {
		Status        string `json:"status"`
		ChatLatencyMS *int64 `json:"chat_latency_ms"`
		PingLatencyMS *int64 `json:"ping_latency_ms"`
		Message       string `json:"message"`
	} `json:"latest"`
	Availability *float64 `json:"availability"`
}

func main() {
	api := os.Getenv("API_BASE")
	if api == "" {
		api = "http://localhost:8080"
	}
	key := os.Getenv("API_KEY")

	resp, err := do(http.MethodPost, api+"/api/round", key)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error contacting API:", err)
		os.Exit(1)
	}
	resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusAccepted:
		fmt.Println("Round started, waiting...")
	case http.StatusConflict:
		fmt.Println("A round is already running, waiting for it...")
	default:
		fmt.Fprintln(os.Stderr, "API returned status:", resp.Status)
		os.Exit(1)
	}

	for {
		time.Sleep(500 * time.Millisecond)
		var st roundState
		if err := getJSON(api+"/api/round", key, &st); err != nil {
			fmt.Fprintln(os.Stderr, "Error polling round:", err)
			os.Exit(1)
		}
		if !st.Running {
			break
		}
		fmt.Println(" ", st.State)
	}

	var views []targetView
	if err := getJSON(api+"/api/targets", key, &views); err != nil {
		fmt.Fprintln(os.Stderr, "Error fetching targets:", err)
		os.Exit(1)
	}

	for _, v := range views {
		status, msg := "unknown", ""
		chat, ping, avail := "-", "-", "-"
		if v.Latest != nil {
			status = v.Latest.Status
			msg = v.Latest.Message
			if v.Latest.ChatLatencyMS != nil {
				chat = fmt.Sprintf("%dms", *v.Latest.ChatLatencyMS)
			}
			if v.Latest.PingLatencyMS != nil {
				ping = fmt.Sprintf("%dms", *v.Latest.PingLatencyMS)
			}
		}
		if v.Availability != nil {
			avail = fmt.Sprintf("%.1f%%", *v.Availability)
		}
		fmt.Printf("%-40s %-12s chat=%-8s ping=%-8s avail=%-7s %s\n",
			v.TargetID, status, chat, ping, avail, msg)
	}
}

func do(method, url, key string) (*http.Response, error) {
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		return nil, err
	}
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	return http.DefaultClient.Do(req)
}

func getJSON(url, key string, v any) error {
	resp, err := do(http.MethodGet, url, key)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
