// novaperf drives the reply endpoint with a fixed set of utterances and
// prints the per-stage latency snapshot afterwards. Useful for checking a
// deployment before pointing real traffic at it.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

type options struct {
	baseURL  string
	userID   string
	userName string
	turns    int
	timeout  time.Duration
}

var sampleUtterances = []string{
	"Hey, how are you today?",
	"I went for a long hike this morning.",
	"Do you remember what I told you about my sister?",
	"I'm thinking about learning the piano.",
	"What should I cook tonight?",
}

func main() {
	var opts options
	flag.StringVar(&opts.baseURL, "base-url", "http://localhost:8080", "server base URL")
	flag.StringVar(&opts.userID, "user-id", "user_perf", "user id to converse as")
	flag.StringVar(&opts.userName, "user-name", "Perf", "user name to converse as")
	flag.IntVar(&opts.turns, "turns", 5, "number of reply turns to drive")
	flag.DurationVar(&opts.timeout, "timeout", 90*time.Second, "per-request timeout")
	flag.Parse()

	client := &http.Client{Timeout: opts.timeout}
	base := strings.TrimRight(opts.baseURL, "/")

	for i := 0; i < opts.turns; i++ {
		utterance := sampleUtterances[i%len(sampleUtterances)]
		started := time.Now()
		text, err := generateReply(client, base, opts, utterance)
		if err != nil {
			fmt.Fprintf(os.Stderr, "turn %d failed: %v\n", i+1, err)
			os.Exit(1)
		}
		fmt.Printf("turn %d (%.0fms)\n  > %s\n  < %s\n", i+1, time.Since(started).Seconds()*1000, utterance, text)
	}

	snapshot, err := fetchLatency(client, base)
	if err != nil {
		fmt.Fprintf(os.Stderr, "latency snapshot failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("\nstage latency snapshot:")
	fmt.Println(snapshot)
}

func generateReply(client *http.Client, base string, opts options, utterance string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"user_id":        opts.userID,
		"user_name":      opts.userName,
		"user_utterance": utterance,
	})
	if err != nil {
		return "", err
	}

	resp, err := client.Post(base+"/generate_reply", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("bad reply payload: %w", err)
	}
	return parsed.Text, nil
}

func fetchLatency(client *http.Client, base string) (string, error) {
	resp, err := client.Get(base + "/v1/perf/latency")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		return string(body), nil
	}
	return pretty.String(), nil
}
