// Command benchmark load-tests a running gateway instance with vegeta.
//
// It can also serve a mock OpenAI-compatible upstream so the gateway can be
// benchmarked without burning real tokens: run with -mock, point the gpt
// profile's base_url at http://localhost:9091/v1, then attack.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	vegeta "github.com/tsenart/vegeta/v12/lib"
)

const mockPort = 9091

var mockChunks = []string{
	`data: {"choices":[{"delta":{"content":"Bench"}}]}` + "\n\n",
	`data: {"choices":[{"delta":{"content":"mark"}}]}` + "\n\n",
	`data: {"choices":[{"delta":{"content":" response"}}]}` + "\n\n",
	"data: [DONE]\n\n",
}

func main() {
	target := flag.String("target", "http://localhost:3050", "Gateway base URL")
	provider := flag.String("provider", "gpt", "Provider identifier to attack")
	duration := flag.Duration("duration", 10*time.Second, "Duration of the test")
	rate := flag.Int("rate", 50, "Requests per second")
	mock := flag.Bool("mock", true, "Serve a mock upstream on port 9091")
	chaos := flag.Bool("chaos", false, "Simulate random client disconnections")
	flag.Parse()

	if *mock {
		go startMockUpstream()
	}

	url := fmt.Sprintf("%s/chat/%s", *target, *provider)
	body := []byte(`{"messages":[{"role":"user","content":"Hello"}]}`)

	targeter := func(t *vegeta.Target) error {
		t.Method = http.MethodPost
		t.URL = url
		t.Body = body
		t.Header = http.Header{
			"Content-Type": []string{"application/json"},
		}
		return nil
	}

	done := make(chan struct{})
	if *chaos {
		concurrency := *rate / 10
		if concurrency < 5 {
			concurrency = 5
		}
		if concurrency > 50 {
			concurrency = 50
		}
		fmt.Printf("Chaos mode: %d disrupters with random disconnects\n", concurrency)
		go startChaosMonkey(url, concurrency, done)
	}

	fmt.Printf("Attacking %s: %s duration, %d req/s\n", url, *duration, *rate)

	attacker := vegeta.NewAttacker(vegeta.KeepAlive(true))
	var metrics vegeta.Metrics
	for res := range attacker.Attack(targeter, vegeta.Rate{Freq: *rate, Per: time.Second}, *duration, "convoke") {
		metrics.Add(res)
	}
	metrics.Close()
	close(done)

	fmt.Println("--------------------------------------------------")
	fmt.Println("99th percentile: ", metrics.Latencies.P99)
	fmt.Println("Mean:            ", metrics.Latencies.Mean)
	fmt.Println("Max:             ", metrics.Latencies.Max)
	fmt.Printf("Success:         %.2f%%\n", metrics.Success*100)
	fmt.Printf("Throughput:      %.2f req/s\n", metrics.Throughput)
	fmt.Println("--------------------------------------------------")

	if len(metrics.Errors) > 0 {
		fmt.Println("Errors (first 5 unique):")
		seen := make(map[string]bool)
		for _, msg := range metrics.Errors {
			if seen[msg] || len(seen) >= 5 {
				continue
			}
			seen[msg] = true
			fmt.Println(" ", msg)
		}
	}
}

// startMockUpstream serves a minimal OpenAI-compatible streaming endpoint
// with artificial inter-chunk latency.
func startMockUpstream() {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, _ := w.(http.Flusher)
		for _, chunk := range mockChunks {
			time.Sleep(20 * time.Millisecond)
			_, _ = w.Write([]byte(chunk))
			flusher.Flush()
		}
	})
	_ = http.ListenAndServe(fmt.Sprintf(":%d", mockPort), mux)
}

// startChaosMonkey hammers the stream endpoint with requests that disconnect
// at random points, exercising the gateway's cancellation paths under load.
func startChaosMonkey(url string, concurrency int, done chan struct{}) {
	payload := `{"messages":[{"role":"user","content":"Chaos request"}]}`

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func() {
			defer wg.Done()
			client := &http.Client{}
			for {
				select {
				case <-done:
					return
				default:
				}

				timeout := time.Duration(rand.Intn(200)+1) * time.Millisecond
				ctx, cancel := context.WithTimeout(context.Background(), timeout)
				req, _ := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(payload))
				req.Header.Set("Content-Type", "application/json")
				resp, err := client.Do(req)
				if err == nil {
					_ = resp.Body.Close()
				}
				cancel()

				time.Sleep(time.Duration(rand.Intn(50)) * time.Millisecond)
			}
		}()
	}
	wg.Wait()
}
