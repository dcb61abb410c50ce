// README: Smoke cases for the rider map API: markers, taps, proximity, panel, event stream and the Redis fleet mirror.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

const (
	StatusPass = "PASS"
	StatusFail = "FAIL"
	StatusSkip = "SKIP"
)

var distanceLabel = regexp.MustCompile(`^(\d+m|\d+\.\dkm) away$`)

type Runner struct {
	cfg   Config
	httpc *http.Client
	redis *redis.Client
}

type Result struct {
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
		defer r.redis.Close()
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))
	for _, tc := range tests {
		res := tc.Run(ctx, r)
		results = append(results, res)
		fmt.Printf("%-5s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}
	return results
}

func (r *Runner) cases() []TestCase {
	base := r.cfg.BaseURL
	return []TestCase{
		statusCase("API: health", http.MethodGet, base+"/health", 200),
		{
			Name: "Fleet: markers carry the tricycle glyph",
			Run: func(ctx context.Context, r *Runner) Result {
				var markers []struct {
					ID    string `json:"id"`
					Glyph string `json:"glyph"`
				}
				res := r.getJSON(ctx, base+"/api/fleet", &markers)
				if res.Status != StatusPass {
					return res
				}
				if len(markers) == 0 {
					return Result{Status: StatusFail, Note: "empty fleet"}
				}
				for _, m := range markers {
					if m.Glyph != "tricycle" {
						return Result{Status: StatusFail, Note: "glyph=" + m.Glyph}
					}
				}
				res.Note = fmt.Sprintf("vehicles=%d", len(markers))
				return res
			},
		},
		statusCase("Fleet: unknown vehicle -> 404", http.MethodGet, base+"/api/vehicles/does-not-exist", 404),
		statusCase("Selection: tap unknown marker -> 404", http.MethodPost, base+"/api/vehicles/does-not-exist/tap", 404),
		statusCase("Selection: tap vehicle 1", http.MethodPost, base+"/api/vehicles/1/tap", 200),
		{
			Name: "Proximity: label for selected vehicle",
			Run: func(ctx context.Context, r *Runner) Result {
				var body struct {
					Label string `json:"label"`
				}
				res := r.getJSON(ctx, base+"/api/proximity", &body)
				if res.Status != StatusPass {
					return res
				}
				if body.Label == "Calculating…" {
					return Result{Status: StatusSkip, Note: "rider position not known yet"}
				}
				if !distanceLabel.MatchString(body.Label) {
					return Result{Status: StatusFail, Note: fmt.Sprintf("label=%q", body.Label)}
				}
				res.Note = body.Label
				return res
			},
		},
		{
			Name: "Panel: driver card while selected",
			Run: func(ctx context.Context, r *Runner) Result {
				var panel struct {
					Kind string `json:"kind"`
				}
				res := r.getJSON(ctx, base+"/api/panel", &panel)
				if res.Status == StatusPass && panel.Kind != "driver" {
					return Result{Status: StatusFail, Note: "kind=" + panel.Kind}
				}
				return res
			},
		},
		statusCase("Selection: clear", http.MethodDelete, base+"/api/selection", 200),
		{
			Name: "Stream: initial fleet snapshot",
			Run: func(ctx context.Context, r *Runner) Result {
				return wsSnapshot(ctx, strings.Replace(base, "http", "ws", 1)+"/ws")
			},
		},
		{
			Name: "Mirror: fleet present in Redis",
			Run: func(ctx context.Context, r *Runner) Result {
				return mirrorPresent(ctx, r)
			},
		},
		{
			Name: "Perf: proximity read throughput",
			Run: func(ctx context.Context, r *Runner) Result {
				return perfLoad(ctx, r, base+"/api/proximity")
			},
		},
	}
}

func statusCase(name, method, url string, want int) TestCase {
	return TestCase{
		Name: name,
		Run: func(ctx context.Context, r *Runner) Result {
			req, _ := http.NewRequestWithContext(ctx, method, url, nil)
			start := time.Now()
			resp, err := r.httpc.Do(req)
			if err != nil {
				return Result{Status: StatusFail, Note: err.Error()}
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			latency := time.Since(start)
			if resp.StatusCode != want {
				return Result{Status: StatusFail, Latency: latency, Note: fmt.Sprintf("status=%d", resp.StatusCode)}
			}
			return Result{Status: StatusPass, Latency: latency}
		},
	}
}

func (r *Runner) getJSON(ctx context.Context, url string, v any) Result {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	start := time.Now()
	resp, err := r.httpc.Do(req)
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	defer resp.Body.Close()
	latency := time.Since(start)
	if resp.StatusCode != http.StatusOK {
		return Result{Status: StatusFail, Latency: latency, Note: fmt.Sprintf("status=%d", resp.StatusCode)}
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return Result{Status: StatusFail, Latency: latency, Note: err.Error()}
	}
	return Result{Status: StatusPass, Latency: latency}
}

func wsSnapshot(ctx context.Context, url string) Result {
	start := time.Now()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg struct {
		Type string            `json:"type"`
		Data []json.RawMessage `json:"data"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	if msg.Type != "fleet" {
		return Result{Status: StatusFail, Note: "first event=" + msg.Type}
	}
	return Result{Status: StatusPass, Latency: time.Since(start), Note: fmt.Sprintf("markers=%d", len(msg.Data))}
}

func mirrorPresent(ctx context.Context, r *Runner) Result {
	if r.redis == nil {
		return Result{Status: StatusSkip, Note: "redis not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := r.redis.Ping(ctx).Err(); err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	keys, _, err := r.redis.Scan(ctx, 0, "ridemap:session:*:fleet", 100).Result()
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	if len(keys) == 0 {
		return Result{Status: StatusFail, Note: "no mirrored fleet yet (wait one tick)"}
	}
	n, err := r.redis.ZCard(ctx, keys[0]).Result()
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	return Result{Status: StatusPass, Note: fmt.Sprintf("%s members=%d", keys[0], n)}
}

func perfLoad(ctx context.Context, r *Runner, url string) Result {
	end := time.Now().Add(r.cfg.Duration)
	var count, errCount int64
	var mu sync.Mutex
	wg := sync.WaitGroup{}

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
				resp, err := r.httpc.Do(req)
				mu.Lock()
				if err != nil {
					errCount++
				} else {
					count++
				}
				mu.Unlock()
				if err == nil {
					io.Copy(io.Discard, resp.Body)
					resp.Body.Close()
				}
			}
		}()
	}
	wg.Wait()

	if count == 0 {
		return Result{Status: StatusFail, Note: "no requests completed"}
	}
	rps := float64(count) / r.cfg.Duration.Seconds()
	return Result{Status: StatusPass, Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount)}
}
