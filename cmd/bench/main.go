// README: Smoke/benchmark runner for a running ridemap-api; executes HTTP, WebSocket and Redis checks and prints results.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"
)

func main() {
	cfg := loadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	bench := NewRunner(cfg)
	results := bench.RunAll(ctx)

	fmt.Println("\n== Summary ==")
	pass, fail, skipped := 0, 0, 0
	for _, r := range results {
		switch r.Status {
		case StatusPass:
			pass++
		case StatusFail:
			fail++
		case StatusSkip:
			skipped++
		}
	}
	fmt.Printf("PASS=%d FAIL=%d SKIP=%d\n", pass, fail, skipped)

	if fail > 0 || (cfg.Strict && skipped > 0) {
		os.Exit(1)
	}
}

type Config struct {
	BaseURL     string
	RedisAddr   string
	Strict      bool
	Timeout     time.Duration
	Concurrency int
	Duration    time.Duration
}

func loadConfig() Config {
	var cfg Config
	flag.StringVar(&cfg.BaseURL, "base-url", envOrDefault("RIDEMAP_BENCH_BASE_URL", "http://localhost:8080"), "API base URL")
	flag.StringVar(&cfg.RedisAddr, "redis", envOrDefault("RIDEMAP_REDIS_ADDR", ""), "Redis address of the fleet mirror (empty skips mirror checks)")
	flag.BoolVar(&cfg.Strict, "strict", envOrDefaultBool("RIDEMAP_BENCH_STRICT", false), "Fail on skipped checks")
	flag.DurationVar(&cfg.Timeout, "timeout", envOrDefaultDuration("RIDEMAP_BENCH_TIMEOUT", 60*time.Second), "Total timeout")
	flag.IntVar(&cfg.Concurrency, "concurrency", envOrDefaultInt("RIDEMAP_BENCH_CONCURRENCY", 20), "Concurrency for perf checks")
	flag.DurationVar(&cfg.Duration, "duration", envOrDefaultDuration("RIDEMAP_BENCH_DURATION", 10*time.Second), "Duration for perf checks")
	flag.Parse()
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return cfg
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(v)
		return v == "1" || v == "true" || v == "yes"
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		_, _ = fmt.Sscanf(v, "%d", &n)
		if n > 0 {
			return n
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
