// Command loadtest drives the search service with a fixed set of queries
// and reports throughput, latency percentiles and the cache hit rate.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/olekukonko/tablewriter"
)

type Config struct {
	BaseURL      string
	Conversation string
	Concurrency  int
	Duration     time.Duration
	Limit        int
	Queries      []string
}

// searchURL targets one conversation when Conversation is set and every
// stored conversation otherwise.
func (c Config) searchURL(q string) string {
	path := "/api/v1/search"
	if c.Conversation != "" {
		path = "/api/v1/conversations/" + url.PathEscape(c.Conversation) + "/search"
	}
	return fmt.Sprintf("%s%s?q=%s&limit=%d", c.BaseURL, path, url.QueryEscape(q), c.Limit)
}

var defaultQueries = []string{
	"dinner tonight",
	"birthday cake",
	"train late",
	`"see you tomorrow"`,
	"photos AND trip",
	"coffee OR tea",
	"meeting AND NOT cancelled",
	"#3(flight, delayed)",
	"weekend plans",
	"happy new year",
}

type Stats struct {
	total     atomic.Int64
	success   atomic.Int64
	errors    atomic.Int64
	cacheHits atomic.Int64

	mu          sync.Mutex
	latencies   []time.Duration
	statusCodes map[int]int64
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make([]time.Duration, 0, 100000),
		statusCodes: make(map[int]int64),
	}
}

func (s *Stats) Record(d time.Duration, status int, cacheHit bool, err error) {
	s.total.Add(1)
	if err != nil {
		s.errors.Add(1)
		return
	}
	if status >= 200 && status < 300 {
		s.success.Add(1)
	} else {
		s.errors.Add(1)
	}
	if cacheHit {
		s.cacheHits.Add(1)
	}

	s.mu.Lock()
	s.latencies = append(s.latencies, d)
	s.statusCodes[status]++
	s.mu.Unlock()
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the search service")
	conversation := flag.String("conversation", "", "search one conversation instead of all of them")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	limit := flag.Int("limit", 10, "results per query")
	queryFile := flag.String("queries", "", "file with one query per line")
	flag.Parse()

	queries := defaultQueries
	if *queryFile != "" {
		var err error
		if queries, err = readQueries(*queryFile); err != nil {
			fmt.Fprintf(os.Stderr, "reading queries: %v\n", err)
			os.Exit(1)
		}
	}

	cfg := Config{
		BaseURL:      strings.TrimRight(*baseURL, "/"),
		Conversation: *conversation,
		Concurrency:  *concurrency,
		Duration:     *duration,
		Limit:        *limit,
		Queries:      queries,
	}

	target := "all conversations"
	if cfg.Conversation != "" {
		target = cfg.Conversation
	}
	fmt.Println("=== Chat Search Load Test ===")
	fmt.Printf("Target:      %s (%s)\n", cfg.BaseURL, target)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Queries:     %d unique\n", len(cfg.Queries))
	fmt.Println()

	stats := run(cfg)
	if err := report(stats, cfg.Duration); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func readQueries(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var queries []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if q := strings.TrimSpace(sc.Text()); q != "" && !strings.HasPrefix(q, "//") {
			queries = append(queries, q)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("%s holds no queries", path)
	}
	return queries, nil
}

func run(cfg Config) *Stats {
	stats := NewStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(next int) {
			defer wg.Done()
			for ctx.Err() == nil {
				q := cfg.Queries[next%len(cfg.Queries)]
				next++

				start := time.Now()
				status, cacheHit, err := search(ctx, client, cfg.searchURL(q))
				if ctx.Err() != nil {
					return
				}
				stats.Record(time.Since(start), status, cacheHit, err)
			}
		}(w)
	}
	wg.Wait()
	return stats
}

func search(ctx context.Context, client *http.Client, rawURL string) (int, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, false, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, false, err
	}
	defer resp.Body.Close()

	var body struct {
		CacheHit bool `json:"cache_hit"`
	}
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return resp.StatusCode, false, fmt.Errorf("decoding response: %w", err)
		}
	}
	return resp.StatusCode, body.CacheHit, nil
}

func report(stats *Stats, duration time.Duration) error {
	total := stats.total.Load()
	if total == 0 {
		return fmt.Errorf("no requests completed; is the search service running?")
	}
	success := stats.success.Load()
	errs := stats.errors.Load()

	rows := [][]string{
		{"requests", strconv.FormatInt(total, 10)},
		{"successful", strconv.FormatInt(success, 10)},
		{"errors", strconv.FormatInt(errs, 10)},
		{"error rate", fmt.Sprintf("%.2f%%", float64(errs)/float64(total)*100)},
		{"requests/sec", fmt.Sprintf("%.2f", float64(total)/duration.Seconds())},
	}
	if success > 0 {
		rows = append(rows, []string{"cache hit rate", fmt.Sprintf("%.2f%%", float64(stats.cacheHits.Load())/float64(success)*100)})
	}

	stats.mu.Lock()
	latencies := append([]time.Duration(nil), stats.latencies...)
	codes := make([]int, 0, len(stats.statusCodes))
	for code := range stats.statusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		rows = append(rows, []string{"status " + strconv.Itoa(code), strconv.FormatInt(stats.statusCodes[code], 10)})
	}
	stats.mu.Unlock()

	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		avg := sum / time.Duration(len(latencies))
		var sq float64
		for _, l := range latencies {
			d := float64(l - avg)
			sq += d * d
		}
		rows = append(rows,
			[]string{"latency min", latencies[0].String()},
			[]string{"latency avg", avg.String()},
			[]string{"latency p50", percentile(latencies, 50).String()},
			[]string{"latency p90", percentile(latencies, 90).String()},
			[]string{"latency p99", percentile(latencies, 99).String()},
			[]string{"latency max", latencies[len(latencies)-1].String()},
			[]string{"latency stddev", time.Duration(math.Sqrt(sq / float64(len(latencies)))).String()},
		)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header([]string{"metric", "value"})
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}
