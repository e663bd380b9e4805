// Command loadtest drives POST /api/search against a running textsearch
// instance and reports latency percentiles, status codes and the
// server-reported parallel speedup.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var defaultQueries = []string{
	"cat",
	"search engine",
	"quick brown fox",
	"document",
	"parallel sequential",
	"word count index",
	"snippet sentence",
	"lazy dog",
	"zebra",
	"the",
}

type options struct {
	baseURL  string
	workers  int
	duration time.Duration
	rps      float64
	seed     int
	snippets bool
	queries  []string
}

func main() {
	var opts options
	flag.StringVar(&opts.baseURL, "url", "http://localhost:8000", "base URL of the textsearch service")
	flag.IntVar(&opts.workers, "workers", 10, "concurrent request loops")
	flag.DurationVar(&opts.duration, "duration", 30*time.Second, "how long to run")
	flag.Float64Var(&opts.rps, "rps", 0, "total request rate across workers, 0 for unthrottled")
	flag.IntVar(&opts.seed, "seed", 0, "upload this many synthetic documents first")
	flag.BoolVar(&opts.snippets, "snippets", true, "request snippets with each search")
	queries := flag.String("queries", "", "comma-separated queries, default is a built-in mix")
	flag.Parse()

	opts.queries = defaultQueries
	if *queries != "" {
		opts.queries = strings.Split(*queries, ",")
	}
	if opts.workers < 1 {
		fmt.Fprintln(os.Stderr, "workers must be at least 1")
		os.Exit(2)
	}

	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        opts.workers * 2,
			MaxIdleConnsPerHost: opts.workers * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	fmt.Printf("target=%s workers=%d duration=%s rps=%g queries=%d\n",
		opts.baseURL, opts.workers, opts.duration, opts.rps, len(opts.queries))

	if opts.seed > 0 {
		if err := seed(client, opts.baseURL, opts.seed); err != nil {
			fmt.Fprintf(os.Stderr, "seeding failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("seeded %d documents\n", opts.seed)
	}

	rec := newRecorder()
	elapsed, err := run(context.Background(), client, opts, rec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load test aborted: %v\n", err)
		os.Exit(1)
	}
	sum := rec.summarize(elapsed)
	sum.print(os.Stdout)
	if sum.Requests == 0 {
		fmt.Fprintln(os.Stderr, "no requests completed; is the service running?")
		os.Exit(1)
	}
}

var seedSentences = []string{
	"The quick brown fox jumps over the lazy dog.",
	"A search engine counts every word in every document.",
	"The cat sat on the mat!",
	"Parallel and sequential runs return the same results?",
	"Each snippet is one sentence that contains the word.",
}

func seed(client *http.Client, baseURL string, n int) error {
	type item struct {
		Name    string `json:"name"`
		Content string `json:"content"`
	}
	items := make([]item, n)
	for i := range items {
		var b strings.Builder
		for j := range 20 {
			b.WriteString(seedSentences[(i+j)%len(seedSentences)])
			b.WriteByte(' ')
		}
		items[i] = item{Name: fmt.Sprintf("seed-%05d.txt", i), Content: b.String()}
	}
	body, err := json.Marshal(items)
	if err != nil {
		return err
	}
	resp, err := client.Post(baseURL+"/api/upload", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("upload returned %d: %s", resp.StatusCode, msg)
	}
	return nil
}

// run fans out opts.workers loops until opts.duration elapses. A shared
// limiter spreads opts.rps across all of them.
func run(parent context.Context, client *http.Client, opts options, rec *recorder) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(parent, opts.duration)
	defer cancel()

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.rps), max(1, opts.workers))
	}

	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for w := range opts.workers {
		g.Go(func() error {
			for i := w; ; i++ {
				if err := limiter.Wait(ctx); err != nil {
					return nil
				}
				query := opts.queries[i%len(opts.queries)]
				began := time.Now()
				status, speedup, err := search(ctx, client, opts.baseURL, query, opts.snippets)
				if err != nil && ctx.Err() != nil {
					return nil
				}
				rec.record(time.Since(began), status, speedup, err)
			}
		})
	}
	err := g.Wait()
	return time.Since(start), err
}

func search(ctx context.Context, client *http.Client, baseURL, query string, snippets bool) (int, float64, error) {
	body, err := json.Marshal(map[string]any{"query": query, "snippets": snippets})
	if err != nil {
		return 0, 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/search", bytes.NewReader(body))
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()

	var out struct {
		Benchmark struct {
			Speedup float64 `json:"speedup"`
		} `json:"benchmark"`
	}
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && !errors.Is(err, io.EOF) {
			return resp.StatusCode, 0, fmt.Errorf("decoding search response: %w", err)
		}
	}
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, out.Benchmark.Speedup, nil
}
