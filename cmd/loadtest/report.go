package main

import (
	"fmt"
	"io"
	"math"
	"slices"
	"sync"
	"text/tabwriter"
	"time"
)

// recorder collects per-request outcomes from all workers.
type recorder struct {
	mu        sync.Mutex
	latencies []time.Duration
	speedups  []float64
	codes     map[int]int
	transport int
}

func newRecorder() *recorder {
	return &recorder{codes: make(map[int]int)}
}

// record stores one request. err is a transport or decode failure; status
// codes outside 2xx are counted separately as failures.
func (r *recorder) record(d time.Duration, status int, speedup float64, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.transport++
		return
	}
	r.codes[status]++
	r.latencies = append(r.latencies, d)
	if speedup > 0 {
		r.speedups = append(r.speedups, speedup)
	}
}

type summary struct {
	Requests     int
	Failures     int
	Elapsed      time.Duration
	Min, Max     time.Duration
	Mean, StdDev time.Duration
	P50, P90     time.Duration
	P99          time.Duration
	MeanSpeedup  float64
	Codes        map[int]int
}

func (r *recorder) summarize(elapsed time.Duration) summary {
	r.mu.Lock()
	lat := slices.Clone(r.latencies)
	speedups := slices.Clone(r.speedups)
	codes := make(map[int]int, len(r.codes))
	for c, n := range r.codes {
		codes[c] = n
	}
	transport := r.transport
	r.mu.Unlock()

	failures := transport

	for c, n := range codes {
		if c < 200 || c > 299 {
			failures += n
		}
	}
	s := summary{
		Requests: len(lat) + transport,
		Failures: failures,
		Elapsed:  elapsed,
		Codes:    codes,
	}
	if len(lat) > 0 {
		slices.Sort(lat)
		var sum time.Duration
		for _, l := range lat {
			sum += l
		}
		s.Min, s.Max = lat[0], lat[len(lat)-1]
		s.Mean = sum / time.Duration(len(lat))
		var sq float64
		for _, l := range lat {
			d := float64(l - s.Mean)
			sq += d * d
		}
		s.StdDev = time.Duration(math.Sqrt(sq / float64(len(lat))))
		s.P50, s.P90, s.P99 = percentile(lat, 50), percentile(lat, 90), percentile(lat, 99)
	}
	if len(speedups) > 0 {
		var sum float64
		for _, v := range speedups {
			sum += v
		}
		s.MeanSpeedup = sum / float64(len(speedups))
	}
	return s
}

// percentile uses the nearest-rank method on an ascending slice.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[min(max(idx, 0), len(sorted)-1)]
}

func (s summary) print(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()
	fmt.Fprintf(tw, "requests\t%d\n", s.Requests)
	fmt.Fprintf(tw, "failures\t%d\n", s.Failures)
	if s.Elapsed > 0 {
		fmt.Fprintf(tw, "throughput\t%.1f req/s\n", float64(s.Requests)/s.Elapsed.Seconds())
	}
	if s.Requests == s.Failures {
		return
	}
	fmt.Fprintf(tw, "latency min/mean/max\t%s / %s / %s\n", s.Min, s.Mean, s.Max)
	fmt.Fprintf(tw, "latency p50/p90/p99\t%s / %s / %s\n", s.P50, s.P90, s.P99)
	fmt.Fprintf(tw, "latency stddev\t%s\n", s.StdDev)
	if s.MeanSpeedup > 0 {
		fmt.Fprintf(tw, "mean parallel speedup\t%.2fx\n", s.MeanSpeedup)
	}
	codes := make([]int, 0, len(s.Codes))
	for c := range s.Codes {
		codes = append(codes, c)
	}
	slices.Sort(codes)
	for _, c := range codes {
		fmt.Fprintf(tw, "status %d\t%d\n", c, s.Codes[c])
	}
}
