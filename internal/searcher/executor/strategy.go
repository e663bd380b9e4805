package executor

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/benchmark"
)

// Strategy runs n independent tasks. Tasks write their result by index, so
// the strategy never affects output order.
type Strategy interface {
	Mode() benchmark.Mode
	Run(ctx context.Context, n int, task func(i int)) error
}

// Sequential runs tasks one after another on the calling goroutine.
type Sequential struct{}

func (Sequential) Mode() benchmark.Mode { return benchmark.Sequential }

func (Sequential) Run(ctx context.Context, n int, task func(i int)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		task(i)
	}
	return nil
}

// Parallel fans tasks out over at most Limit goroutines and joins them
// before returning. Limit <= 0 means GOMAXPROCS.
type Parallel struct {
	Limit int
}

func (Parallel) Mode() benchmark.Mode { return benchmark.Parallel }

func (p Parallel) Run(ctx context.Context, n int, task func(i int)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	limit := p.Limit
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			task(i)
			return nil
		})
	}
	return g.Wait()
}

// ChooseStrategy picks Sequential for zero or one word and parallel for
// anything larger.
func ChooseStrategy(wordCount int, parallel Parallel) Strategy {
	if wordCount <= 1 {
		return Sequential{}
	}
	return parallel
}
