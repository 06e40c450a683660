package main

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	cache "github.com/krisalay/keyed-cache"
	"github.com/krisalay/keyed-cache/logging"
	"github.com/krisalay/keyed-cache/types"
)

// ================= BENCHMARK =================

func main() {
	logging.Init("warn")

	cmd := &cli.Command{
		Name:  "benchmark",
		Usage: "concurrent GetOrLoad load generator",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "shards", Value: 16},
			&cli.IntFlag{Name: "keys", Value: 100000, Usage: "distinct keys"},
			&cli.IntFlag{Name: "goroutines", Value: 200},
			&cli.IntFlag{Name: "ops", Value: 5000, Usage: "operations per goroutine"},
			&cli.DurationFlag{Name: "load-latency", Value: 0, Usage: "simulated loader latency"},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.WithError(err).Error("benchmark failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	var (
		shards     = cmd.Int("shards")
		keys       = cmd.Int("keys")
		goroutines = cmd.Int("goroutines")
		opsPerG    = cmd.Int("ops")
		latency    = cmd.Duration("load-latency")
	)
	if keys < 1 || goroutines < 1 || opsPerG < 1 {
		return fmt.Errorf("keys, goroutines and ops must be positive")
	}

	fmt.Println("\n================ CACHE LOAD BENCHMARK =================")
	fmt.Println("CONFIG")
	fmt.Println("---------------------------------")
	fmt.Println("Shards       :", shards)
	fmt.Println("Keys         :", humanize.Comma(int64(keys)))
	fmt.Println("Goroutines   :", goroutines)
	fmt.Println("Ops/Goroutine:", humanize.Comma(int64(opsPerG)))
	fmt.Println("Load latency :", latency)
	fmt.Println("---------------------------------")

	// ---------------- Loader ----------------
	var loaderCalls atomic.Int64
	loader := types.LoaderFunc[int, int](func(ctx context.Context, key int) (int, error) {
		loaderCalls.Add(1)
		if latency > 0 {
			select {
			case <-time.After(latency):
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		}
		return key * key, nil
	})

	// ---------------- Cache ----------------
	metrics := &types.Counters{}
	c := cache.New[int, int](
		cache.WithName[int]("benchmark"),
		cache.WithShards[int](shards),
		cache.WithMetrics[int](metrics),
	)

	// ---------------- Load Test ----------------
	fmt.Println("Running concurrency benchmark...")
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < goroutines; i++ {
		g.Go(func() error {
			for j := 0; j < opsPerG; j++ {
				key := (i*opsPerG + j) % keys
				if _, err := c.GetOrLoad(gctx, key, loader); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	duration := time.Since(start)
	totalOps := int64(goroutines * opsPerG)
	s := metrics.Snapshot()

	fmt.Println("\n================ RESULTS =================")
	fmt.Printf("Total Operations : %s\n", humanize.Comma(totalOps))
	fmt.Printf("Total Time       : %v\n", duration)
	fmt.Printf("Throughput       : %s\n", humanize.SIWithDigits(float64(totalOps)/duration.Seconds(), 2, "ops/s"))
	fmt.Printf("Loader Calls     : %s\n", humanize.Comma(loaderCalls.Load()))
	fmt.Printf("Cached Keys      : %s\n", humanize.Comma(int64(c.Size())))
	fmt.Printf("Hit Ratio        : %.4f\n", s.HitRatio())
	fmt.Println("=========================================")
	return nil
}
