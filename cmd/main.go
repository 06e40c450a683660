package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	cache "github.com/krisalay/keyed-cache"
	"github.com/krisalay/keyed-cache/bookstore"
	"github.com/krisalay/keyed-cache/config"
	"github.com/krisalay/keyed-cache/logging"
	"github.com/krisalay/keyed-cache/types"
)

func main() {
	os.Exit(realMain(context.Background(), os.Args, os.Stdout))
}

func realMain(ctx context.Context, args []string, out io.Writer) int {
	logging.Init("")

	if err := newApp(out).Run(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// app is what every subcommand works on.
type app struct {
	cfg     config.Config
	repo    *bookstore.MemoryRepository
	books   *cache.KeyedCache[int64, *bookstore.Book]
	cached  *bookstore.CachedRepository
	metrics *types.Counters
}

func newApp(out io.Writer) *cli.Command {
	var a app

	return &cli.Command{
		Name:  "keyedcache",
		Usage: "cache-aside lookups over a book repository",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML config file",
				Sources: cli.EnvVars(config.EnvConfig),
			},
			&cli.IntFlag{
				Name:  "shards",
				Usage: "cache shard count (overrides the config file)",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			cfg, err := config.Load(cmd.String("config"))
			if err != nil {
				return ctx, err
			}
			if n := cmd.Int("shards"); n > 0 {
				cfg.Shards = n
			}
			logging.Init(cfg.LogLevel)
			return ctx, a.setup(cfg)
		},
		Commands: []*cli.Command{
			{
				Name:  "demo",
				Usage: "run the cached, uncached and distinct-key scenarios",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return a.demo(ctx, out)
				},
			},
			{
				Name:  "lookup",
				Usage: "look a book up one or more times",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "id", Usage: "book id", Required: true},
					&cli.IntFlag{Name: "repeat", Usage: "number of lookups", Value: 2},
					&cli.BoolFlag{Name: "no-cache", Usage: "bypass the cache"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return a.lookup(ctx, out, cmd.Int64("id"), cmd.Int("repeat"), cmd.Bool("no-cache"))
				},
			},
		},
	}
}

func (a *app) setup(cfg config.Config) error {
	a.cfg = cfg
	a.metrics = &types.Counters{}
	a.repo = bookstore.NewMemoryRepository(cfg.Catalog...)

	m := cache.NewManager[int64, *bookstore.Book](
		[]string{bookstore.CacheName},
		cache.WithShards[int64](cfg.Shards),
		cache.WithMetrics[int64](a.metrics),
		cache.WithLogger[int64](log.Log),
		cache.WithKeyValidator(bookstore.ValidateID),
	)
	books, err := m.Cache(bookstore.CacheName)
	if err != nil {
		return err
	}
	a.books = books
	a.cached = bookstore.NewCachedRepository(a.repo, a.books)
	return nil
}

func (a *app) demo(ctx context.Context, out io.Writer) error {
	fmt.Fprintln(out, "\n==================== SYSTEM BOOT ====================")
	fmt.Fprintf(out, "SHARDS  : %d\n", a.cfg.Shards)
	fmt.Fprintf(out, "CATALOG : %d books\n", len(a.cfg.Catalog))
	if len(a.cfg.Catalog) < 2 {
		return fmt.Errorf("demo needs at least two books in the catalog, have %d", len(a.cfg.Catalog))
	}
	first, second := a.cfg.Catalog[0].ID, a.cfg.Catalog[1].ID

	// ====================================================
	fmt.Fprintln(out, "\n==================== 1) CACHED LOOKUP ====================")
	a.books.Clear()
	before := a.repo.Calls()
	x, err := a.cached.FindByIDWithCache(ctx, first)
	if err != nil {
		return err
	}
	y, err := a.cached.FindByIDWithCache(ctx, first)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "CACHE  → GET %d twice, same book: %t, repository calls: %d\n", first, x == y, a.repo.Calls()-before)

	// ====================================================
	fmt.Fprintln(out, "\n==================== 2) UNCACHED LOOKUP ====================")
	before = a.repo.Calls()
	x, err = a.cached.FindByIDWithoutCache(ctx, first)
	if err != nil {
		return err
	}
	y, err = a.cached.FindByIDWithoutCache(ctx, first)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "STORE  → GET %d twice, same book: %t, repository calls: %d\n", first, x == y, a.repo.Calls()-before)

	// ====================================================
	fmt.Fprintln(out, "\n==================== 3) DISTINCT KEYS ====================")
	a.books.Clear()
	before = a.repo.Calls()
	x, err = a.cached.FindByIDWithCache(ctx, first)
	if err != nil {
		return err
	}
	y, err = a.cached.FindByIDWithCache(ctx, second)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "CACHE  → GET %d then %d, same book: %t, repository calls: %d\n", first, second, x == y, a.repo.Calls()-before)

	// ====================================================
	fmt.Fprintln(out, "\n==================== 4) INVALIDATE ====================")
	a.cached.Evict(first)
	before = a.repo.Calls()
	if _, err := a.cached.FindByIDWithCache(ctx, first); err != nil {
		return err
	}
	fmt.Fprintf(out, "CACHE  → GET %d after invalidate, repository calls: %d\n", first, a.repo.Calls()-before)

	a.printMetrics(out)
	return nil
}

func (a *app) lookup(ctx context.Context, out io.Writer, id int64, repeat int, noCache bool) error {
	find := a.cached.FindByIDWithCache
	if noCache {
		find = a.cached.FindByIDWithoutCache
	}

	var prev *bookstore.Book
	for i := 1; i <= repeat; i++ {
		b, err := find(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s lookup → %d %q (same as previous: %t)\n", humanize.Ordinal(i), b.ID, b.Title, prev != nil && prev == b)
		prev = b
	}
	fmt.Fprintf(out, "repository calls: %s\n", humanize.Comma(a.repo.Calls()))
	return nil
}

func (a *app) printMetrics(out io.Writer) {
	s := a.metrics.Snapshot()
	fmt.Fprintln(out, "\n==================== METRICS ====================")
	fmt.Fprintf(out, "HITS        : %s\n", humanize.Comma(s.Hits))
	fmt.Fprintf(out, "MISSES      : %s\n", humanize.Comma(s.Misses))
	fmt.Fprintf(out, "LOADS       : %s\n", humanize.Comma(s.Loads))
	fmt.Fprintf(out, "LOAD ERRORS : %s\n", humanize.Comma(s.LoadErrors))
	fmt.Fprintf(out, "HIT RATIO   : %.2f\n", s.HitRatio())
}
