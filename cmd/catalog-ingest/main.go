// Command catalog-ingest bulk-imports supplier product feeds. A feed is a
// gzip'd JSON-lines file, one product per line; feeds from several suppliers
// often overlap, so a bloom filter tracks SKUs already written and duplicate
// lines are skipped without holding every SKU in memory. Upserts are
// idempotent, so re-running an ingest is safe.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/MohasaidAli/coffee-shop-system/internal/repository"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.0001
	progressEvery = 100_000
)

const upsertProductSQL = `INSERT INTO products (id, name, price, stock, description)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		price = EXCLUDED.price,
		stock = EXCLUDED.stock,
		description = EXCLUDED.description`

type feedProduct struct {
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Description string          `json:"description"`
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.jsonl.gz feed files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "glob feed files")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.jsonl.gz files in %s", dataDir)
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	slog.Info("ingesting feeds", slog.Int("files", len(files)))

	var (
		mu   sync.Mutex
		seen = bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, file := range files {
		g.Go(func() error {
			n, err := ingestFeed(ctx, pool, file, &mu, seen)
			if err != nil {
				return errors.Wrapf(err, "ingest %s", file)
			}
			slog.Info("feed done", slog.String("file", filepath.Base(file)), slog.Int("upserted", n))
			return nil
		})
	}

	return g.Wait()
}

func ingestFeed(ctx context.Context, pool *pgxpool.Pool, path string, mu *sync.Mutex, seen *bloom.BloomFilter) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, "open")
	}
	defer f.Close()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return 0, errors.Wrap(err, "gzip reader")
	}
	defer gz.Close()

	var (
		upserted int
		lineNo   int
	)

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return upserted, err
		}
		lineNo++

		var p feedProduct
		if err := json.Unmarshal(scanner.Bytes(), &p); err != nil {
			return upserted, errors.Wrapf(err, "parse line %d", lineNo)
		}
		if p.SKU == "" || p.Name == "" {
			return upserted, errors.Errorf("line %d: sku and name required", lineNo)
		}

		mu.Lock()
		dup := seen.TestOrAddString(p.SKU)
		mu.Unlock()
		if dup {
			continue
		}

		_, err := pool.Exec(ctx, upsertProductSQL, p.SKU, p.Name, p.Price, p.Stock, p.Description)
		if err != nil {
			return upserted, errors.Wrapf(err, "upsert sku %s", p.SKU)
		}
		upserted++

		if upserted%progressEvery == 0 {
			slog.Info("progress",
				slog.String("file", filepath.Base(path)),
				slog.Int("upserted", upserted),
			)
		}
	}

	if err := scanner.Err(); err != nil {
		return upserted, errors.Wrap(err, "scan")
	}
	return upserted, nil
}
