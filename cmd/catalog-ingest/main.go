// Command catalog-ingest bulk-loads a product catalog from gzip-compressed
// JSON lines files. Each line holds one product object. Files are streamed
// concurrently and existing products are updated in place, so the command can
// re-import a full catalog export without duplicating rows.
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

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/halleyx/storefront-api/internal/repository"
)

const (
	progressEvery = 10_000
	writerCount   = 4
	recordBuffer  = 1024
)

const upsertProductSQL = `
INSERT INTO products (id, name, description, price, stock_quantity, image_url)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (name) DO UPDATE
SET description    = EXCLUDED.description,
    price          = EXCLUDED.price,
    stock_quantity = EXCLUDED.stock_quantity,
    image_url      = EXCLUDED.image_url,
    updated_at     = now()
`

type productRecord struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stockQuantity"`
	ImageURL      string          `json:"imageUrl"`
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing catalog .gz files")
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
	files, err := filepath.Glob(filepath.Join(dataDir, "*.gz"))
	if err != nil {
		return errors.Wrap(err, "list catalog files")
	}
	if len(files) == 0 {
		return errors.Errorf("no .gz files found in %s", dataDir)
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

	slog.Info("streaming catalog files", slog.Int("files", len(files)))

	records := make(chan productRecord, recordBuffer)

	g, ctx := errgroup.WithContext(ctx)

	// Readers: one per file, decompressing and decoding JSON lines.
	readers, readCtx := errgroup.WithContext(ctx)
	for _, f := range files {
		readers.Go(streamFile(readCtx, f, records))
	}
	g.Go(func() error {
		defer close(records)
		return readers.Wait()
	})

	// Writers: upsert records into the catalog.
	for range writerCount {
		g.Go(upsertRecords(ctx, pool, records))
	}

	return g.Wait()
}

// streamFile decompresses one catalog file and sends its records downstream.
func streamFile(ctx context.Context, path string, out chan<- productRecord) func() error {
	return func() error {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrapf(err, "open %s", path)
		}
		defer func() { _ = f.Close() }()

		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()

		var count uint64
		scanner := bufio.NewScanner(gz)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			var rec productRecord
			if err := json.Unmarshal(line, &rec); err != nil {
				return errors.Wrapf(err, "parse record in %s", path)
			}
			if rec.Name == "" {
				continue
			}

			select {
			case out <- rec:
			case <-ctx.Done():
				return ctx.Err()
			}

			count++
			if count%progressEvery == 0 {
				slog.Info("read progress", slog.String("file", filepath.Base(path)), slog.Uint64("records", count))
			}
		}
		if err := scanner.Err(); err != nil {
			return errors.Wrapf(err, "scan %s", path)
		}

		slog.Info("file complete", slog.String("file", filepath.Base(path)), slog.Uint64("records", count))
		return nil
	}
}

// upsertRecords drains the record channel, writing each product to the
// database. Negative prices and stock counts are rejected.
func upsertRecords(ctx context.Context, pool *pgxpool.Pool, in <-chan productRecord) func() error {
	return func() error {
		for rec := range in {
			if rec.Price.IsNegative() || rec.StockQuantity < 0 {
				return errors.Errorf("invalid record %q: negative price or stock", rec.Name)
			}

			_, err := pool.Exec(ctx, upsertProductSQL,
				uuid.NewString(),
				rec.Name,
				rec.Description,
				rec.Price.Round(2),
				rec.StockQuantity,
				rec.ImageURL,
			)
			if err != nil {
				return errors.Wrapf(err, "upsert product %q", rec.Name)
			}
		}
		return nil
	}
}
