// Command seed-db runs migrations, creates the initial admin account, and
// loads a starter product catalog into an empty database. All operations are
// idempotent, so the command is safe to re-run.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/halleyx/storefront-api/internal/domain/auth"
	"github.com/halleyx/storefront-api/internal/domain/product"
	"github.com/halleyx/storefront-api/internal/domain/user"
	"github.com/halleyx/storefront-api/internal/repository"
)

type productJSON struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stockQuantity"`
	ImageURL      string          `json:"imageUrl"`
}

func main() {
	var (
		databaseURL   string
		productsFile  string
		adminEmail    string
		adminPassword string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&adminEmail, "admin-email", "", "admin account email (or SHOP_SEED_ADMIN_EMAIL env)")
	flag.StringVar(&adminPassword, "admin-password", "", "admin account password (or SHOP_SEED_ADMIN_PASSWORD env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if adminEmail == "" {
		adminEmail = os.Getenv("SHOP_SEED_ADMIN_EMAIL")
	}
	if adminPassword == "" {
		adminPassword = os.Getenv("SHOP_SEED_ADMIN_PASSWORD")
	}
	if adminEmail == "" || adminPassword == "" {
		slog.Error("admin credentials are required: set --admin-email/--admin-password or SHOP_SEED_ADMIN_* env")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, adminEmail, adminPassword); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, adminEmail, adminPassword string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedAdmin(ctx, repository.NewUserRepository(pool), adminEmail, adminPassword); err != nil {
		return errors.Wrap(err, "seed admin account")
	}

	if err := seedProducts(ctx, repository.NewProductRepository(pool), productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	return nil
}

func seedAdmin(ctx context.Context, users user.Repository, email, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return errors.Wrap(err, "hash admin password")
	}

	err = users.Create(ctx, &user.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Store",
		LastName:     "Admin",
		Role:         user.RoleAdmin,
		Status:       user.StatusActive,
	})
	switch {
	case errors.Is(err, user.ErrEmailTaken):
		slog.Info("admin account already exists", slog.String("email", email))
		return nil
	case err != nil:
		return err
	}

	slog.Info("created admin account", slog.String("email", email))
	return nil
}

func seedProducts(ctx context.Context, products product.Repository, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var items []productJSON
	if err := json.Unmarshal(data, &items); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("seeding products", slog.Int("count", len(items)))

	var created int
	for _, p := range items {
		err := products.Create(ctx, &product.Product{
			ID:            uuid.NewString(),
			Name:          p.Name,
			Description:   p.Description,
			Price:         p.Price.Round(2),
			StockQuantity: p.StockQuantity,
			ImageURL:      p.ImageURL,
		})
		switch {
		case errors.Is(err, product.ErrNameTaken):
			slog.Info("product already exists, skipping", slog.String("name", p.Name))
			continue
		case err != nil:
			return errors.Wrapf(err, "create product %q", p.Name)
		}

		created++
		slog.Info("created product", slog.String("name", p.Name))
	}

	slog.Info("products seeded", slog.Int("created", created), slog.Int("skipped", len(items)-created))
	return nil
}
