// Command seed-db applies the schema and loads a demo dataset: a staff
// account, a customer account, and a starter coffee catalog. Safe to run
// repeatedly; every write is an upsert.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/MohasaidAli/coffee-shop-system/internal/domain/customer"
	"github.com/MohasaidAli/coffee-shop-system/internal/repository"
)

const upsertProductSQL = `INSERT INTO products (id, name, price, stock, description)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		price = EXCLUDED.price,
		stock = EXCLUDED.stock,
		description = EXCLUDED.description`

type seedProduct struct {
	id          string
	name        string
	price       string
	stock       int
	description string
}

var seedProducts = []seedProduct{
	{"espresso", "Espresso", "2.50", 200, "Single shot, dark roast"},
	{"americano", "Americano", "3.00", 200, "Espresso over hot water"},
	{"latte", "Caffe Latte", "4.20", 150, "Espresso with steamed milk"},
	{"cappuccino", "Cappuccino", "4.00", 150, "Equal parts espresso, milk, foam"},
	{"flat-white", "Flat White", "4.30", 100, "Double ristretto, microfoam"},
	{"mocha", "Caffe Mocha", "4.80", 100, "Espresso, chocolate, steamed milk"},
	{"cold-brew", "Cold Brew", "4.50", 80, "Slow-steeped, served over ice"},
}

var seedUsers = []customer.Customer{
	{ID: "demo-staff", Name: "Sam Barista", Email: "staff@example.com", Role: customer.RoleStaff},
	{ID: "demo-customer", Name: "Casey Cortado", Email: "customer@example.com", Role: customer.RoleCustomer},
}

func main() {
	var databaseURL string

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

	if err := run(ctx, databaseURL); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL string) error {
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

	if err := seedAccounts(ctx, pool); err != nil {
		return errors.Wrap(err, "seed accounts")
	}

	if err := seedCatalog(ctx, pool); err != nil {
		return errors.Wrap(err, "seed catalog")
	}

	return nil
}

func seedAccounts(ctx context.Context, pool *pgxpool.Pool) error {
	repo := repository.NewCustomerRepository(pool)

	for _, u := range seedUsers {
		u := u
		if err := repo.Create(ctx, &u); err != nil {
			return errors.Wrapf(err, "upsert user %s", u.Email)
		}
		slog.Info("upserted user", slog.String("id", u.ID), slog.String("role", string(u.Role)))
	}
	return nil
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("upserting products", slog.Int("count", len(seedProducts)))

	for _, p := range seedProducts {
		price, err := decimal.NewFromString(p.price)
		if err != nil {
			return errors.Wrapf(err, "parse price for %s", p.id)
		}
		if _, err := pool.Exec(ctx, upsertProductSQL, p.id, p.name, price, p.stock, p.description); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.id)
		}
		slog.Info("upserted product", slog.String("id", p.id), slog.String("name", p.name))
	}
	return nil
}
