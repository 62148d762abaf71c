package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"remitdesk.org/internal/auth"
	"remitdesk.org/internal/migrate"
	"remitdesk.org/internal/store"
	"remitdesk.org/internal/store/pg"
)

func main() {
	log.SetFlags(0)
	_ = godotenv.Load()

	var (
		dsn            = flag.String("dsn", os.Getenv("REMITDESK_PG_DSN"), "PostgreSQL DSN")
		migrationsPath = flag.String("migrations", "ops/migrations/sql", "Path to SQL migrations")
		seedsPath      = flag.String("seeds", "ops/migrations/seeds", "Path to SQL seeds")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or REMITDESK_PG_DSN")
	}
	if len(flag.Args()) == 0 {
		log.Fatal("usage: migrate [up|down|seed|demo|status]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	mgr := migrate.NewManager(db, *migrationsPath, *seedsPath)

	switch flag.Arg(0) {
	case "up":
		err = mgr.Up(ctx)
	case "down":
		err = mgr.Down(ctx)
	case "seed":
		err = mgr.Seed(ctx)
	case "demo":
		err = seedDemo(ctx, db)
	case "status":
		var history []string
		history, err = mgr.Status(ctx)
		if err == nil {
			for _, item := range history {
				fmt.Println(item)
			}
		}
	default:
		log.Fatalf("unknown command %q", flag.Arg(0))
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", flag.Arg(0), err)
	}
}

// seedDemo populates an empty database with demo principals and a few
// transactions. All demo accounts share the password "changeme".
func seedDemo(ctx context.Context, db *sql.DB) error {
	st := pg.New(db)
	users := st.Users()

	hash, err := auth.HashPassword("changeme")
	if err != nil {
		return err
	}

	demo := []*store.User{
		{Username: "global_admin", Role: store.RoleGlobalAdmin, Region: store.RegionGlobal},
		{Username: "asia_admin", Role: store.RoleRegionalAdmin, Region: "asia"},
		{Username: "europe_admin", Role: store.RoleRegionalAdmin, Region: "europe"},
		{Username: "sender_asia", Role: store.RoleSendingPartner, Region: "asia"},
		{Username: "receiver_asia", Role: store.RoleReceivingPartner, Region: "asia"},
		{Username: "sender_europe", Role: store.RoleSendingPartner, Region: "europe"},
	}
	byName := make(map[string]*store.User, len(demo))
	for _, u := range demo {
		u.PasswordHash = hash
		if err := users.Create(ctx, u); err != nil {
			if errors.Is(err, store.ErrDuplicateUsername) {
				log.Printf("demo user %s already exists, skipping", u.Username)
				existing, findErr := users.FindByUsername(ctx, u.Username)
				if findErr != nil {
					return findErr
				}
				byName[u.Username] = existing
				continue
			}
			return err
		}
		byName[u.Username] = u
	}

	txs := st.Transactions()
	samples := []*store.Transaction{
		{
			Amount:         decimal.RequireFromString("1250.00"),
			CurrencyFrom:   "USD",
			CurrencyTo:     "USDC",
			ConversionRate: decimal.RequireFromString("0.9991"),
			SenderID:       byName["sender_asia"].ID,
			ReceiverID:     byName["receiver_asia"].ID,
			Region:         "asia",
		},
		{
			Amount:         decimal.RequireFromString("310.50"),
			CurrencyFrom:   "EUR",
			CurrencyTo:     "USDC",
			ConversionRate: decimal.RequireFromString("1.0840"),
			SenderID:       byName["sender_europe"].ID,
			ReceiverID:     byName["receiver_asia"].ID,
			Region:         "europe",
		},
	}
	for _, tx := range samples {
		if err := txs.Create(ctx, tx); err != nil {
			return err
		}
	}
	log.Printf("seeded %d demo users and %d transactions", len(demo), len(samples))
	return nil
}
