package bootstrap

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/shopbot/core/config"
	coredatabase "github.com/m3rciful/shopbot/core/database"
)

func noLogger(*coreconfig.Config) error { return nil }

func TestRunWithoutDatabase(t *testing.T) {
	var seeded []string
	res, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		LoggerInit: noLogger,
		Connect: func(context.Context, coredatabase.Config) (*sqlx.DB, error) {
			t.Fatal("connect must not run without a database config")
			return nil, nil
		},
		Modules: Modules{Seeders: []Seeder{
			SeederFunc(func(_ context.Context, r *Result) error {
				if r.DB != nil {
					t.Error("unexpected db")
				}
				seeded = append(seeded, "a")
				return nil
			}),
			nil,
			SeederFunc(func(context.Context, *Result) error {
				seeded = append(seeded, "b")
				return nil
			}),
		}},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(seeded) != 2 || seeded[0] != "a" || seeded[1] != "b" {
		t.Fatalf("seeders ran %v", seeded)
	}
	if err := res.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestRunStopsOnFailures(t *testing.T) {
	boom := errors.New("boom")
	_, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		Database:   &coredatabase.Config{Host: "db"},
		LoggerInit: noLogger,
		Connect:    func(context.Context, coredatabase.Config) (*sqlx.DB, error) { return nil, boom },
	})
	if !errors.Is(err, boom) {
		t.Fatalf("connect failure: %v", err)
	}

	_, err = Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		LoggerInit: noLogger,
		Modules: Modules{Seeders: []Seeder{SeederFunc(func(context.Context, *Result) error {
			return boom
		})}},
	})
	if !errors.Is(err, boom) {
		t.Fatalf("seeder failure: %v", err)
	}

	if _, err := Run(context.Background(), Options{}); err == nil {
		t.Fatal("nil config must fail")
	}
}

func TestRunClosesPoolWhenMigrationsFail(t *testing.T) {
	db, err := sqlx.Open("postgres", "host=127.0.0.1 dbname=none sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}
	boom := errors.New("dirty schema")
	_, err = Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		Database:   &coredatabase.Config{Host: "db"},
		LoggerInit: noLogger,
		Connect:    func(context.Context, coredatabase.Config) (*sqlx.DB, error) { return db, nil },
		Migrate:    func(context.Context, coredatabase.Config) error { return boom },
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if err := db.Ping(); err == nil || !strings.Contains(err.Error(), "closed") {
		t.Fatalf("pool must be closed, ping = %v", err)
	}
}
