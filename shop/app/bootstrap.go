package app

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/m3rciful/shopbot/core/bootstrap"
	"github.com/m3rciful/shopbot/migrations"
	"github.com/m3rciful/shopbot/shop/catalog"
	shopconfig "github.com/m3rciful/shopbot/shop/config"
	"github.com/m3rciful/shopbot/shop/importer"
	"github.com/m3rciful/shopbot/shop/sheets"
)

// Bootstrap initializes the logger, the optional database, the catalog store
// (seeded on first start) and the spreadsheet sources, then builds the App.
func Bootstrap(ctx context.Context, cfg *shopconfig.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}
	seeder := &catalogSeeder{cfg: cfg}
	opts := bootstrap.Options{
		Config:  cfg.CoreConfig(),
		Modules: bootstrap.Modules{Seeders: []bootstrap.Seeder{seeder}},
	}
	if cfg.Storage.Driver == shopconfig.StoragePostgres {
		db := cfg.Database
		if db.MigrationsDir == "" {
			db.Migrations = migrations.FS
		}
		opts.Database = &db
	}
	res, err := bootstrap.Run(ctx, opts)
	if err != nil {
		return nil, err
	}

	source, lister, err := buildSources(ctx, cfg.Sheets)
	if err != nil {
		_ = res.Close()
		return nil, err
	}
	var imp *importer.Importer
	if cfg.Sheets.SpreadsheetID != "" {
		imp = importer.New(seeder.store, source, importer.Options{Fetchers: cfg.Sheets.Fetchers})
	}

	a, err := New(Options{Config: cfg, Store: seeder.store, Importer: imp, Tabs: lister})
	if err != nil {
		_ = res.Close()
		return nil, err
	}
	a.closers = append(a.closers, res.Close)
	return a, nil
}

// catalogSeeder opens the catalog on the configured backend and writes the seed
// document when none exists yet.
type catalogSeeder struct {
	cfg   *shopconfig.Config
	store *catalog.Store
}

func (s *catalogSeeder) Seed(ctx context.Context, res *bootstrap.Result) error {
	var backend catalog.Backend
	if res.DB != nil {
		backend = catalog.NewPostgresBackend(res.DB)
	} else {
		backend = catalog.NewFileBackend(s.cfg.Storage.Path)
	}
	s.store = catalog.NewStore(backend)
	return s.store.LoadOrInit(ctx, SeedDocument(s.cfg.Seed))
}

// SeedDocument is the document written on the very first start.
func SeedDocument(seed shopconfig.SeedConfig) catalog.Document {
	doc := catalog.NewDocument()
	doc.SuperUserIDs = slices.Clone(seed.SuperUserIDs)
	if w := strings.TrimSpace(seed.Welcome); w != "" {
		doc.Texts.Welcome = w
	}
	return doc
}

// buildSources prefers the Sheets API when credentials are configured; the public
// export endpoints need none but cannot list tabs.
func buildSources(ctx context.Context, sc shopconfig.SheetsConfig) (sheets.Source, sheets.Lister, error) {
	if sc.UseAPI() {
		api, err := sheets.NewAPISource(ctx, sheets.APIOptions{
			CredentialsFile: sc.CredentialsFile,
			CredentialsJSON: sc.CredentialsJSON,
		})
		if err != nil {
			return nil, nil, err
		}
		return api, api, nil
	}
	return sheets.NewExportSource(sheets.ExportOptions{RPS: sc.RPS}), nil, nil
}
