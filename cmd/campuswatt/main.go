package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	"go.uber.org/zap"

	"github.com/lox/campuswatt/internal/campus"
	"github.com/lox/campuswatt/internal/config"
	"github.com/lox/campuswatt/internal/energy"
	"github.com/lox/campuswatt/internal/ingest"
	"github.com/lox/campuswatt/internal/logging"
	"github.com/lox/campuswatt/internal/schedcache"
	"github.com/lox/campuswatt/internal/store"
)

// Globals are the flags every command shares.
type Globals struct {
	EnvFile  kongdotenv.ENVFileConfig `kong:"optional,name=env-file,default='.env',help='Path to .env file.'"`
	LogLevel string                   `name:"log-level" env:"LOG_LEVEL" default:"info" enum:"debug,info,warn,error" help:"Log level."`
	DB       string                   `name:"db" env:"CAMPUSWATT_DB" default:":memory:" help:"SQLite database path."`
	Site     string                   `name:"site" env:"CAMPUSWATT_SITE" help:"YAML site file overriding the built-in campus."`
	CSVPath  string                   `name:"csv-path" env:"CSV_FILE_PATH" default:"data/energy.csv" help:"Energy CSV path or ftp:// URL."`
	Timezone string                   `name:"tz" env:"CAMPUSWATT_TZ" default:"UTC" help:"Timezone for calendar windows."`
}

type CLI struct {
	Globals

	Serve         ServeCmd         `cmd:"" default:"1" help:"Run the dashboard API."`
	Derive        DeriveCmd        `cmd:"" help:"Print the AHU run schedule for a day."`
	Compare       CompareCmd       `cmd:"" help:"Compare energy use against the same period last year."`
	ImportClasses ImportClassesCmd `cmd:"" name:"import-classes" help:"Replace the class schedule from a CSV file."`
	Seed          SeedCmd          `cmd:"" help:"Load the site's units, classes and rate tiers into the database."`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("campuswatt"),
		kong.Description("Campus energy dashboard and AHU schedule engine."),
		kong.UsageOnError(),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kctx.BindTo(ctx, (*context.Context)(nil))
	if err := kctx.Run(&cli.Globals); err != nil {
		fmt.Fprintf(os.Stderr, "campuswatt: %v\n", err)
		os.Exit(1)
	}
}

// app is everything a command needs, opened from Globals.
type app struct {
	logger *zap.Logger
	site   config.Site
	loc    *time.Location
	db     *sql.DB
	store  *store.Store
	energy *energy.Cache
}

func (g *Globals) open(ctx context.Context) (*app, error) {
	logger, err := logging.New(g.LogLevel)
	if err != nil {
		return nil, err
	}

	site, err := config.Load(g.Site)
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(g.Timezone)
	if err != nil {
		logger.Warn("unknown timezone, using UTC", zap.String("tz", g.Timezone), zap.Error(err))
		loc = time.UTC
	}

	st, db, err := store.Open(g.DB, logger)
	if err != nil {
		return nil, err
	}

	// A fresh database gets the site's reference data so the API has
	// something to derive from.
	rev, err := st.Revision(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store revision: %w", err)
	}
	if rev == 0 {
		if err := ingest.Seed(ctx, st, seedData(site), logger); err != nil {
			db.Close()
			return nil, err
		}
	}

	en, err := energy.NewCache(g.CSVPath,
		energy.WithLogger(logger),
		energy.WithLocation(loc),
		energy.WithDefaultBuilding(site.DefaultBuilding),
		energy.WithRecorder(st),
	)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &app{logger: logger, site: site, loc: loc, db: db, store: st, energy: en}, nil
}

func (a *app) Close() {
	a.db.Close()
	a.logger.Sync()
}

func (a *app) campus(cache schedcache.Cache) *campus.Campus {
	return campus.New(a.store, a.energy, cache, campus.Config{
		DefaultBuilding: a.site.DefaultBuilding,
		DefaultDate:     a.site.DefaultDate,
		Window:          a.site.Schedule.Window,
		Policy:          a.site.Policy(),
		Table:           a.site.SavingsTable(),
		Location:        a.loc,
	}, a.logger)
}

func seedData(site config.Site) ingest.SeedData {
	return ingest.SeedData{
		Units:     site.Units,
		Classes:   site.Classes,
		RateTiers: site.RateTiers,
	}
}
