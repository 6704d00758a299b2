package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lox/campuswatt/internal/api"
	"github.com/lox/campuswatt/internal/campus"
	"github.com/lox/campuswatt/internal/ingest"
	"github.com/lox/campuswatt/internal/narrative"
	"github.com/lox/campuswatt/internal/optimizer"
	"github.com/lox/campuswatt/internal/render"
	"github.com/lox/campuswatt/internal/savings"
	"github.com/lox/campuswatt/internal/schedcache"
)

type ServeCmd struct {
	Port          string        `env:"PORT" default:"3001" help:"HTTP port."`
	WatchInterval time.Duration `name:"watch-interval" env:"CSV_WATCH_INTERVAL" default:"1m" help:"How often to check the energy CSV for changes."`

	RedisAddr     string        `name:"redis-addr" env:"REDIS_ADDR" help:"Redis address for the schedule cache; empty keeps it in memory."`
	RedisPassword string        `name:"redis-password" env:"REDIS_PASSWORD"`
	RedisDB       int           `name:"redis-db" env:"REDIS_DB" default:"0"`
	CacheTTL      time.Duration `name:"cache-ttl" env:"SCHEDULE_CACHE_TTL" default:"10m" help:"Schedule cache lifetime."`

	OpenAIKey   string `name:"openai-key" env:"OPENAI_API_KEY" help:"Enables model-written savings narratives."`
	OpenAIModel string `name:"openai-model" env:"OPENAI_MODEL" default:"gpt-4o-mini"`

	OptimizerCommand string        `name:"optimizer-command" env:"OPTIMIZER_COMMAND" help:"Command line of the AHU optimizer, e.g. 'python3 ahu_optimizer.py'."`
	OptimizerCSV     string        `name:"optimizer-csv" env:"OPTIMIZER_CSV" help:"CSV the optimizer reads when the request names none."`
	OptimizerTimeout time.Duration `name:"optimizer-timeout" env:"OPTIMIZER_TIMEOUT" default:"30s"`

	ClassesFile string `name:"classes-file" env:"CLASSES_FILE" help:"Class schedule CSV re-imported on --classes-cron."`
	ClassesCron string `name:"classes-cron" env:"CLASSES_CRON" default:"0 2 * * *" help:"Cron spec for the class re-import."`
}

func (c *ServeCmd) Run(g *Globals, ctx context.Context) error {
	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var cache schedcache.Cache = schedcache.NewMemory(c.CacheTTL)
	if c.RedisAddr != "" {
		client, err := schedcache.NewRedisClient(ctx, c.RedisAddr, c.RedisPassword, c.RedisDB)
		if err != nil {
			return err
		}
		defer client.Close()
		cache = schedcache.NewRedis(client, c.CacheTTL)
		a.logger.Info("schedule cache on redis", zap.String("addr", c.RedisAddr))
	}

	opts := []api.Option{
		api.WithLogger(a.logger),
		api.WithNarrator(narrative.NewWriter(c.OpenAIKey, c.OpenAIModel, a.logger)),
	}
	if cmd := strings.Fields(c.OptimizerCommand); len(cmd) > 0 {
		opts = append(opts, api.WithOptimizer(&optimizer.Runner{
			Command:    cmd,
			DefaultCSV: c.OptimizerCSV,
			Timeout:    c.OptimizerTimeout,
			Logger:     a.logger,
		}))
	}
	server := api.NewServer(a.campus(cache), c.Port, opts...)
	watcher := ingest.NewWatcher(a.energy, c.WatchInterval, a.logger)

	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		watcher.Run(gctx)
		return nil
	})
	eg.Go(func() error {
		return server.Run(gctx)
	})
	if c.ClassesFile != "" {
		sched := cron.New(cron.WithLocation(a.loc))
		if _, err := sched.AddFunc(c.ClassesCron, func() { importClassesFile(gctx, a, c.ClassesFile) }); err != nil {
			return fmt.Errorf("classes cron %q: %w", c.ClassesCron, err)
		}
		sched.Start()
		eg.Go(func() error {
			<-gctx.Done()
			<-sched.Stop().Done()
			return nil
		})
		a.logger.Info("scheduled class import", zap.String("file", c.ClassesFile), zap.String("cron", c.ClassesCron))
	}
	return eg.Wait()
}

func importClassesFile(ctx context.Context, a *app, path string) {
	f, err := os.Open(path)
	if err != nil {
		a.logger.Error("open class schedule", zap.String("path", path), zap.Error(err))
		return
	}
	defer f.Close()
	if _, err := ingest.ImportClasses(ctx, a.store, f, a.logger); err != nil {
		a.logger.Error("import class schedule", zap.String("path", path), zap.Error(err))
	}
}

type DeriveCmd struct {
	Building string `short:"b" help:"Building number; defaults to the site's."`
	System   string `short:"s" help:"Only this AHU."`
	Date     string `short:"d" help:"Day to derive (YYYY-MM-DD)."`
	Window   int    `short:"w" help:"Slots to cover from 07:00; 0 uses the site default."`
	Format   string `default:"table" enum:"table,json" help:"Output format."`
	PNG      string `name:"png" type:"path" help:"Also write the run chart to this file."`
}

func (c *DeriveCmd) Run(g *Globals, ctx context.Context) error {
	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.campus(nil).Runs(ctx, c.Building, c.System, c.Date, c.Window)
	if err != nil {
		return err
	}

	if c.PNG != "" {
		chart := render.Chart{
			Title:  fmt.Sprintf("Building %s AHU schedule %s", report.Building, report.Date),
			Window: report.Window,
		}
		for _, u := range report.Units {
			chart.Units = append(chart.Units, render.Row{Name: u.Name, Runs: u.Runs})
		}
		data, err := render.RunChart(chart)
		if err != nil {
			return err
		}
		if err := os.WriteFile(c.PNG, data, 0o644); err != nil {
			return fmt.Errorf("write chart: %w", err)
		}
	}

	if c.Format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report.Units)
	}

	return writeRunsTable(os.Stdout, report)
}

// writeRunsTable prints every run of every unit. Off runs carry their
// estimated savings; on runs show "-".
func writeRunsTable(w io.Writer, report campus.RunsReport) error {
	fmt.Fprintf(w, "Building %s on %s (%d slots)\n\n", report.Building, report.Date, report.Window)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "AHU\tTIME\tSTATE\tCLASS\tKWH SAVED\t$ SAVED")
	for _, u := range report.Units {
		saved := make(map[int]savings.Estimate, len(u.Estimates))
		for _, e := range u.Estimates {
			saved[e.Run.StartSlot] = e
		}
		for _, run := range u.Runs {
			state, kwh, dollars := "on", "-", "-"
			if !run.ShouldBeOn {
				state = "off"
				if e, ok := saved[run.StartSlot]; ok {
					kwh, dollars = e.KWh.StringFixed(0), e.Dollars.StringFixed(2)
				}
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\t%s\n",
				u.Name, run.TimeRange, state, run.HasActiveClass, kwh, dollars)
		}
	}
	fmt.Fprintf(tw, "TOTAL\t\t\t\t%s\t%s\n", report.KWhSaved.StringFixed(0), report.DollarsSaved.StringFixed(2))
	return tw.Flush()
}

type CompareCmd struct {
	Building    string `short:"b" help:"Building number; defaults to the site's."`
	Timeframe   string `short:"t" default:"day" enum:"day,today,week,month" help:"Comparison period."`
	OpenAIKey   string `name:"openai-key" env:"OPENAI_API_KEY"`
	OpenAIModel string `name:"openai-model" env:"OPENAI_MODEL" default:"gpt-4o-mini"`
}

func (c *CompareCmd) Run(g *Globals, ctx context.Context) error {
	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	tf, err := savings.ParseTimeframe(c.Timeframe)
	if err != nil {
		return err
	}
	cp := a.campus(nil)
	building := cp.Building(c.Building)
	cmp := cp.Savings(ctx, building, tf)
	report, err := cp.Runs(ctx, building, "", "", 0)
	if err != nil {
		return err
	}

	fmt.Printf("Building %s, %s\n", building, tf)
	fmt.Printf("  current   %-12s %10s kWh  (%d readings)\n", cmp.Current.Label, cmp.Current.Usage.StringFixed(1), cmp.Current.Count)
	fmt.Printf("  last year %-12s %10s kWh  (%d readings)\n", cmp.PreviousYear.Label, cmp.PreviousYear.Usage.StringFixed(1), cmp.PreviousYear.Count)
	fmt.Printf("  saved %s kWh (%s%%), $%s: %s\n\n", cmp.AbsoluteKWh.StringFixed(1), cmp.Percent.StringFixed(1), cmp.Dollars.StringFixed(2), cmp.Verdict)

	n := narrative.NewWriter(c.OpenAIKey, c.OpenAIModel, a.logger).Summarize(ctx, narrative.Facts{
		Building:        building,
		Comparison:      cmp,
		ScheduleKWh:     report.KWhSaved,
		ScheduleDollars: report.DollarsSaved,
		Date:            report.Date,
	})
	fmt.Println(n.Text)
	return nil
}

type ImportClassesCmd struct {
	File string `arg:"" type:"existingfile" help:"CSV with id,date,time,className,roomNumber,buildingNumber columns."`
}

func (c *ImportClassesCmd) Run(g *Globals, ctx context.Context) error {
	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	f, err := os.Open(c.File)
	if err != nil {
		return err
	}
	defer f.Close()

	res, err := ingest.ImportClasses(ctx, a.store, f, a.logger)
	if err != nil {
		return err
	}
	fmt.Printf("imported %d classes (%d skipped, %d flagged)\n", res.Imported, res.Skipped, res.Flagged)
	return nil
}

type SeedCmd struct{}

func (c *SeedCmd) Run(g *Globals, ctx context.Context) error {
	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := ingest.Seed(ctx, a.store, seedData(a.site), a.logger); err != nil {
		return err
	}
	fmt.Printf("seeded %d units, %d classes, %d rate tiers\n", len(a.site.Units), len(a.site.Classes), len(a.site.RateTiers))
	return nil
}
