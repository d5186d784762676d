package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v2"

	"github.com/pattern-lab/formation-trading/internal/decision"
	"github.com/pattern-lab/formation-trading/internal/history"
	"github.com/pattern-lab/formation-trading/internal/journal"
	"github.com/pattern-lab/formation-trading/internal/logger"
	"github.com/pattern-lab/formation-trading/internal/marketdata"
	"github.com/pattern-lab/formation-trading/internal/pattern/cache"
	"github.com/pattern-lab/formation-trading/internal/simulator"
	"github.com/pattern-lab/formation-trading/internal/types"
)

// lookbackDays is how far back the data load reaches from the
// configured end. Two years of calendar days comfortably covers the
// slowest detector's window plus a meaningful rescan history.
const lookbackDays = 730

func loadConfig(path string) (simulator.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return simulator.Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	config := simulator.EmptyConfig()
	if err := yaml.Unmarshal(raw, &config); err != nil {
		return simulator.Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return config, nil
}

// buildSource assembles the decision source chain. Gemini is wrapped
// in retries since a flaky collaborator must degrade to "hold", not
// crash the run.
func buildSource(ctx context.Context, cmd *cli.Command, log *logger.Logger) (decision.Source, error) {
	if !cmd.Bool("gemini") {
		return decision.NewRuleBased(), nil
	}

	gemini, err := decision.NewGemini(ctx, cmd.String("gemini-model"))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini source: %w", err)
	}

	return decision.NewRetrying(gemini, 3, 2*time.Second, log), nil
}

func buildResultCache(cmd *cli.Command) cache.Cache {
	addr := cmd.String("redis")
	if addr == "" {
		return cache.NewMemory()
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})

	return cache.NewRedis(rdb, 0, "")
}

func loadStore(ctx context.Context, config simulator.Config, dataDir string) (*history.Store, error) {
	provider := marketdata.NewCSVProvider(dataDir)
	store := history.NewStore()

	end := time.Now().UTC()
	if config.EndTime.IsSome() {
		end = config.EndTime.Unwrap()
	}

	bar := progressbar.Default(int64(len(config.Watchlist)), "loading history")

	for _, instrument := range config.Watchlist {
		if err := store.LoadFrom(ctx, provider, instrument, end, lookbackDays); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", instrument, err)
		}

		_ = bar.Add(1)
	}

	_ = bar.Finish()

	return store, nil
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	config, err := loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	store, err := loadStore(ctx, config, cmd.String("data"))
	if err != nil {
		return err
	}

	source, err := buildSource(ctx, cmd, log)
	if err != nil {
		return err
	}

	engine, err := simulator.NewEngine(config, store, source, buildResultCache(cmd), log)
	if err != nil {
		return err
	}

	days := progressbar.Default(-1, "simulating")
	engine.SetOnDayCallback(func(date time.Time, equity float64) {
		days.Describe(fmt.Sprintf("simulating %s (equity %.0f)", date.Format("2006-01-02"), equity))
		_ = days.Add(1)
	})

	report, err := engine.Run(ctx)
	if err != nil {
		return err
	}

	_ = days.Finish()

	output := cmd.String("output")
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := types.WriteReport(output, report); err != nil {
		return err
	}

	fmt.Printf("run %s finished: return %.2f%%, %d trades, report written to %s\n",
		report.ID, report.Stats.TotalReturnPct, len(report.Trades), output)

	if journalPath := cmd.String("journal"); journalPath != "" {
		runJournal, err := journal.NewJournal(journalPath, log)
		if err != nil {
			return err
		}
		defer runJournal.Close()

		if err := runJournal.Archive(report); err != nil {
			return err
		}

		if parquetDir := cmd.String("parquet"); parquetDir != "" {
			if err := runJournal.ExportParquet(parquetDir); err != nil {
				return err
			}
		}
	}

	return nil
}

func schemaAction(_ context.Context, _ *cli.Command) error {
	config := simulator.EmptyConfig()

	schemaJSON, err := config.GenerateSchemaJSON()
	if err != nil {
		return err
	}

	fmt.Println(schemaJSON)

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "backtest",
		Usage: "Validate chart patterns and replay them through a walk-forward portfolio simulation",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run a walk-forward simulation",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Path to the YAML run configuration",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "data",
						Aliases: []string{"d"},
						Usage:   "Directory holding per-instrument CSV bar files",
						Value:   "data",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Path for the YAML run report",
						Value:   "results/report.yaml",
					},
					&cli.StringFlag{
						Name:  "journal",
						Usage: "Optional DuckDB file to archive the run into",
					},
					&cli.StringFlag{
						Name:  "parquet",
						Usage: "Optional directory for Parquet exports of the journal (requires --journal)",
					},
					&cli.StringFlag{
						Name:  "redis",
						Usage: "Optional Redis address for the shared validation cache (e.g. localhost:6379)",
					},
					&cli.BoolFlag{
						Name:  "gemini",
						Usage: "Consult Gemini for entry and exit decisions instead of the built-in rules",
					},
					&cli.StringFlag{
						Name:  "gemini-model",
						Usage: "Gemini model to query",
						Value: decision.DefaultGeminiModel,
					},
				},
				Action: runAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema of the run configuration",
				Action: schemaAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
