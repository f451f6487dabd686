// Command lotteryctl is the operations CLI: import a feed file, trigger a
// feed update, inspect import history or generate tickets without running
// the server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/lotterylab/lotterylab/internal/config"
	"github.com/lotterylab/lotterylab/internal/services/analysis"
	"github.com/lotterylab/lotterylab/internal/services/export"
	"github.com/lotterylab/lotterylab/internal/services/generator"
	"github.com/lotterylab/lotterylab/internal/services/ingestion"
	"github.com/lotterylab/lotterylab/internal/storage/sqlstore"
	"github.com/lotterylab/lotterylab/pkg/logger"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: lotteryctl <command> [flags]

commands:
  import -file <path>       import a feed snapshot from disk
  update                    download the remote feed and import new draws
  history [-limit n]        show recent import runs
  generate [-count n] [-game type]
                            generate weighted quick-pick tickets
  report [-format csv|json] [-game type] [-out path]
                            write a statistics report to disk
`)
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	lg := logger.New(logger.LoggingConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	db, err := sqlx.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	if err := sqlstore.Migrate(db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}
	store := sqlstore.New(db)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch os.Args[1] {
	case "import":
		fs := flag.NewFlagSet("import", flag.ExitOnError)
		file := fs.String("file", "", "path to a feed snapshot")
		fs.Parse(os.Args[2:])
		if *file == "" {
			fs.Usage()
			os.Exit(2)
		}

		svc := ingestion.New(store, store, nil, nil, cfg.Ingestion.GameProvider, lg)
		stats, err := svc.ImportFile(ctx, *file)
		if err != nil {
			log.Fatalf("import: %v", err)
		}
		fmt.Printf("inserted %d draws, skipped %d (high-water mark %d)\n",
			stats.Inserted, stats.Skipped, stats.MaxBefore)

	case "update":
		fetcher := ingestion.NewFetcher(
			cfg.Ingestion.SourceURL, cfg.Ingestion.RawDir,
			cfg.Ingestion.Retention, cfg.Ingestion.FetchTimeout, lg)
		svc := ingestion.New(store, store, fetcher, nil, cfg.Ingestion.GameProvider, lg)
		stats, err := svc.UpdateFromFeed(ctx)
		if err != nil {
			log.Fatalf("update: %v", err)
		}
		fmt.Printf("inserted %d draws, skipped %d (high-water mark %d)\n",
			stats.Inserted, stats.Skipped, stats.MaxBefore)

	case "history":
		fs := flag.NewFlagSet("history", flag.ExitOnError)
		limit := fs.Int("limit", 20, "number of runs to show")
		fs.Parse(os.Args[2:])

		runs, err := store.ListImportRuns(ctx, *limit)
		if err != nil {
			log.Fatalf("history: %v", err)
		}
		for _, run := range runs {
			fmt.Printf("%s  +%d/-%d  %s\n",
				run.CreatedAt.Format(time.RFC3339), run.Inserted, run.Skipped, run.SourceURL)
		}

	case "generate":
		fs := flag.NewFlagSet("generate", flag.ExitOnError)
		count := fs.Int("count", 1, "number of tickets")
		game := fs.String("game", "lotto", "game type")
		fs.Parse(os.Args[2:])

		svc := generator.New(analysis.New(store, lg), nil, lg)
		result, err := svc.Generate(ctx, *game, *count)
		if err != nil {
			log.Fatalf("generate: %v", err)
		}
		fmt.Printf("hot %v cold %v (%d draws)\n", result.Hot, result.Cold, result.BasedOnDraws)
		for _, ticket := range result.Tickets {
			fmt.Println(ticket.Numbers)
		}

	case "report":
		fs := flag.NewFlagSet("report", flag.ExitOnError)
		format := fs.String("format", export.FormatCSV, "csv or json")
		game := fs.String("game", "", "game type, empty for all")
		out := fs.String("out", "", "output path, default is the report filename")
		fs.Parse(os.Args[2:])

		svc := export.New(store, analysis.New(store, lg), lg)
		rendered, err := svc.Export(ctx, export.DefaultOptions(*game), *format)
		if err != nil {
			log.Fatalf("report: %v", err)
		}
		path := *out
		if path == "" {
			path = rendered.Filename
		}
		if err := os.WriteFile(path, rendered.Body, 0o644); err != nil {
			log.Fatalf("report: %v", err)
		}
		fmt.Printf("wrote %s (%d bytes)\n", path, len(rendered.Body))

	default:
		usage()
	}
}
