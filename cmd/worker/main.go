// Command worker runs the Discovery Loop (C8) and Work Dispatcher (C9):
// for each configured source, one runner feeding that source's own
// in-process Broker, drained by its own semaphore-bounded Dispatcher.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"datamart/adapters/broker/inproc"
	"datamart/adapters/catalog/postgres"
	"datamart/adapters/georesolver"
	"datamart/adapters/sketchindex"
	"datamart/adapters/source"
	"datamart/dispatcher"
	"datamart/discovery"
	"datamart/internal/config"
	"datamart/profiler"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, continuing with process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("connect to catalog database: %v", err)
	}
	defer db.Close()

	catalog := postgres.NewCatalog(db)
	pending := postgres.NewPendingStore(db)
	geo := georesolver.New()
	sketch := sketchindex.New("http://" + cfg.SketchIndex.Host + ":" + cfg.SketchIndex.Port)
	p := profiler.New(geo, sketch)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Each source gets its own Broker: the profile fanout exchange is
	// per-source so a dispatcher's SourceOpener (file path vs. direct
	// fetch) never sees a message meant for another source's opener.
	for _, sc := range cfg.Sources {
		broker := inproc.New()

		switch sc.Kind {
		case "incremental":
			interval, err := time.ParseDuration(sc.CheckInterval)
			if err != nil || interval <= 0 {
				interval = discovery.DefaultInterval
			}
			src := source.NewHTTPIncrementalSource(sc.Identifier, sc.URL, sc.Auth, interval)
			runner := discovery.NewIncrementalRunner(src, catalog, broker)
			go runner.Run(ctx)

			d := dispatcher.New(broker, catalog, p, dispatcher.FetchOpener{Source: src})
			go d.Run(ctx)

		default:
			src := source.NewHTTPBulkDumpSource(sc.Identifier, sc.URL, sc.ListingURL, sc.Auth)
			runner := discovery.NewBulkDumpRunner(src, pending, catalog, broker)
			go runner.Run(ctx)

			d := dispatcher.New(broker, catalog, p, dispatcher.FileOpener{})
			go d.Run(ctx)
		}
	}

	log.Printf("worker running with %d source(s)", len(cfg.Sources))
	<-ctx.Done()
	log.Println("shutting down")
}
