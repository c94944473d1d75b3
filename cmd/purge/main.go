// Command purge enumerates every Catalog document for a given source
// identifier and deletes it from both the Catalog and the Sketch Index
// (§9 "Purge tool" design note) -- the operator's tool for retiring a
// source entirely.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"datamart/adapters/catalog/postgres"
	"datamart/adapters/sketchindex"
	"datamart/internal/config"
	"datamart/ports"
)

func main() {
	source := flag.String("source", "", "source identifier to purge")
	dryRun := flag.Bool("dry-run", false, "list what would be deleted without deleting")
	flag.Parse()

	if *source == "" {
		log.Fatal("purge: -source is required")
	}

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
	sketch := sketchindex.New("http://" + cfg.SketchIndex.Host + ":" + cfg.SketchIndex.Port)

	if err := run(context.Background(), catalog, sketch, *source, *dryRun); err != nil {
		log.Fatalf("purge: %v", err)
	}
}

func run(ctx context.Context, catalog ports.Catalog, sketch ports.SketchIndex, source string, dryRun bool) error {
	profiles, err := catalog.Scan(ctx, ports.ScanFilter{SourceIdentifier: source})
	if err != nil {
		return err
	}

	log.Printf("purge: %d document(s) found for source %q", len(profiles), source)

	for _, profile := range profiles {
		if dryRun {
			log.Printf("purge: would delete %s", profile.ID)
			continue
		}
		if err := sketch.Purge(ctx, profile.ID); err != nil {
			log.Printf("purge: sketch index purge failed for %s: %v", profile.ID, err)
		}
		if err := catalog.Delete(ctx, profile.ID); err != nil {
			log.Printf("purge: catalog delete failed for %s: %v", profile.ID, err)
			continue
		}
		log.Printf("purge: deleted %s", profile.ID)
	}
	return nil
}
