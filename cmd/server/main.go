// Command server runs the query HTTP API (§6): /search, /download,
// /metadata, /augment, backed by a Postgres Catalog.
package main

import (
	"bytes"
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"datamart/adapters/catalog/postgres"
	"datamart/adapters/georesolver"
	"datamart/adapters/httpapi"
	"datamart/adapters/materializer"
	"datamart/adapters/sketchindex"
	"datamart/augment"
	"datamart/domain/dataset"
	"datamart/internal/config"
	"datamart/profiler"
)

// probeProfiler adapts profiler.Profiler to httpapi.ProbeProfiler for
// /search requests carrying raw `data` bytes.
type probeProfiler struct {
	p *profiler.Profiler
}

func (pp probeProfiler) ProbeProfile(ctx context.Context, csvBytes []byte) (*dataset.Profile, error) {
	return pp.p.Profile(ctx, profiler.Input{
		ID:         dataset.NewId("probe", "inline"),
		Descriptor: dataset.DatasetDescriptor{Name: "probe"},
		Reader:     bytes.NewReader(csvBytes),
		SizeBytes:  int64(len(csvBytes)),
		Mode:       profiler.ModeSearch,
	})
}

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
	sketch := sketchindex.New(fmt.Sprintf("http://%s:%s", cfg.SketchIndex.Host, cfg.SketchIndex.Port))
	geo := georesolver.New()
	matcher := augment.New(catalog, sketch)
	mat := materializer.New(nil)
	probe := probeProfiler{p: profiler.New(geo, sketch)}

	server := httpapi.NewServer(catalog, matcher, mat, probe)

	addr := ":" + cfg.Server.Port
	log.Printf("listening on %s", addr)
	if err := server.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
