// Command debugui is a secondary, read-only HTTP surface for browsing
// the Catalog by hand -- kept from the teacher's chi-routed UI, pared
// down to a dataset list and detail view instead of the full
// hypothesis-testing dashboard.
package main

import (
	"fmt"
	"html/template"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"datamart/adapters/catalog/postgres"
	"datamart/domain/dataset"
	"datamart/internal/config"
	"datamart/ports"
)

var listTemplate = template.Must(template.New("list").Parse(`<!doctype html>
<html><body>
<h1>Catalog</h1>
<ul>
{{range .}}<li><a href="/datasets/{{.ID}}">{{.Name}}</a> ({{.NbRows}} rows)</li>
{{end}}
</ul>
</body></html>`))

var detailTemplate = template.Must(template.New("detail").Parse(`<!doctype html>
<html><body>
<h1>{{.Name}}</h1>
<p>{{.Description}}</p>
<table border="1">
<tr><th>Column</th><th>Type</th><th>Distinct</th></tr>
{{range .Columns}}<tr><td>{{.Name}}</td><td>{{.StructuralType}}</td><td>{{.NumDistinctValues}}</td></tr>
{{end}}
</table>
</body></html>`))

func newRouter(catalog ports.Catalog) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		profiles, err := catalog.Scan(req.Context(), ports.ScanFilter{})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := listTemplate.Execute(w, profiles); err != nil {
			log.Printf("debugui: render list: %v", err)
		}
	})

	r.Get("/datasets/{id}", func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "id")
		profile, err := catalog.Get(req.Context(), dataset.Id(id))
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := detailTemplate.Execute(w, profile); err != nil {
			log.Printf("debugui: render detail: %v", err)
		}
	})

	return r
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
	r := newRouter(catalog)

	addr := ":6061"
	log.Printf("debug UI listening on %s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("debugui: %v", err)
	}
}
