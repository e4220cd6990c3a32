package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/bricegnichols/fast-trips/internal/api"
	"github.com/bricegnichols/fast-trips/internal/config"
	"github.com/bricegnichols/fast-trips/internal/store"
)

func main() {
	godotenv.Load()

	log.Println("═══════════════════════════════════════════")
	log.Println("  Fast-Trips Results API")
	log.Println("═══════════════════════════════════════════")

	ctx := context.Background()
	var archive api.Store

	if url := os.Getenv("FT_DATABASE_URL"); url != "" {
		pg, err := store.NewPostgres(ctx, url)
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		defer pg.Close()
		archive = pg
		log.Println("Serving from Postgres archive")
	} else {
		dbPath := config.EnvOr("FT_SQLITE_DATABASE", "results.db")
		db, err := store.Open(dbPath)
		if err != nil {
			log.Fatalf("Failed to open archive database: %v", err)
		}
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			log.Fatalf("Failed to ensure schema: %v", err)
		}
		archive = db
		log.Printf("Serving from SQLite archive at %s", dbPath)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: strings.Split(config.EnvOr("FT_CORS_ORIGINS", "*"), ","),
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Mount("/", api.NewHandler(archive).Routes())

	port := config.EnvOr("FT_PORT", "8081")
	log.Printf("Listening on :%s", port)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
