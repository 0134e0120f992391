package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"auction_display/internal/app"
	"auction_display/internal/engine"
	"auction_display/internal/images"
	"auction_display/internal/notify"
	"auction_display/internal/persist"
	"auction_display/internal/record"
	"auction_display/internal/server"
	"auction_display/internal/sheet"
	"auction_display/internal/stage"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// openRowSource runs the data pipeline for the engine: fetch the linked
// sheet, replace the record store, hand back the open subset.
type openRowSource struct {
	links   func() (sheet.Link, bool)
	fetcher *sheet.Fetcher
	store   *record.Store
}

func (s *openRowSource) FetchOpen(ctx context.Context) ([]record.Record, error) {
	link, ok := s.links()
	if !ok {
		return nil, fmt.Errorf("no sheet linked")
	}
	rows, err := s.fetcher.FetchRows(ctx, link)
	if err != nil {
		return nil, err
	}
	s.store.SetRows(rows)
	return s.store.Open(), nil
}

func main() {
	app.SetupEnvironment()
	cfg := app.LoadConfig()

	ctx := context.Background()

	db := openDatabase(cfg.DBPath)
	defer db.Close()

	gateway, err := persist.NewSQLiteGateway(db)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize persistence gateway")
	}

	imageStore, err := images.NewStore(db)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize image store")
	}

	fetcher := sheet.NewFetcher()
	if cfg.CredentialsFile != "" {
		apiClient, err := sheet.NewAPIClient(ctx, cfg.CredentialsFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create sheets API client")
		}
		fetcher.WithAPIClient(apiClient)
		log.Info().Str("credentials", cfg.CredentialsFile).Msg("Using authenticated Sheets API source")
	}

	hub := server.NewHub()
	go hub.Run()

	source := &openRowSource{
		fetcher: fetcher,
		store:   record.NewStore(),
	}

	eng := engine.New(engine.Config{
		ImageDuration:        cfg.ImageDuration,
		ItemsPerTable:        cfg.ItemsPerTable,
		RowsPerPage:          cfg.RowsPerPage,
		RowHighlightDuration: cfg.RowHighlightDuration,
	}, source, imageStore, server.NewHubNotifier(hub), gateway)

	controller := stage.NewController(gateway, fetcher, eng, imageStore, cfg.RequireImages)
	source.links = controller.Link

	controller.Restore()

	alerts := notify.NewClient(cfg.NtfyURL, cfg.NtfyTopic, cfg.NtfyEnabled)
	if cfg.NtfyEnabled {
		log.Info().Str("topic", cfg.NtfyTopic).Msg("Failure alerts enabled")
	}

	srv := server.New(controller, eng, imageStore, hub, alerts)

	log.Info().Str("addr", cfg.ListenAddr).Msg("Starting auction display server")
	if err := http.ListenAndServe(cfg.ListenAddr, srv.Routes()); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}

func openDatabase(path string) *sql.DB {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to create database directory")
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=1")
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to open database")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to ping database")
	}

	log.Debug().Str("path", path).Msg("Database opened")
	return db
}
