package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tripmail-service/internal/domain/entity"
	"tripmail-service/internal/domain/repository"
	"tripmail-service/internal/infrastructure/config"
	"tripmail-service/internal/infrastructure/persistence"
	repo "tripmail-service/internal/interface/repository"
	"tripmail-service/internal/usecase"
	"tripmail-service/pkg/logger"
)

// Extracts one document and prints the trip it would produce. Exits 1 when
// the trip fails verification (missing destination or unparseable dates).
func main() {
	subject := flag.String("subject", "", "subject line sent with the document")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-subject s] <file.pdf|file.eml|file.txt|file.html>\n", os.Args[0])
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	log := logger.NewLogger(cfg.LogLevel)
	defer log.Sync()

	doc, err := readDocument(flag.Arg(0), *subject)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.AICallTimeout)
	defer cancel()

	aiRepo, err := repo.NewGeminiRepository(ctx, repo.GeminiConfig{
		Project:  cfg.GCPProject,
		Location: cfg.GCPLocation,
		Model:    cfg.GeminiModel,
		APIKey:   cfg.GeminiAPIKey,
	}, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ai:", err)
		os.Exit(2)
	}

	var airlineRepo repository.AirlineRepository
	var airportRepo repository.AirportRepository
	if cfg.PostgresURI != "" {
		gormDB, err := persistence.NewPostgres(cfg.PostgresURI)
		if err != nil {
			fmt.Fprintln(os.Stderr, "postgres:", err)
			os.Exit(2)
		}
		airlineRepo = repo.NewGormAirlineRepository(gormDB)
		airportRepo = repo.NewGormAirportRepository(gormDB)
	}

	verifier := usecase.NewDocumentVerifier(
		usecase.NewExtractionEngine(aiRepo, log),
		usecase.NewNormalizer(usecase.LoadCarrierTable(ctx, airlineRepo, log), airportRepo, log),
	)

	trip, verifyErr := verifier.Verify(ctx, doc)
	if trip != nil {
		out, _ := json.MarshalIndent(trip, "", "  ")
		fmt.Println(string(out))
	}
	if verifyErr != nil {
		fmt.Fprintln(os.Stderr, "verification failed:", verifyErr)
		os.Exit(1)
	}
}

func readDocument(path, subject string) (*entity.InboundDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	doc := &entity.InboundDocument{
		Subject:    subject,
		ReceivedAt: time.Now(),
		Source:     entity.SourceUpload,
		SourceRef:  "file:" + filepath.Base(path),
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		doc.Attachments = []entity.Attachment{{Filename: filepath.Base(path), ContentType: "application/pdf", Size: len(data), Data: data}}
	case ".eml":
		doc.Attachments = []entity.Attachment{{Filename: filepath.Base(path), ContentType: "message/rfc822", Size: len(data), Data: data}}
	case ".html", ".htm":
		doc.HTML = string(data)
	default:
		doc.Text = string(data)
	}
	return doc, nil
}
