package main

import (
	"encoding/hex"
	"flag"
	"log"
	"path/filepath"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"

	"github.com/high-horse/faceid-server/internal/audit"
	"github.com/high-horse/faceid-server/internal/config"
	"github.com/high-horse/faceid-server/internal/engine"
	"github.com/high-horse/faceid-server/internal/enroll"
	"github.com/high-horse/faceid-server/internal/journal"
	"github.com/high-horse/faceid-server/internal/recognize"
	"github.com/high-horse/faceid-server/internal/server"
	"github.com/high-horse/faceid-server/internal/stats"
	"github.com/high-horse/faceid-server/internal/store"
)

func main() {
	cfgPath := flag.String("config", "", "path to config.toml")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	if cfg.LogFile != "" {
		w, err := rotatelogs.New(cfg.LogFile)
		if err != nil {
			log.Fatalf("open log file: %v", err)
		}
		log.SetOutput(w)
	}

	var codec journal.Codec
	if cfg.AtRestKey != "" {
		key, err := hex.DecodeString(cfg.AtRestKey)
		if err != nil {
			log.Fatalf("at_rest_key is not hex: %v", err)
		}
		codec, err = journal.NewAES(key)
		if err != nil {
			log.Fatal(err)
		}
	}

	templatePath, attemptPath := "", ""
	if cfg.DataDir != "" {
		templatePath = filepath.Join(cfg.DataDir, "templates.journal")
		attemptPath = filepath.Join(cfg.DataDir, "attempts.journal")
	}

	templateJnl, err := journal.Open(templatePath, codec)
	if err != nil {
		log.Fatal(err)
	}
	attemptJnl, err := journal.Open(attemptPath, codec)
	if err != nil {
		log.Fatal(err)
	}

	templates, err := store.Open(cfg.EncodingDim, templateJnl, nil)
	if err != nil {
		log.Fatal(err)
	}
	trail, err := audit.Open(attemptJnl, nil)
	if err != nil {
		log.Fatal(err)
	}
	defer trail.Close()

	client := recognize.NewClient(cfg.Recognizer.Endpoint, cfg.Recognizer.Timeout())
	var oracle engine.Oracle = recognize.CosineOracle{}
	if cfg.Recognizer.OracleMode == "remote" {
		oracle = client
	}

	eng := engine.New(templates, oracle, trail, engine.Config{
		Dim:       cfg.EncodingDim,
		Threshold: cfg.Threshold,
		Timeout:   cfg.Recognizer.Timeout(),
	})
	registrar := enroll.New(client, templates, trail, nil, nil)
	agg := stats.New(templates, trail, cfg.StatsWindow, cfg.Location(), nil)

	srv := server.New(registrar, eng, agg, trail, client, templates)
	app := srv.App()

	log.Printf("faceid-server starting on %s (dim=%d threshold=%.2f oracle=%s)",
		cfg.Addr, cfg.EncodingDim, cfg.Threshold, cfg.Recognizer.OracleMode)
	log.Fatal(app.Listen(cfg.Addr))
}
