// Command sheetprobe-web starts a tiny web UI for the workbook profiler.
//
// Usage:
//
//	go run ./cmd/sheetprobe-web -addr :8080
package main

import (
	"flag"
	"log"

	"go.uber.org/zap"

	"sheetsync/internal/webui"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	verbose := flag.Bool("v", false, "enable verbose logs")
	flag.Parse()

	logger, err := buildLogger(*verbose)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	srv := webui.NewServer(webui.Config{
		Addr:   *addr,
		Logger: logger,
	})
	logger.Info("listening", zap.String("addr", *addr))
	if err := srv.ListenAndServe(); err != nil {
		logger.Fatal("serve", zap.Error(err))
	}
}

func buildLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
