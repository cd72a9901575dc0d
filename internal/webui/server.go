// Package webui exposes a minimal HTTP server with an HTML form that
// profiles a workbook by URL and renders the per-column results inline,
// as text or JSON.
//
// Routes:
//
//	GET  /          → form
//	POST /probe     → downloads and profiles the workbook; renders inline
//	GET  /api/probe → machine-friendly, returns text/plain (text or JSON)
package webui

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"sheetsync/internal/probe"
	"sheetsync/internal/sheet"
)

// Config controls server startup.
type Config struct {
	Addr   string
	Logger *zap.Logger
}

// Server wraps http.Server for convenience.
type Server struct {
	cfg     Config
	mux     *http.ServeMux
	tmpl    *template.Template
	fetcher *sheet.Fetcher
	log     *zap.Logger
}

// NewServer constructs a Server with routes and the embedded template.
func NewServer(cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		cfg:     cfg,
		mux:     http.NewServeMux(),
		tmpl:    template.Must(template.New("index").Parse(indexHTML)),
		fetcher: sheet.NewFetcher(sheet.FetchConfig{}),
		log:     log,
	}
	s.routes()
	return s
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return http.ListenAndServe(s.cfg.Addr, s.mux)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/probe", s.handleProbe)
	s.mux.HandleFunc("/api/probe", s.handleAPIProbe)
}

// page carries the form state back into the template so a submit keeps
// its inputs.
type page struct {
	URL        string
	Tables     string
	Workers    int
	Mode       string
	ResultText string
}

// handleIndex renders the input form.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err := s.tmpl.Execute(w, page{Workers: 4, Mode: "text"}); err != nil {
		s.log.Warn("render index", zap.Error(err))
	}
}

// handleProbe processes the form and renders a results page.
func (s *Server) handleProbe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form: "+err.Error(), http.StatusBadRequest)
		return
	}
	p := page{
		URL:     strings.TrimSpace(r.FormValue("url")),
		Tables:  strings.TrimSpace(r.FormValue("tables")),
		Mode:    r.FormValue("mode"), // "text" or "json"
		Workers: atoiDefault(r.FormValue("workers"), 4),
	}

	out, err := s.profile(r.Context(), p.URL, p.Tables, p.Workers, p.Mode == "json")
	if err != nil {
		http.Error(w, "probe failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	p.ResultText = string(out)

	if err := s.tmpl.Execute(w, p); err != nil {
		s.log.Warn("render result", zap.Error(err))
	}
}

// handleAPIProbe returns text/plain so scripts can curl it easily.
func (s *Server) handleAPIProbe(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	url := strings.TrimSpace(q.Get("url"))
	tables := strings.TrimSpace(q.Get("tables"))
	mode := q.Get("mode") // "text" or "json"
	workers := atoiDefault(q.Get("workers"), 4)

	out, err := s.profile(r.Context(), url, tables, workers, mode == "json")
	if err != nil {
		http.Error(w, "probe failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	// Text and JSON both render fine in a browser as text/plain.
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write(out)
}

// profile downloads the workbook and profiles the requested tables.
func (s *Server) profile(ctx context.Context, url, tablesCSV string, workers int, asJSON bool) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("url is required")
	}
	wb, err := s.fetcher.FetchWorkbook(ctx, url)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	var tables []string
	for _, t := range strings.Split(tablesCSV, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tables = append(tables, t)
		}
	}

	profiles, err := probe.ProfileAll(ctx, wb, tables, workers)
	if err != nil {
		return nil, err
	}

	if asJSON {
		return json.MarshalIndent(profiles, "", "  ")
	}
	var buf bytes.Buffer
	for _, p := range profiles {
		probe.WriteText(&buf, p)
	}
	return buf.Bytes(), nil
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return def
	}
	return n
}

// indexHTML is an embedded, minimal page with vanilla styling.
//
//go:embed index.tmpl.html
var indexHTML string
