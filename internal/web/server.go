// Package web serves the receiver status and recent logs as a small JSON API.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"sort"
	"strings"
	"time"

	"gpslink/internal/gps"
)

// StatusSource is implemented by gps.Service.
type StatusSource interface {
	Snapshot() gps.Snapshot
}

// StatusResponse is the body of /api/status.
type StatusResponse struct {
	Service string       `json:"service"`
	NowUTC  string       `json:"now_utc"`
	GPS     gps.Snapshot `json:"gps"`
}

// ChannelResponse is one entry of /api/channels.
type ChannelResponse struct {
	Label   string    `json:"label"`
	Value   float64   `json:"value"`
	History []float64 `json:"history,omitempty"`
}

func writeJSON(w http.ResponseWriter, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(b)
	_, _ = w.Write([]byte("\n"))
}

func getOnly(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func Handler(src StatusSource, logs *LogBuffer) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		if !getOnly(w, r) {
			return
		}
		writeJSON(w, StatusResponse{
			Service: "gpslink",
			NowUTC:  time.Now().UTC().Format(time.RFC3339Nano),
			GPS:     src.Snapshot(),
		})
	})

	// Without ?label= every channel is listed, sorted by label.
	mux.HandleFunc("/api/channels", func(w http.ResponseWriter, r *http.Request) {
		if !getOnly(w, r) {
			return
		}
		snap := src.Snapshot()
		if label := strings.TrimSpace(r.URL.Query().Get("label")); label != "" {
			v, ok := snap.Channels[label]
			if !ok {
				http.Error(w, fmt.Sprintf("no data for channel %q", label), http.StatusNotFound)
				return
			}
			writeJSON(w, ChannelResponse{Label: label, Value: v, History: snap.History[label]})
			return
		}
		out := make([]ChannelResponse, 0, len(snap.Channels))
		for label, v := range snap.Channels {
			out = append(out, ChannelResponse{Label: label, Value: v, History: snap.History[label]})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
		writeJSON(w, out)
	})

	if logs != nil {
		mux.Handle("/api/logs", logs.Handler())
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if !getOnly(w, r) {
			return
		}
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		snap := src.Snapshot()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprintf(w, "<!doctype html><html><head><meta charset=\"utf-8\"><title>gpslink</title></head><body>")
		_, _ = fmt.Fprintf(w, "<h1>gpslink</h1><p>See <a href=\"/api/status\">/api/status</a> and <a href=\"/api/channels\">/api/channels</a>.</p>")
		_, _ = fmt.Fprintf(w, "<pre>transport=%s\nfix=%t\nlat=%.6f\nlon=%.6f\nsats=%d\nsentences=%d\nlast_error=%s</pre>",
			html.EscapeString(snap.Transport), snap.Valid, snap.LatDeg, snap.LonDeg, snap.Satellites,
			snap.Sentences, html.EscapeString(snap.LastError))
		_, _ = fmt.Fprintf(w, "</body></html>")
	})

	return mux
}

// Serve runs the API on listenAddr until ctx ends.
func Serve(ctx context.Context, listenAddr string, src StatusSource, logs *LogBuffer) error {
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           Handler(src, logs),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
