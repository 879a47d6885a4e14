package main

import (
	"log"
	"net/http"
	"strings"

	"tailscale.com/tsweb"

	"github.com/banshee-data/skygrid/internal/feed"
	"github.com/banshee-data/skygrid/internal/httputil"
	"github.com/banshee-data/skygrid/internal/pipeline"
	"github.com/banshee-data/skygrid/internal/sink"
	"github.com/banshee-data/skygrid/internal/track"
	"github.com/banshee-data/skygrid/internal/version"
)

type statusResponse struct {
	Version  string         `json:"version"`
	Pipeline pipeline.Stats `json:"pipeline"`
	Registry track.Stats    `json:"registry"`
	Tracks   int            `json:"tracks"`
	// FeedDiscarded counts malformed feed records dropped before reconcile.
	FeedDiscarded int `json:"feed_discarded"`
}

// newDebugMux serves read-only views of the running pipeline:
//
//	/chart             live grid (go-echarts)
//	/api/tracks        registry snapshot
//	/api/tracks/{id}   one track
//	/api/grid          last rendered grid
//	/api/status        counters and version
//	/debug/            tsweb debug index, plus tailsql and backup when a track log is open
func newDebugMux(p *pipeline.Pipeline, chart *sink.ChartHandler, trackDB *sink.TrackDB) http.Handler {
	mux := http.NewServeMux()

	debug := tsweb.Debugger(mux)
	if trackDB != nil {
		if err := trackDB.AttachAdminRoutes(debug); err != nil {
			log.Printf("track log admin routes disabled: %v", err)
		}
	}

	mux.Handle("/chart", chart)

	mux.HandleFunc("/api/tracks", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			httputil.MethodNotAllowed(w, http.MethodGet)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, p.Registry.Snapshot())
	})

	mux.HandleFunc("/api/tracks/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			httputil.MethodNotAllowed(w, http.MethodGet)
			return
		}
		id := strings.TrimPrefix(r.URL.Path, "/api/tracks/")
		v, ok := p.Registry.Get(id)
		if !ok {
			httputil.NotFound(w, "unknown track "+id)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, v)
	})

	mux.HandleFunc("/api/grid", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			httputil.MethodNotAllowed(w, http.MethodGet)
			return
		}
		c := p.Last()
		if c == nil {
			httputil.NotFound(w, "no grid rendered yet")
			return
		}
		httputil.WriteJSON(w, http.StatusOK, c.Grid)
	})

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			httputil.MethodNotAllowed(w, http.MethodGet)
			return
		}
		status := statusResponse{
			Version:  version.String(),
			Pipeline: p.Stats(),
			Registry: p.Registry.Stats(),
			Tracks:   p.Registry.Len(),
		}
		if dc, ok := p.Source.(feed.DiscardCounter); ok {
			status.FeedDiscarded = dc.Discarded()
		}
		httputil.WriteJSON(w, http.StatusOK, status)
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	return mux
}
