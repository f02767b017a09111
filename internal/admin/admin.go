// Package admin exposes a small read-only HTTP surface for observing a
// running engine: live key count, segment count, and the current
// uncompacted-bytes counter. It is strictly observability, not a second
// data-plane protocol -- every Get/Set/Remove still goes through the C6
// dispatcher in internal/server.
package admin

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// Stats is the subset of engine bookkeeping this surface reports. A
// concrete *kv.Engine satisfies it via the accessor methods defined
// alongside the engine.
type Stats interface {
	Stats() (liveKeys int, segments int, uncompactedBytes uint64)
}

type statsResponse struct {
	LiveKeys         int    `json:"live_keys"`
	Segments         int    `json:"segments"`
	UncompactedBytes uint64 `json:"uncompacted_bytes"`
}

// NewHTTPServer builds the admin server the same way the teacher's
// internal/server/http.go wires a gorilla/mux router: one router, one
// route, JSON out via the standard encoding/json Encoder.
func NewHTTPServer(addr string, stats Stats) *http.Server {
	router := mux.NewRouter()
	router.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		liveKeys, segments, uncompacted := stats.Stats()
		resp := statsResponse{LiveKeys: liveKeys, Segments: segments, UncompactedBytes: uncompacted}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}).Methods("GET")

	return &http.Server{
		Addr:    addr,
		Handler: router,
	}
}
