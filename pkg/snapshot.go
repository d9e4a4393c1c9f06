package dfsblockcache

// snapshot.go exposes a table's Stats() as an HTTP/JSON endpoint, the
// companion to Prometheus scraping for ad-hoc inspection and for the
// blockcache-inspect CLI.
//
// © 2025 dfsblockcache authors. MIT License.

import (
	"encoding/json"
	"net/http"
)

// StatsProvider is implemented by both ClockBlockCacheTable and
// PackExtPartitionedTable.
type StatsProvider interface {
	Stats() Snapshot
}

// SnapshotHandler returns an http.HandlerFunc serving p.Stats() as JSON at
// whatever path the caller mounts it under, conventionally
// "/debug/blockcache/snapshot".
func SnapshotHandler(p StatsProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(p.Stats()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}
