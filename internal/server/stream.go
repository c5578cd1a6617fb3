package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/brand-scorecard/internal/model"
)

// Terminal stream line steps.
const (
	StepResult = "result"
	StepError  = "error"
)

// ndjsonWriter writes one JSON object per line and flushes after each.
// Events may arrive from several goroutines at once.
type ndjsonWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	enc     *json.Encoder
	started bool
}

func newNDJSONWriter(w http.ResponseWriter) (*ndjsonWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, eris.New("streaming not supported")
	}
	return &ndjsonWriter{w: w, flusher: flusher, enc: json.NewEncoder(w)}, nil
}

// Event is a registry.Emitter.
func (n *ndjsonWriter) Event(ev model.StepEvent) { n.Write(ev) }

// Write sends ev, committing the 200 status on the first line.
func (n *ndjsonWriter) Write(ev model.StepEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.started {
		h := n.w.Header()
		h.Set("Content-Type", "application/x-ndjson")
		h.Set("Cache-Control", "no-cache")
		h.Set("X-Content-Type-Options", "nosniff")
		n.w.WriteHeader(http.StatusOK)
		n.started = true
	}
	if err := n.enc.Encode(ev); err != nil {
		zap.L().Debug("server: write stream line", zap.String("step", ev.Step), zap.Error(err))
		return
	}
	n.flusher.Flush()
}

// Started reports whether any line has been written.
func (n *ndjsonWriter) Started() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.started
}
