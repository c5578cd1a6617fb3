package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/brand-scorecard/internal/model"
	"github.com/sells-group/brand-scorecard/internal/registry"
	"github.com/sells-group/brand-scorecard/internal/store"
)

type kind int

const (
	kindAgent kind = iota
	kindWorkflow
)

func (s *Server) execute(k kind) func(ctx context.Context, id string, input json.RawMessage, emit registry.Emitter) (any, error) {
	if k == kindWorkflow {
		return s.reg.ExecuteWorkflow
	}
	return s.reg.ExecuteTool
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListAgents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"agents": s.reg.Tools()})
}

func (s *Server) handleListWorkflows(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"workflows": s.reg.Workflows()})
}

// handleGenerate runs a tool and returns {"output": ...} once it finishes.
func (s *Server) handleGenerate(k kind) http.HandlerFunc {
	exec := s.execute(k)
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		body, err := readBody(w, r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		out, err := exec(r.Context(), name, body, nil)
		if err != nil {
			s.fail(w, r, name, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"output": out})
	}
}

// handleStream runs a tool and writes each progress event as one NDJSON
// line, ending with a "result" or "error" line. Errors raised before the
// first line are returned as plain HTTP errors.
func (s *Server) handleStream(k kind) http.HandlerFunc {
	exec := s.execute(k)
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		body, err := readBody(w, r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		nd, err := newNDJSONWriter(w)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		out, err := exec(r.Context(), name, body, nd.Event)
		if err != nil {
			if !nd.Started() {
				s.fail(w, r, name, err)
				return
			}
			zap.L().Warn("server: stream failed", zap.String("tool", name), zap.Error(err))
			nd.Write(model.StepEvent{Step: StepError, Status: model.StepFailed, Message: err.Error(), Output: out})
			return
		}
		nd.Write(model.StepEvent{Step: StepResult, Status: model.StepComplete, Output: out})
	}
}

func (s *Server) handleListScorecards(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "scorecard storage is disabled", http.StatusNotFound)
		return
	}
	q := listQuery{
		Status: r.URL.Query().Get("status"),
		Brand:  r.URL.Query().Get("brand"),
	}
	var err error
	if q.Limit, err = intParam(r, "limit"); err == nil {
		q.Offset, err = intParam(r, "offset")
	}
	if err == nil {
		err = s.validate.Struct(q)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	list, err := s.store.ListScorecards(r.Context(), store.ScorecardFilter{
		Status: model.ScorecardStatus(q.Status),
		Brand:  q.Brand,
		Limit:  q.Limit,
		Offset: q.Offset,
	})
	if err != nil {
		s.fail(w, r, "scorecards", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scorecards": list})
}

func (s *Server) handleGetScorecard(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "scorecard storage is disabled", http.StatusNotFound)
		return
	}
	sc, err := s.store.GetScorecard(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, "scorecards", err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

type listQuery struct {
	Status string `validate:"omitempty,oneof=generating completed failed"`
	Brand  string `validate:"max=200"`
	Limit  int    `validate:"min=0,max=500"`
	Offset int    `validate:"min=0"`
}

func intParam(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, eris.Errorf("%s must be an integer", key)
	}
	return n, nil
}

func readBody(w http.ResponseWriter, r *http.Request) (json.RawMessage, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "read request body")
	}
	return body, nil
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, name string, err error) {
	status := httpStatus(err)
	if status >= http.StatusInternalServerError {
		zap.L().Error("server: request failed",
			zap.String("target", name),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	http.Error(w, errorText(err, status), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("server: write response", zap.Error(err))
	}
}
