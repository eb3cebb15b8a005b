package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JakeFAU/statusinfo/pkg/statusinfo"
)

// SnapshotResponse is the wire form of a registry snapshot.
type SnapshotResponse struct {
	Listeners  int              `json:"listeners" yaml:"listeners"`
	Operations int              `json:"operations" yaml:"operations"`
	Threads    []ThreadResponse `json:"threads" yaml:"threads"`
}

// ThreadResponse lists one thread's operations, innermost first.
type ThreadResponse struct {
	ID         uint64              `json:"id" yaml:"id"`
	Name       string              `json:"name" yaml:"name"`
	Operations []OperationResponse `json:"operations" yaml:"operations"`
}

// OperationResponse is one open operation.
type OperationResponse struct {
	ID                 string `json:"id" yaml:"id"`
	ParentID           string `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	Name               string `json:"name" yaml:"name"`
	CurrentSteps       int    `json:"current_steps" yaml:"current_steps"`
	MaxSteps           *int   `json:"max_steps,omitempty" yaml:"max_steps,omitempty"`
	DedicatedListeners int    `json:"dedicated_listeners" yaml:"dedicated_listeners"`
}

// NewSnapshotResponse converts a snapshot for JSON encoding. Unbounded
// operations omit max_steps.
func NewSnapshotResponse(snap statusinfo.Snapshot) SnapshotResponse {
	out := SnapshotResponse{
		Listeners:  snap.Listeners,
		Operations: snap.OperationCount(),
		Threads:    make([]ThreadResponse, 0, len(snap.Threads)),
	}
	for _, ts := range snap.Threads {
		out.Threads = append(out.Threads, newThreadResponse(ts))
	}
	return out
}

func newThreadResponse(ts statusinfo.ThreadSnapshot) ThreadResponse {
	tr := ThreadResponse{
		ID:         ts.Thread.ID,
		Name:       ts.Thread.Name,
		Operations: make([]OperationResponse, 0, len(ts.Operations)),
	}
	for _, os := range ts.Operations {
		op := OperationResponse{
			ID:                 os.Operation.ID,
			ParentID:           os.Operation.ParentID,
			Name:               os.Operation.Name,
			CurrentSteps:       os.Operation.CurrentSteps,
			DedicatedListeners: os.DedicatedListeners,
		}
		if os.Operation.Bounded() {
			maxSteps := os.Operation.MaxSteps
			op.MaxSteps = &maxSteps
		}
		tr.Operations = append(tr.Operations, op)
	}
	return tr
}

// getSnapshot handles GET /v1/snapshot.
func (s *Server) getSnapshot(w http.ResponseWriter, _ *http.Request) {
	if s.source == nil {
		s.writeError(w, http.StatusServiceUnavailable, "registry unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, NewSnapshotResponse(s.source.Snapshot()))
}

// getThread handles GET /v1/threads/{thread_id}. It returns 400 for a
// non-numeric id and 404 when the thread has nothing open.
func (s *Server) getThread(w http.ResponseWriter, r *http.Request) {
	if s.source == nil {
		s.writeError(w, http.StatusServiceUnavailable, "registry unavailable")
		return
	}
	raw := chi.URLParam(r, "thread_id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "thread_id must be a positive integer")
		return
	}
	ts, ok := s.source.Snapshot().ThreadByID(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "thread has no open operations")
		return
	}
	s.writeJSON(w, http.StatusOK, newThreadResponse(ts))
}
