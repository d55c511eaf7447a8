package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dusk-indust/mend/internal/schedule"
)

// Server exposes a Dispatcher over HTTP/JSON-RPC so the orchestrator can
// drive it as a remote worker. Completed results are kept in a ResultStore
// for later results/get queries.
type Server struct {
	card    Card
	worker  Dispatcher
	results *ResultStore
	http    *http.Server
}

// NewServer wraps a worker implementation for serving.
func NewServer(card Card, w Dispatcher) *Server {
	return &Server{
		card:    card,
		worker:  w,
		results: NewResultStore(),
	}
}

// Start registers routes and begins serving in a background goroutine.
func (s *Server) Start(ctx context.Context, addr string) error {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /.well-known/worker-card.json", s.handleWorkerCard)
	mux.HandleFunc("POST /", s.handleJSONRPC)

	s.http = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go s.http.ListenAndServe()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/worker-card.json", s.handleWorkerCard)
	mux.HandleFunc("POST /", s.handleJSONRPC)
	return mux
}

func (s *Server) handleWorkerCard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(s.card); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req JSONRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONRPCError(w, nil, ErrCodeParse, "Parse error: "+err.Error())
		return
	}

	ctx := r.Context()

	switch req.Method {
	case MethodDispatchBatch:
		s.dispatchBatch(ctx, w, &req)
	case MethodReviewConflict:
		s.dispatchReview(ctx, w, &req)
	case MethodGetResult:
		s.dispatchGetResult(ctx, w, &req)
	default:
		writeJSONRPCError(w, req.ID, ErrCodeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method))
	}
}

func (s *Server) dispatchBatch(ctx context.Context, w http.ResponseWriter, req *JSONRPCRequest) {
	var batch schedule.Batch
	if err := json.Unmarshal(req.Params, &batch); err != nil {
		writeJSONRPCError(w, req.ID, ErrCodeInvalidParams, "Invalid params: "+err.Error())
		return
	}

	if s.card.MaxBatch > 0 && len(batch.Issues) > s.card.MaxBatch {
		writeJSONRPCError(w, req.ID, ErrCodeBatchTooLarge,
			fmt.Sprintf("batch %s has %d issues, limit is %d", batch.ID, len(batch.Issues), s.card.MaxBatch))
		return
	}

	result, err := s.worker.Dispatch(ctx, batch)
	if err != nil {
		writeJSONRPCError(w, req.ID, ErrCodeInternal, err.Error())
		return
	}

	s.results.Put(result)
	writeJSONRPCResult(w, req.ID, result)
}

func (s *Server) dispatchReview(ctx context.Context, w http.ResponseWriter, req *JSONRPCRequest) {
	var q ConflictQuery
	if err := json.Unmarshal(req.Params, &q); err != nil {
		writeJSONRPCError(w, req.ID, ErrCodeInvalidParams, "Invalid params: "+err.Error())
		return
	}

	reply, err := s.worker.ReviewConflict(ctx, q)
	if err != nil {
		writeJSONRPCError(w, req.ID, ErrCodeInternal, err.Error())
		return
	}

	writeJSONRPCResult(w, req.ID, reply)
}

func (s *Server) dispatchGetResult(ctx context.Context, w http.ResponseWriter, req *JSONRPCRequest) {
	var params struct {
		BatchID string `json:"batchId"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeJSONRPCError(w, req.ID, ErrCodeInvalidParams, "Invalid params: "+err.Error())
		return
	}

	result, ok := s.results.Get(params.BatchID)
	if !ok {
		writeJSONRPCError(w, req.ID, ErrCodeBatchNotFound, fmt.Sprintf("no result for batch %s", params.BatchID))
		return
	}

	writeJSONRPCResult(w, req.ID, result)
}

// writeJSONRPCResult writes a successful JSON-RPC response.
func writeJSONRPCResult(w http.ResponseWriter, id any, result any) {
	data, err := json.Marshal(result)
	if err != nil {
		writeJSONRPCError(w, id, ErrCodeInternal, "Failed to marshal result: "+err.Error())
		return
	}

	resp := JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Result:  data,
	}

	json.NewEncoder(w).Encode(resp)
}

// writeJSONRPCError writes a JSON-RPC error response.
func writeJSONRPCError(w http.ResponseWriter, id any, code int, message string) {
	resp := JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
		},
	}

	json.NewEncoder(w).Encode(resp)
}
