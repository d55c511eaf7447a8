package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dusk-indust/mend/internal/schedule"
)

// Compile-time interface check.
var _ Dispatcher = (*Remote)(nil)

// Remote dispatches batches to a worker process over HTTP/JSON-RPC.
type Remote struct {
	endpoint  string
	id        string
	http      *http.Client
	requestID atomic.Int64
}

// RemoteOption configures a Remote dispatcher.
type RemoteOption func(*Remote)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) RemoteOption {
	return func(r *Remote) { r.http.Timeout = d }
}

// WithHTTPClient replaces the underlying *http.Client entirely.
func WithHTTPClient(hc *http.Client) RemoteOption {
	return func(r *Remote) { r.http = hc }
}

// NewRemote creates a dispatcher for the worker at endpoint.
func NewRemote(id, endpoint string, opts ...RemoteOption) *Remote {
	r := &Remote{
		endpoint: endpoint,
		id:       id,
		http: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ID returns the worker identifier.
func (r *Remote) ID() string { return r.id }

// Dispatch sends the batch via the batch/dispatch JSON-RPC method.
func (r *Remote) Dispatch(ctx context.Context, batch schedule.Batch) (*Result, error) {
	var res Result
	if err := r.call(ctx, MethodDispatchBatch, batch, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ReviewConflict sends a review round via the conflict/review method.
func (r *Remote) ReviewConflict(ctx context.Context, q ConflictQuery) (*ConflictReply, error) {
	var reply ConflictReply
	if err := r.call(ctx, MethodReviewConflict, q, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// GetResult fetches a previously computed batch result via results/get.
func (r *Remote) GetResult(ctx context.Context, batchID string) (*Result, error) {
	var res Result
	params := struct {
		BatchID string `json:"batchId"`
	}{BatchID: batchID}
	if err := r.call(ctx, MethodGetResult, params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// DiscoverWorker fetches the worker card from the well-known URI. Used by
// the orchestrator to probe a candidate endpoint before dispatching to it.
func DiscoverWorker(ctx context.Context, hc *http.Client, baseURL string) (*Card, error) {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	url := strings.TrimRight(baseURL, "/") + "/.well-known/worker-card.json"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("worker: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("worker: discover: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("worker: discover: HTTP %d: %s", resp.StatusCode, string(body))
	}

	var card Card
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return nil, fmt.Errorf("worker: decode worker card: %w", err)
	}
	return &card, nil
}

func (r *Remote) nextID() int64 {
	return r.requestID.Add(1)
}

// call performs a JSON-RPC 2.0 call over HTTP POST.
func (r *Remote) call(ctx context.Context, method string, params any, result any) error {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("worker: marshal params: %w", err)
	}

	rpcReq := JSONRPCRequest{
		JSONRPC: JSONRPCVersion,
		ID:      r.nextID(),
		Method:  method,
		Params:  paramsJSON,
	}

	body, err := json.Marshal(rpcReq)
	if err != nil {
		return fmt.Errorf("worker: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("worker: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := r.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("worker: %s: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("worker: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("worker: %s: HTTP %d: %s", method, resp.StatusCode, string(respBody))
	}

	var rpcResp JSONRPCResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return fmt.Errorf("worker: decode response: %w", err)
	}

	if rpcResp.Error != nil {
		return &RPCError{
			Method:  method,
			Code:    rpcResp.Error.Code,
			Message: rpcResp.Error.Message,
			Data:    rpcResp.Error.Data,
		}
	}

	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("worker: decode result: %w", err)
		}
	}

	return nil
}

// RPCError represents a JSON-RPC error returned by a remote worker.
type RPCError struct {
	Method  string
	Code    int
	Message string
	Data    json.RawMessage
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	if len(e.Data) > 0 {
		return fmt.Sprintf("worker: %s: rpc error %d: %s (data: %s)", e.Method, e.Code, e.Message, string(e.Data))
	}
	return fmt.Sprintf("worker: %s: rpc error %d: %s", e.Method, e.Code, e.Message)
}
