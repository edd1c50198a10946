package rpc

import (
	"context"
	"encoding/json"
)

// PendingResult is a handle to an in-flight (or already-completed) RPC request.
type PendingResult struct {
	request *inflightRequest
}

func newPendingResult(request *inflightRequest) *PendingResult {
	return &PendingResult{request: request}
}

// GetResultBlocking waits for the request to complete and unmarshals its result into result, or returns the error
// the request (or the context of the request that started the in-flight call) completed with. A caller whose
// request was deduplicated onto an existing call waits on that call's context, not its own.
func (p *PendingResult) GetResultBlocking(result interface{}) error {
	select {
	case <-p.request.Done:
		if p.request.Error != nil {
			return p.request.Error
		}
		return json.Unmarshal(p.request.Result, result)
	case <-p.request.Context.Done():
		return p.request.Context.Err()
	}
}

// requestKey identifies a request by method + serialized arguments, so identical concurrent requests can be
// deduplicated onto a single in-flight call.
type requestKey struct {
	Method string
	Args   string
}

func makeRequestKey(method string, args ...interface{}) (requestKey, error) {
	serialized, err := json.Marshal(args)
	if err != nil {
		return requestKey{}, err
	}
	return requestKey{Method: method, Args: string(serialized)}, nil
}

type inflightRequest struct {
	// Done is closed to signal to every interested caller that the request has completed (possibly with error).
	Done    chan struct{}
	Error   error
	Result  []byte
	Context context.Context
}
