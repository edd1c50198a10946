package rpc

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

const maxRetries = 3

// ClientPool is a JSON-RPC client that provides automatic connection pooling (round-robin over a fixed-size pool of
// dialed clients) and de-duplication of identical in-flight requests.
type ClientPool struct {
	clients    []*gethrpc.Client
	nextClient int
	clientLock sync.Mutex

	inflight     map[requestKey]*inflightRequest
	inflightLock sync.Mutex

	maxRetries int
}

// NewClientPool dials poolSize connections to endpoint and returns a pool that load-balances requests across them.
func NewClientPool(endpoint string, poolSize uint) (*ClientPool, error) {
	if poolSize == 0 {
		poolSize = 1
	}

	pool := &ClientPool{
		clients:    make([]*gethrpc.Client, poolSize),
		inflight:   make(map[requestKey]*inflightRequest),
		maxRetries: maxRetries,
	}

	for i := uint(0); i < poolSize; i++ {
		client, err := gethrpc.Dial(endpoint)
		if err != nil {
			return nil, err
		}
		pool.clients[i] = client
	}

	return pool, nil
}

// ExecuteRequestBlocking makes a blocking RPC request and stores the result in result.
func (c *ClientPool) ExecuteRequestBlocking(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	pending, err := c.ExecuteRequestAsync(ctx, method, args...)
	if err != nil {
		return err
	}
	return pending.GetResultBlocking(result)
}

// ExecuteRequestAsync makes a non-blocking RPC request. If an identical request (same method + args) is already on
// the wire, the returned PendingResult is linked to that request instead of issuing a second one.
func (c *ClientPool) ExecuteRequestAsync(ctx context.Context, method string, args ...interface{}) (*PendingResult, error) {
	key, err := makeRequestKey(method, args...)
	if err != nil {
		return nil, err
	}

	c.inflightLock.Lock()
	if existing, ok := c.inflight[key]; ok {
		c.inflightLock.Unlock()
		return newPendingResult(existing), nil
	}

	request := &inflightRequest{
		Done:    make(chan struct{}),
		Context: ctx,
	}
	c.inflight[key] = request
	c.inflightLock.Unlock()

	client := c.nextClientRoundRobin()
	go c.launchRequest(client, key, request, method, args...)
	return newPendingResult(request), nil
}

func (c *ClientPool) nextClientRoundRobin() *gethrpc.Client {
	c.clientLock.Lock()
	defer c.clientLock.Unlock()

	client := c.clients[c.nextClient]
	c.nextClient = (c.nextClient + 1) % len(c.clients)
	return client
}

func (c *ClientPool) launchRequest(client *gethrpc.Client, key requestKey, request *inflightRequest, method string, args ...interface{}) {
	defer close(request.Done)
	defer c.forgetInflight(key)

	var raw json.RawMessage
	var err error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		err = client.CallContext(request.Context, &raw, method, args...)
		if err == nil {
			request.Result = raw
			return
		}
		time.Sleep(time.Duration(attempt+1) * 100 * time.Millisecond)
	}
	request.Error = err
}

func (c *ClientPool) forgetInflight(key requestKey) {
	c.inflightLock.Lock()
	delete(c.inflight, key)
	c.inflightLock.Unlock()
}
