// Package ledger is the query layer over the chain's JSON-RPC API. It only
// reads objects, events and transactions and relays already-signed
// transactions; it never builds or signs anything itself.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/block-vision/sui-go-sdk/common/httpconn"
	"github.com/rs/zerolog/log"
)

// Client is the set of ledger calls the chat linkage workflow depends on.
type Client interface {
	QueryEvents(ctx context.Context, q EventQuery) (*EventPage, error)
	GetObject(ctx context.Context, id string) (*Object, error)
	GetDynamicFieldObject(ctx context.Context, parentID string, name DynamicFieldName) (*Object, error)
	QueryTransactionBlocks(ctx context.Context, filter TransactionFilter, limit int) (*TransactionPage, error)
	GetTransactionBlock(ctx context.Context, digest string) (*TransactionBlock, error)
	DevInspect(ctx context.Context, sender, txBytes string) (*DevInspectResult, error)
	Execute(ctx context.Context, txBytes string, signatures []string) (*TransactionBlock, error)
}

// RPCClient talks JSON-RPC 2.0 to a fullnode through the SDK's HTTP
// connection. Envelopes are decoded here so node error codes survive.
type RPCClient struct {
	conn    *httpconn.HttpConn
	timeout time.Duration
}

func NewRPCClient(endpoint string, timeout time.Duration) *RPCClient {
	return &RPCClient{
		conn:    httpconn.NewHttpConn(endpoint, nil),
		timeout: timeout,
	}
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

var txBlockOptions = map[string]bool{
	"showEffects":       true,
	"showObjectChanges": true,
	"showEvents":        true,
}

func (c *RPCClient) call(ctx context.Context, method string, out any, params ...any) error {
	if params == nil {
		params = []any{}
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	started := time.Now()
	raw, err := c.conn.Request(ctx, httpconn.Operation{Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("%s: %w: %v", method, ErrTransport, err)
	}
	log.Debug().Str("method", method).Int("bytes", len(raw)).
		Dur("took", time.Since(started)).Msg("ledger rpc")

	// A gateway answering in place of the node returns no envelope at all.
	var envelope rpcResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("%s: %w: decode envelope: %v", method, ErrTransport, err)
	}
	if envelope.Error != nil {
		envelope.Error.Method = method
		return envelope.Error
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("%s: decode result: %w", method, err)
	}
	return nil
}

func (c *RPCClient) QueryEvents(ctx context.Context, q EventQuery) (*EventPage, error) {
	var page EventPage
	filter := map[string]string{"MoveEventType": q.MoveEventType}
	var cursor any
	if q.Cursor != nil {
		cursor = q.Cursor
	}
	if err := c.call(ctx, "suix_queryEvents", &page, filter, cursor, q.Limit, q.Descending); err != nil {
		return nil, err
	}
	return &page, nil
}

type objectResponse struct {
	Data  *Object `json:"data"`
	Error *struct {
		Code     string `json:"code"`
		ObjectID string `json:"object_id"`
	} `json:"error"`
}

func (r objectResponse) unwrap(id string) (*Object, error) {
	if r.Error != nil || r.Data == nil {
		return nil, fmt.Errorf("object %s: %w", id, ErrObjectNotFound)
	}
	return r.Data, nil
}

func (c *RPCClient) GetObject(ctx context.Context, id string) (*Object, error) {
	var resp objectResponse
	opts := map[string]bool{"showType": true, "showContent": true, "showOwner": true}
	if err := c.call(ctx, "sui_getObject", &resp, id, opts); err != nil {
		return nil, err
	}
	return resp.unwrap(id)
}

func (c *RPCClient) GetDynamicFieldObject(ctx context.Context, parentID string, name DynamicFieldName) (*Object, error) {
	var resp objectResponse
	if err := c.call(ctx, "suix_getDynamicFieldObject", &resp, parentID, name); err != nil {
		return nil, err
	}
	return resp.unwrap(fmt.Sprintf("%s[%v]", parentID, name.Value))
}

func (c *RPCClient) QueryTransactionBlocks(ctx context.Context, filter TransactionFilter, limit int) (*TransactionPage, error) {
	var page TransactionPage
	query := map[string]any{"filter": filter, "options": txBlockOptions}
	if err := c.call(ctx, "suix_queryTransactionBlocks", &page, query, nil, limit, true); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *RPCClient) GetTransactionBlock(ctx context.Context, digest string) (*TransactionBlock, error) {
	var block TransactionBlock
	if err := c.call(ctx, "sui_getTransactionBlock", &block, digest, txBlockOptions); err != nil {
		return nil, err
	}
	return &block, nil
}

func (c *RPCClient) DevInspect(ctx context.Context, sender, txBytes string) (*DevInspectResult, error) {
	var result DevInspectResult
	if err := c.call(ctx, "sui_devInspectTransactionBlock", &result, sender, txBytes); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *RPCClient) Execute(ctx context.Context, txBytes string, signatures []string) (*TransactionBlock, error) {
	var block TransactionBlock
	err := c.call(ctx, "sui_executeTransactionBlock", &block,
		txBytes, signatures, txBlockOptions, "WaitForLocalExecution")
	if err != nil {
		return nil, err
	}
	return &block, nil
}
