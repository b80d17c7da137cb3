package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Start requests the daemon to start processing.
func (c *Client) Start() (*StartResponse, error) {
	var resp StartResponse
	if err := c.client.Call("Groovy.Start", StartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to stop processing.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Groovy.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Groovy.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ItemList returns live items, optionally filtered by status or workflow.
func (c *Client) ItemList(req ItemListRequest) (*ItemListResponse, error) {
	var resp ItemListResponse
	if err := c.client.Call("Groovy.ItemList", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ItemDescribe returns details for a single live item.
func (c *Client) ItemDescribe(itemID string) (*ItemDescribeResponse, error) {
	var resp ItemDescribeResponse
	if err := c.client.Call("Groovy.ItemDescribe", ItemDescribeRequest{ItemID: itemID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ItemHistory returns an item's ledger, live or archived.
func (c *Client) ItemHistory(itemID string) (*ItemHistoryResponse, error) {
	var resp ItemHistoryResponse
	if err := c.client.Call("Groovy.ItemHistory", ItemHistoryRequest{ItemID: itemID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ItemAdd registers a new item on a workflow.
func (c *Client) ItemAdd(req ItemAddRequest) (*ItemAddResponse, error) {
	var resp ItemAddResponse
	if err := c.client.Call("Groovy.ItemAdd", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CompletedList returns the newest archived items.
func (c *Client) CompletedList(limit int) (*CompletedListResponse, error) {
	var resp CompletedListResponse
	if err := c.client.Call("Groovy.CompletedList", CompletedListRequest{Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ScanStats aggregates scan outcomes over a trailing window.
func (c *Client) ScanStats(windowSeconds int) (*ScanStatsResponse, error) {
	var resp ScanStatsResponse
	if err := c.client.Call("Groovy.ScanStats", ScanStatsRequest{WindowSeconds: windowSeconds}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// WorkflowList returns stored workflow summaries.
func (c *Client) WorkflowList() (*WorkflowListResponse, error) {
	var resp WorkflowListResponse
	if err := c.client.Call("Groovy.WorkflowList", WorkflowListRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// WorkflowDefine stores a workflow definition given as TOML text.
func (c *Client) WorkflowDefine(tomlText string) (*WorkflowDefineResponse, error) {
	var resp WorkflowDefineResponse
	if err := c.client.Call("Groovy.WorkflowDefine", WorkflowDefineRequest{TOML: tomlText}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
