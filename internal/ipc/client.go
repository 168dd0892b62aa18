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

func (c *Client) call(method string, req, resp any) error {
	return c.client.Call(ServiceName+"."+method, req, resp)
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.call("Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Submit queues a new delivery.
func (c *Client) Submit(req SubmitRequest) (*Delivery, error) {
	var resp DeliveryResponse
	if err := c.call("Submit", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Delivery, nil
}

// List returns deliveries optionally filtered by statuses.
func (c *Client) List(statuses []string) ([]Delivery, error) {
	var resp ListResponse
	if err := c.call("List", ListRequest{Statuses: statuses}, &resp); err != nil {
		return nil, err
	}
	return resp.Deliveries, nil
}

// Show returns one delivery with its remote jobs.
func (c *Client) Show(id int64) (*Delivery, error) {
	var resp DeliveryResponse
	if err := c.call("Show", IDRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp.Delivery, nil
}

// Mint confirms the mint of a delivery.
func (c *Client) Mint(id int64) (string, error) {
	var resp MintResponse
	if err := c.call("Mint", IDRequest{ID: id}, &resp); err != nil {
		return "", err
	}
	return resp.MintKey, nil
}

// Retry resumes a failed delivery.
func (c *Client) Retry(id int64) (*Delivery, error) {
	var resp DeliveryResponse
	if err := c.call("Retry", IDRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp.Delivery, nil
}

// Remove deletes an idle delivery.
func (c *Client) Remove(id int64) error {
	var resp RemoveResponse
	return c.call("Remove", IDRequest{ID: id}, &resp)
}

// RecordShare stores the Lens post transaction of a delivered delivery.
func (c *Client) RecordShare(req ShareRequest) (*Delivery, error) {
	var resp DeliveryResponse
	if err := c.call("RecordShare", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Delivery, nil
}

// Events returns hub events after since, optionally for one delivery.
func (c *Client) Events(since, deliveryID int64) (*EventsResponse, error) {
	var resp EventsResponse
	if err := c.call("Events", EventsRequest{Since: since, DeliveryID: deliveryID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health returns queue and database diagnostics.
func (c *Client) Health() (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.call("Health", HealthRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.call("TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
