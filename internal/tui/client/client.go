package client

import (
	"fmt"

	"github.com/matheus3301/lcchat/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client wraps gRPC connections to the daemon.
type Client struct {
	conn    *grpc.ClientConn
	Session rpc.SessionServiceClient
	Chat    rpc.ChatServiceClient
	Status  rpc.StatusServiceClient
}

// New dials the daemon's Unix domain socket and returns typed service clients.
func New(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(rpc.CallOption()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return FromConn(conn), nil
}

// FromConn wraps an existing connection. The connection must use the JSON
// codec call option.
func FromConn(conn *grpc.ClientConn) *Client {
	return &Client{
		conn:    conn,
		Session: rpc.NewSessionServiceClient(conn),
		Chat:    rpc.NewChatServiceClient(conn),
		Status:  rpc.NewStatusServiceClient(conn),
	}
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
