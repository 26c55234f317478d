package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region types
// Prediction is the decoded Predict response.
type Prediction struct {
	Label  int
	Status string
}

// #endregion types

// #region client-struct
// Client calls churn.v1.PredictionService.
type Client struct {
	conn *grpc.ClientConn
	cc   grpc.ClientConnInterface
}

// #endregion client-struct

// #region constructor
// NewClient connects to a prediction server without TLS.
func NewClient(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn, cc: conn}, nil
}

// NewClientWithConn wraps an existing connection. Close is then a no-op.
func NewClientWithConn(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// #endregion constructor

// #region close
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region predict
// Predict sends one record, given as feature name to value.
func (c *Client) Predict(ctx context.Context, record map[string]any) (Prediction, error) {
	in, err := structpb.NewStruct(record)
	if err != nil {
		return Prediction{}, fmt.Errorf("encode record: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, PredictMethod, in, out); err != nil {
		return Prediction{}, fmt.Errorf("predict rpc: %w", err)
	}

	fields := out.GetFields()
	return Prediction{
		Label:  int(fields["label"].GetNumberValue()),
		Status: fields["status"].GetStringValue(),
	}, nil
}

// #endregion predict
