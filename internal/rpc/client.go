package rpc

import (
	"context"
	"errors"
	"fmt"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/strandline/quality-controller/internal/controller"
	"github.com/strandline/quality-controller/internal/quality"
)

// #region client-struct
// Client is a typed wrapper over QualityServiceClient.
type Client struct {
	conn   *grpc.ClientConn
	client QualityServiceClient
}

// #endregion client-struct

// #region constructor
// NewClient connects to a QualityService at addr. Extra options follow the
// default insecure transport credentials.
func NewClient(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{
		conn:   conn,
		client: NewQualityServiceClient(conn),
	}, nil
}

// NewClientWithService wraps an injected service client.
func NewClientWithService(svc QualityServiceClient) *Client {
	return &Client{client: svc}
}

// Close shuts down the connection, if the client owns one.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion constructor

// #region calls
// Level returns the active tier.
func (c *Client) Level(ctx context.Context) (quality.Level, error) {
	resp, err := c.client.GetLevel(ctx, &emptypb.Empty{})
	if err != nil {
		return "", fmt.Errorf("get level: %w", err)
	}
	return quality.Parse(resp.GetValue())
}

// Settings returns the bundle for the active tier.
func (c *Client) Settings(ctx context.Context) (quality.Settings, error) {
	resp, err := c.client.GetSettings(ctx, &emptypb.Empty{})
	if err != nil {
		return quality.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	return decodeSettings(resp)
}

// SetLevel overrides the tier and returns the resulting bundle.
func (c *Client) SetLevel(ctx context.Context, level quality.Level) (quality.Settings, error) {
	resp, err := c.client.SetLevel(ctx, wrapperspb.String(string(level)))
	if err != nil {
		return quality.Settings{}, fmt.Errorf("set level: %w", err)
	}
	return decodeSettings(resp)
}

// Metrics returns the latest sample with the derived values.
func (c *Client) Metrics(ctx context.Context) (MetricsReport, error) {
	resp, err := c.client.GetMetrics(ctx, &emptypb.Empty{})
	if err != nil {
		return MetricsReport{}, fmt.Errorf("get metrics: %w", err)
	}
	var report MetricsReport
	if err := fromStruct(resp, &report); err != nil {
		return MetricsReport{}, fmt.Errorf("get metrics: %w", err)
	}
	return report, nil
}

// ReportVisibility forwards a page visibility change and returns the tier after it.
func (c *Client) ReportVisibility(ctx context.Context, hidden bool) (quality.Level, error) {
	resp, err := c.client.ReportVisibility(ctx, wrapperspb.Bool(hidden))
	if err != nil {
		return "", fmt.Errorf("report visibility: %w", err)
	}
	return quality.Parse(resp.GetValue())
}

// Watch calls fn for every transition until ctx ends or the stream fails.
// It returns nil when the server closes the stream.
func (c *Client) Watch(ctx context.Context, fn func(controller.Transition)) error {
	stream, err := c.client.WatchTransitions(ctx, &emptypb.Empty{})
	if err != nil {
		return fmt.Errorf("watch transitions: %w", err)
	}
	for {
		st := new(structpb.Struct)
		if err := stream.RecvMsg(st); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("watch transitions: %w", err)
		}
		var t controller.Transition
		if err := fromStruct(st, &t); err != nil {
			return fmt.Errorf("watch transitions: %w", err)
		}
		fn(t)
	}
}

// #endregion calls

func decodeSettings(st *structpb.Struct) (quality.Settings, error) {
	var s quality.Settings
	if err := fromStruct(st, &s); err != nil {
		return quality.Settings{}, err
	}
	return s, nil
}
