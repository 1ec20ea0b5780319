package rpc

import (
	"context"
	"fmt"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"specforge/internal/enhancement"
	"specforge/internal/pipeline"
)

// Client calls a remote EnhancementService.
type Client struct {
	enhance *connect.Client[structpb.Struct, structpb.Struct]
	options *connect.Client[structpb.Struct, structpb.Struct]
}

func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	return &Client{
		enhance: connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+EnhanceSpecProcedure, opts...),
		options: connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+ListEnhancementOptionsProcedure, opts...),
	}
}

func (c *Client) EnhanceSpec(ctx context.Context, req pipeline.Request) (enhancement.Result, error) {
	msg, err := fromRequest(req)
	if err != nil {
		return enhancement.Result{}, fmt.Errorf("failed to encode request: %w", err)
	}
	resp, err := c.enhance.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return enhancement.Result{}, err
	}
	return toResult(resp.Msg)
}

func (c *Client) ListEnhancementOptions(ctx context.Context) ([]enhancement.Descriptor, error) {
	resp, err := c.options.CallUnary(ctx, connect.NewRequest(&structpb.Struct{}))
	if err != nil {
		return nil, err
	}
	return toDescriptors(resp.Msg), nil
}
