package rpc

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"specforge/internal/enhancement"
	"specforge/internal/gateway/middleware"
	"specforge/internal/pipeline"
)

const (
	EnhancementServiceName = "specforge.v1.EnhancementService"

	EnhanceSpecProcedure            = "/" + EnhancementServiceName + "/EnhanceSpec"
	ListEnhancementOptionsProcedure = "/" + EnhancementServiceName + "/ListEnhancementOptions"
)

// EnhancementHandler exposes the enhancer over Connect. Messages are
// google.protobuf.Struct so the service needs no generated code.
type EnhancementHandler struct {
	enhancer *pipeline.Enhancer
}

func NewEnhancementHandler(enhancer *pipeline.Enhancer) *EnhancementHandler {
	return &EnhancementHandler{enhancer: enhancer}
}

// NewEnhancementServiceHandler returns the path prefix and handler to mount
// on a mux.
func NewEnhancementServiceHandler(h *EnhancementHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(EnhanceSpecProcedure, connect.NewUnaryHandler(EnhanceSpecProcedure, h.EnhanceSpec, opts...))
	mux.Handle(ListEnhancementOptionsProcedure, connect.NewUnaryHandler(ListEnhancementOptionsProcedure, h.ListEnhancementOptions, opts...))
	return "/" + EnhancementServiceName + "/", mux
}

// EnhanceSpec never fails for bad input: like the REST route it answers
// with the fallback result.
func (h *EnhancementHandler) EnhanceSpec(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	in := toRequest(req.Msg)
	in.RequestID = middleware.RequestIDFrom(ctx)

	res := h.enhancer.Enhance(ctx, in)
	out, err := fromResult(res)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(out), nil
}

func (h *EnhancementHandler) ListEnhancementOptions(_ context.Context, _ *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	out, err := fromDescriptors(enhancement.Descriptors())
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(out), nil
}
