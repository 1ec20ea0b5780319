package app

import (
	"context"
	"errors"
	"fmt"

	"specforge/internal/gateway/config"
	"specforge/internal/gateway/handler"
	"specforge/internal/gateway/handler/rpc"
	"specforge/internal/gateway/server"
	"specforge/internal/telemetry"
)

type App struct {
	server     *server.Server
	components *Components
	shutdownTP func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return NewWithConfig(ctx, cfg)
}

func NewWithConfig(ctx context.Context, cfg *config.Config) (*App, error) {
	shutdownTP, err := telemetry.Init(ctx, cfg.TracesStdout)
	if err != nil {
		return nil, fmt.Errorf("failed to init telemetry: %w", err)
	}

	// Dependencies
	components, err := Build(ctx, cfg)
	if err != nil {
		_ = shutdownTP(ctx)
		return nil, err
	}

	enhanceHandler := handler.NewEnhanceHandler(components.Enhancer, components.Memory, components.Logger)
	streamHandler := handler.NewStreamHandler(components.Enhancer, components.Logger)
	enhancementRPC := rpc.NewEnhancementHandler(components.Enhancer)

	// Routing & Server
	mux := server.NewMux(enhanceHandler, streamHandler, enhancementRPC)
	srv := server.New(cfg.Port, mux)

	return &App{
		server:     srv,
		components: components,
		shutdownTP: shutdownTP,
	}, nil
}

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	a.components.Close()
	return errors.Join(err, a.shutdownTP(ctx))
}
