package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/oggyb/discovery/internal/config"
)

// NewGRPCServer builds a server with the interceptor chain and registers all services.
//
// Chain order: prometheus, recover, logging, timeout.
func NewGRPCServer(cfg *config.Config, log *slog.Logger, registrars ...Registrar) *grpc.Server {
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			grpc_prometheus.UnaryServerInterceptor,
			Recover(log),
			Logging(log),
			WithTimeout(cfg.GRPC.RequestTimeout),
		),
	)

	// register all services
	for _, r := range registrars {
		r.Register(grpcServer)
	}

	grpc_prometheus.Register(grpcServer)

	// enable reflection for easier debugging with grpcurl
	reflection.Register(grpcServer)

	return grpcServer
}

// StartGRPCServer serves on cfg.GRPC.Addr() until ctx is done, then stops gracefully.
func StartGRPCServer(ctx context.Context, cfg *config.Config, log *slog.Logger, registrars ...Registrar) error {
	addr := cfg.GRPC.Addr()
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	log.Info("starting gRPC server", "addr", addr)
	return Serve(ctx, lis, NewGRPCServer(cfg, log, registrars...))
}

// Serve runs s on lis until ctx is done.
func Serve(ctx context.Context, lis net.Listener, s *grpc.Server) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(lis) }()

	select {
	case <-ctx.Done():
		s.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}
