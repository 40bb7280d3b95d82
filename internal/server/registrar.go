package server

import "google.golang.org/grpc"

// Registrar attaches one service implementation to the gRPC server.
// Each service package ships its own.
type Registrar interface {
	Register(s *grpc.Server)
}
