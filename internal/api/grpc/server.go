package grpcapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"measurement-simulator/internal/infra"
	"measurement-simulator/internal/shared/constants"
)

const defaultShutdownTimeout = 10 * time.Second

// Options describes how the gRPC server is started.
type Options struct {
	// Address to listen on, for example ":50051". Ignored when Listener is set.
	Address string
	// Listener overrides Address, used with bufconn in tests.
	Listener net.Listener
	// ShutdownTimeout bounds the graceful stop of active streams.
	ShutdownTimeout time.Duration
}

// Server owns the gRPC server and its lifecycle.
type Server struct {
	logger          Logger
	grpcServer      *grpc.Server
	listener        net.Listener
	shutdownTimeout time.Duration
	stopStreams     context.CancelFunc
}

// NewServer creates a gRPC server with logging and metrics interceptors.
func NewServer(logger Logger, service MeasurementServiceServer, opts Options) (*Server, error) {
	if service == nil {
		return nil, errors.New("measurement service is required")
	}

	listener := opts.Listener
	if listener == nil {
		if opts.Address == "" {
			return nil, errors.New("address is required")
		}
		var err error
		listener, err = net.Listen("tcp", opts.Address)
		if err != nil {
			return nil, fmt.Errorf("listen %s: %w", opts.Address, err)
		}
	}

	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}

	base, stopStreams := context.WithCancel(context.Background())
	server := grpc.NewServer(
		grpc.ChainStreamInterceptor(
			loggingStreamInterceptor(logger),
			drainStreamInterceptor(base),
			infra.GRPCStreamInterceptor(),
		),
	)
	RegisterMeasurementServiceServer(server, service)

	return &Server{
		logger:          logger,
		grpcServer:      server,
		listener:        listener,
		shutdownTimeout: shutdownTimeout,
		stopStreams:     stopStreams,
	}, nil
}

// Addr reports the address the server listens on.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Serve runs the server until ctx is done, then stops it gracefully.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is not initialized")
	}
	defer s.listener.Close()

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.grpcServer.Serve(s.listener)
	}()

	s.printf(ctx, "gRPC server listening on %s", s.Addr())

	select {
	case <-ctx.Done():
		s.printf(context.Background(), "gRPC server shutdown initiated")
		shutdownErr := s.shutdown()
		serveErr := <-errCh
		if errors.Is(serveErr, grpc.ErrServerStopped) {
			serveErr = nil
		}
		if serveErr != nil && shutdownErr == nil {
			shutdownErr = serveErr
		}
		return shutdownErr
	case err := <-errCh:
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}

func (s *Server) shutdown() error {
	// measurement streams never finish on their own
	s.stopStreams()

	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()

	timer := time.NewTimer(s.shutdownTimeout)
	defer timer.Stop()

	select {
	case <-done:
		s.printf(context.Background(), "gRPC server stopped gracefully")
		return nil
	case <-timer.C:
		s.grpcServer.Stop()
		return fmt.Errorf("graceful shutdown exceeded %s", s.shutdownTimeout)
	}
}

func (s *Server) printf(ctx context.Context, format string, v ...any) {
	if s.logger != nil {
		s.logger.Printf(ctx, format, v...)
	}
}

// loggingStreamInterceptor attaches a correlation ID taken from the
// x-request-id metadata (or generated) and logs every finished stream.
func loggingStreamInterceptor(logger Logger) grpc.StreamServerInterceptor {
	return func(srv any, stream grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx := infra.WithCorrelationID(stream.Context(), requestIDFromMetadata(stream.Context()))
		wrapped := &streamWithContext{ServerStream: stream, ctx: ctx}

		start := time.Now()
		err := handler(srv, wrapped)

		if logger != nil {
			if err != nil {
				logger.Errorf(ctx, "gRPC stream %s completed in %s: %v", info.FullMethod, time.Since(start), err)
			} else {
				logger.Printf(ctx, "gRPC stream %s completed in %s", info.FullMethod, time.Since(start))
			}
		}
		return err
	}
}

func requestIDFromMetadata(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		for _, raw := range md.Get(constants.RequestIDHeader) {
			if id, err := constants.ParseUUID(raw); err == nil {
				return id
			}
		}
	}
	return constants.GenerateUUID()
}

// drainStreamInterceptor cancels running streams once base is cancelled.
func drainStreamInterceptor(base context.Context) grpc.StreamServerInterceptor {
	return func(srv any, stream grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, cancel := context.WithCancel(stream.Context())
		defer cancel()
		stop := context.AfterFunc(base, cancel)
		defer stop()

		return handler(srv, &streamWithContext{ServerStream: stream, ctx: ctx})
	}
}

type streamWithContext struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *streamWithContext) Context() context.Context {
	return s.ctx
}
