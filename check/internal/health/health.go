package health

import (
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/obsidianstack/puppetcheck/pkg/types"
)

// Service is the health service name the agent status is published under.
// The empty service name carries the same status.
const Service = "puppet.agent"

// DefaultStopTimeout bounds how long Stop waits for open RPCs, such as
// Health/Watch streams, before closing them.
const DefaultStopTimeout = 5 * time.Second

// Server serves grpc.health.v1.Health backed by the last evaluation.
type Server struct {
	grpc *grpc.Server
	hs   *grpchealth.Server

	stopTimeout time.Duration
}

// New returns a Server reporting SERVICE_UNKNOWN until the first Update.
func New() *Server {
	hs := grpchealth.NewServer()
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	s := &Server{grpc: srv, hs: hs, stopTimeout: DefaultStopTimeout}
	s.Update(types.Unknown)
	return s
}

// StatusFor maps a check severity to a serving status. WARNING still serves:
// the agent works, it only needs attention.
func StatusFor(sev types.Severity) healthpb.HealthCheckResponse_ServingStatus {
	switch sev {
	case types.OK, types.Warning:
		return healthpb.HealthCheckResponse_SERVING
	case types.Critical:
		return healthpb.HealthCheckResponse_NOT_SERVING
	default:
		return healthpb.HealthCheckResponse_SERVICE_UNKNOWN
	}
}

// Update publishes sev. Watchers of either service name are notified.
func (s *Server) Update(sev types.Severity) {
	st := StatusFor(sev)
	s.hs.SetServingStatus("", st)
	s.hs.SetServingStatus(Service, st)
	slog.Debug("health: status updated", "severity", sev, "status", st.String())
}

// Serve accepts connections on lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	slog.Info("health: gRPC health service listening", "addr", lis.Addr().String())
	return s.grpc.Serve(lis)
}

// Stop marks every service NOT_SERVING and drains in-flight RPCs. RPCs still
// open after the stop timeout are cancelled.
func (s *Server) Stop() {
	s.hs.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()

	t := time.NewTimer(s.stopTimeout)
	defer t.Stop()
	select {
	case <-done:
	case <-t.C:
		slog.Warn("health: graceful stop timed out, closing open streams", "timeout", s.stopTimeout)
		s.grpc.Stop()
		<-done
	}
}
