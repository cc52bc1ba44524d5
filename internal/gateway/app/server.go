// Package app wires the gateway runtime: join-token verification, runtime
// policy, audit storage, per-room callback surfaces, and the operational
// gRPC lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/uyjulian/naoka-ng/internal/gateway"
	"github.com/uyjulian/naoka-ng/internal/gateway/admission"
	"github.com/uyjulian/naoka-ng/internal/gateway/host"
	"github.com/uyjulian/naoka-ng/internal/gateway/identity"
	"github.com/uyjulian/naoka-ng/internal/gateway/moderation"
	"github.com/uyjulian/naoka-ng/internal/gateway/observability/audit"
	"github.com/uyjulian/naoka-ng/internal/gateway/policy"
	"github.com/uyjulian/naoka-ng/internal/gateway/property"
	"github.com/uyjulian/naoka-ng/internal/gateway/session"
	gatewaysqlite "github.com/uyjulian/naoka-ng/internal/gateway/storage/sqlite"
	"github.com/uyjulian/naoka-ng/internal/platform/config"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

type serverEnv struct {
	DBPath           string        `env:"NAOKA_DB_PATH"`
	AnnounceInterval time.Duration `env:"NAOKA_RATELIMIT_ANNOUNCE_INTERVAL" envDefault:"60s"`
}

func loadServerEnv() serverEnv {
	var cfg serverEnv
	_ = config.ParseEnv(&cfg)
	if cfg.AnnounceInterval <= 0 {
		cfg.AnnounceInterval = time.Minute
	}
	return cfg
}

// Server holds the shared gateway runtime and the operational gRPC surface.
// Room instances attach to it as the relay creates them.
type Server struct {
	listener   net.Listener
	grpcServer *grpc.Server
	health     *health.Server
	store      *gatewaysqlite.Store

	verifier *identity.Verifier
	policy   policy.Policy
	audit    *audit.Emitter

	announceInterval time.Duration
	roomsCtx         context.Context
	stopRooms        context.CancelFunc
}

// New creates a configured gateway server listening on the provided port.
func New(port int) (*Server, error) {
	return NewWithAddr(fmt.Sprintf(":%d", port))
}

// NewWithAddr creates a configured gateway server for the provided address.
func NewWithAddr(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	verifierCfg, err := identity.LoadVerifierConfigFromEnv(nil)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}
	verifier, err := identity.NewVerifier(verifierCfg)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	clientCfg, err := policy.LoadClientConfigFromEnv()
	if err != nil {
		_ = listener.Close()
		return nil, err
	}
	pol, err := policy.NewClient(clientCfg).Fetch(context.Background())
	if err != nil {
		log.Printf("using default policy: %v", err)
	}

	env := loadServerEnv()
	var store *gatewaysqlite.Store
	var emitter *audit.Emitter
	if strings.TrimSpace(env.DBPath) != "" {
		store, err = openAuditStore(env.DBPath)
		if err != nil {
			_ = listener.Close()
			return nil, err
		}
		emitter = audit.NewEmitter(store)
	}

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	roomsCtx, stopRooms := context.WithCancel(context.Background())
	return &Server{
		listener:         listener,
		grpcServer:       grpcServer,
		health:           healthServer,
		store:            store,
		verifier:         verifier,
		policy:           pol,
		audit:            emitter,
		announceInterval: env.AnnounceInterval,
		roomsCtx:         roomsCtx,
		stopRooms:        stopRooms,
	}, nil
}

// Attach builds the callback surface for one room instance and starts its
// periodic rate-limit announcer. The announcer stops when the server closes.
func (s *Server) Attach(h host.Host) *gateway.Gateway {
	registry := session.NewRegistry()
	sanitizer := property.NewSanitizer()
	mod := moderation.NewHandler(h, registry, sanitizer, s.policy, s.audit)
	adm := admission.NewController(s.verifier, registry, sanitizer, s.policy, mod, s.audit)
	go mod.RunRateLimitAnnouncer(s.roomsCtx, s.announceInterval)
	return gateway.New(adm, mod)
}

// Addr returns the listener address for the server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Policy returns the runtime policy the server resolved at startup.
func (s *Server) Policy() policy.Policy {
	return s.policy.Clone()
}

// Run creates and serves a gateway server until context cancellation.
func Run(ctx context.Context, port int) error {
	server, err := New(port)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the gRPC server until context cancellation.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	log.Printf("gateway server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		if s.health != nil {
			s.health.Shutdown()
		}
		s.grpcServer.GracefulStop()
		err := <-serveErr
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}
}

// Close releases gateway server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.stopRooms != nil {
		s.stopRooms()
	}
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close audit store: %v", err)
		}
	}
}

func openAuditStore(path string) (*gatewaysqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := gatewaysqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audit sqlite store: %w", err)
	}
	return store, nil
}
