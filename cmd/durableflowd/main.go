// Command durableflowd runs one node of the durable workflow runtime: the
// embedded store, the node runtime, SWIM membership/gossip, and hash-ring
// routing, wired together from config. It is a thin wiring binary -- full
// CLI argument parsing is out of scope, so it takes a single -config flag
// (see the teacher's examples/ demos for the convention of one main per
// concern, generalized here into one process that starts every subsystem).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/nodegraft/durableflow/cluster/gossip"
	"github.com/nodegraft/durableflow/cluster/membership"
	"github.com/nodegraft/durableflow/cluster/remote"
	"github.com/nodegraft/durableflow/cluster/ring"
	"github.com/nodegraft/durableflow/cluster/transport"
	"github.com/nodegraft/durableflow/config"
	"github.com/nodegraft/durableflow/emit"
	"github.com/nodegraft/durableflow/engine"
	"github.com/nodegraft/durableflow/handlers"
	"github.com/nodegraft/durableflow/metrics"
	"github.com/nodegraft/durableflow/persist"
	"github.com/nodegraft/durableflow/store"
)

func main() {
	configPath := flag.String("config", "", "path to a durableflowd YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("durableflowd: load config: %v", err)
	}

	logger := log.New(os.Stdout, fmt.Sprintf("[%s] ", cfg.Node.ID), log.LstdFlags)

	kv, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		log.Fatalf("durableflowd: open store %s: %v", cfg.Store.Path, err)
	}
	defer func() { _ = kv.Close() }()

	var m *metrics.Metrics
	var registerer prometheus.Registerer
	if cfg.Metrics.Enabled {
		registerer = prometheus.NewRegistry()
		m = metrics.New(registerer)
	}

	var audit *persist.AuditExporter
	if cfg.Audit.DSN != "" {
		audit, err = persist.NewAuditExporter(cfg.Audit.DSN)
		if err != nil {
			log.Fatalf("durableflowd: audit exporter: %v", err)
		}
		defer func() { _ = audit.Close() }()
	}

	logEmitter := emit.NewLogEmitter(os.Stdout, true)
	var eventEmitter emit.Emitter = logEmitter
	if cfg.Tracing.Enabled {
		tp := sdktrace.NewTracerProvider()
		otel.SetTracerProvider(tp)
		defer func() { _ = tp.Shutdown(context.Background()) }()
		eventEmitter = emit.NewMultiEmitter(logEmitter, emit.NewOTelEmitter(tp.Tracer("durableflow")))
	}

	registry := engine.NewRegistry()
	handlers.RegisterProviders(registry, handlers.ProviderKeys{
		AnthropicAPIKey: cfg.Chat.AnthropicAPIKey,
		AnthropicModel:  cfg.Chat.AnthropicModel,
		OpenAIAPIKey:    cfg.Chat.OpenAIAPIKey,
		OpenAIModel:     cfg.Chat.OpenAIModel,
		GoogleAPIKey:    cfg.Chat.GoogleAPIKey,
		GoogleModel:     cfg.Chat.GoogleModel,
	})

	eng := engine.New(
		persist.NewJournal(kv),
		persist.NewState(kv),
		persist.NewWorkflow(kv),
		persist.NewTimerStore(kv),
		registry,
		eventEmitter,
		audit,
		engine.WithMaxConcurrentWorkflows(cfg.Engine.MaxConcurrentWorkflows),
		engine.WithTimerPollInterval(cfg.Engine.TimerPollInterval),
		engine.WithTimerBatchSize(cfg.Engine.TimerBatchSize),
		engine.WithMetrics(m),
	)

	ctx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	stopSweeper := eng.StartTimerSweeper(ctx)
	defer stopSweeper()

	self := membership.NodeInfo{NodeID: cfg.Node.ID, Address: cfg.Node.Address}
	members := membership.New(self)

	hashRing := ring.New(cfg.Cluster.VirtualNodesPerNode)
	hashRing.SetMetrics(m)
	stopWatch := make(chan struct{})
	defer close(stopWatch)
	ring.WatchMembership(hashRing, members, stopWatch)

	tr := transport.NewHTTPTransport(nil)

	g := gossip.New(self, members, tr, cfg.Cluster.ProbeInterval, cfg.Cluster.ProbeTimeout, cfg.Cluster.SuspectTimeout)
	g.SetMetrics(m)

	executor := remote.New(self, hashRing, members, tr, eng, cfg.Cluster.RPCTimeout)

	// gossip and remote share this node's single address, so both handlers
	// are multiplexed behind one transport.Serve call keyed on message kind
	// rather than each calling its own Serve (which would double-bind the
	// port).
	go func() {
		err := tr.Serve(self.Address, func(ctx context.Context, msg transport.Message) (transport.Message, error) {
			switch {
			case gossip.IsGossipKind(msg.Kind):
				return g.Handle(ctx, msg)
			case remote.IsRemoteKind(msg.Kind):
				return executor.Handle(ctx, msg)
			default:
				return transport.Message{}, fmt.Errorf("durableflowd: unknown message kind %q", msg.Kind)
			}
		})
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("serve %s: %v", self.Address, err)
		}
	}()

	go g.Run(ctx)

	if cfg.Cluster.SeedAddress != "" {
		joinCtx, cancel := context.WithTimeout(ctx, cfg.Cluster.RPCTimeout)
		if err := g.Join(joinCtx, cfg.Cluster.SeedAddress); err != nil {
			logger.Printf("join seed %s: %v", cfg.Cluster.SeedAddress, err)
		}
		cancel()
	}

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registerer.(*prometheus.Registry), promhttp.HandlerOpts{}))
		metricsServer = &http.Server{Addr: cfg.Metrics.Address, Handler: mux}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Printf("metrics server: %v", err)
			}
		}()
		logger.Printf("metrics listening on %s/metrics", cfg.Metrics.Address)
	}

	logger.Printf("node %s listening on %s", self.NodeID, self.Address)
	<-ctx.Done()
	logger.Printf("shutting down")

	g.Stop()
	if err := tr.Close(); err != nil {
		logger.Printf("close transport: %v", err)
	}
	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("shutdown metrics server: %v", err)
		}
	}
}
