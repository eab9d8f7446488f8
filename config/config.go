// Package config loads runtime configuration from an optional YAML file
// plus environment variable overrides, functional-options style
// construction for anything set programmatically (spec's ambient
// configuration layer). Grounded on the pack's config-loading convention of
// defaults-then-overrides (internal/rca/config in the reference pack),
// adapted to this runtime's own sections and to go.yaml.in/yaml/v2 as the
// YAML library already in the teacher's dependency stack.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"go.yaml.in/yaml/v2"
)

// Config is every tunable of a single node: storage location, node
// identity, the four subsystems' knobs, and LLM provider credentials.
type Config struct {
	Node    NodeConfig    `yaml:"node"`
	Store   StoreConfig   `yaml:"store"`
	Engine  EngineConfig  `yaml:"engine"`
	Cluster ClusterConfig `yaml:"cluster"`
	Audit   AuditConfig   `yaml:"audit"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
	Chat    ChatConfig    `yaml:"chat"`
}

// NodeConfig identifies this process within the cluster.
type NodeConfig struct {
	ID      string `yaml:"id"`
	Address string `yaml:"address"`
}

// StoreConfig points at the embedded KV store's data file.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// EngineConfig tunes the node runtime.
type EngineConfig struct {
	MaxConcurrentWorkflows int           `yaml:"max_concurrent_workflows"`
	TimerPollInterval      time.Duration `yaml:"timer_poll_interval"`
	TimerBatchSize         int           `yaml:"timer_batch_size"`
}

// ClusterConfig tunes membership, gossip, the hash ring, and remote
// execution.
type ClusterConfig struct {
	SeedAddress         string        `yaml:"seed_address"`
	VirtualNodesPerNode int           `yaml:"virtual_nodes_per_node"`
	ProbeInterval       time.Duration `yaml:"probe_interval"`
	ProbeTimeout        time.Duration `yaml:"probe_timeout"`
	SuspectTimeout      time.Duration `yaml:"suspect_timeout"`
	RPCTimeout          time.Duration `yaml:"rpc_timeout"`
}

// AuditConfig configures the optional external MySQL audit sink. DSN empty
// disables audit export entirely.
type AuditConfig struct {
	DSN string `yaml:"dsn"`
}

// MetricsConfig toggles the Prometheus metrics HTTP endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// TracingConfig toggles OpenTelemetry span emission alongside log events.
// Disabled by default since no exporter is configured out of the box --
// enabling it without pointing at a collector simply starts sampling and
// discarding spans locally.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// ChatConfig carries LLM provider credentials, each optional.
type ChatConfig struct {
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	AnthropicModel  string `yaml:"anthropic_model"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	OpenAIModel     string `yaml:"openai_model"`
	GoogleAPIKey    string `yaml:"google_api_key"`
	GoogleModel     string `yaml:"google_model"`
}

// Default returns a Config with the runtime's documented defaults.
func Default() Config {
	return Config{
		Node:  NodeConfig{ID: "node-1", Address: "localhost:7600"},
		Store: StoreConfig{Path: "durableflow.db"},
		Engine: EngineConfig{
			MaxConcurrentWorkflows: 100,
			TimerPollInterval:      time.Second,
			TimerBatchSize:         64,
		},
		Cluster: ClusterConfig{
			VirtualNodesPerNode: 64,
			ProbeInterval:       time.Second,
			ProbeTimeout:        500 * time.Millisecond,
			SuspectTimeout:      5 * time.Second,
			RPCTimeout:          5 * time.Second,
		},
		Metrics: MetricsConfig{Enabled: true, Address: "localhost:9600"},
	}
}

// Option mutates a Config during Load, following the runtime's functional-
// options convention (mirrors engine.Option).
type Option func(*Config)

// WithNode overrides node identity.
func WithNode(id, address string) Option {
	return func(c *Config) { c.Node = NodeConfig{ID: id, Address: address} }
}

// Load builds a Config by layering, in increasing priority: the documented
// defaults, an optional YAML file at path (skipped entirely if path is
// empty or the file does not exist), environment variable overrides, then
// any Options passed by the caller.
func Load(path string, opts ...Option) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// no config file is not an error; defaults and env vars still apply.
		default:
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	strEnv(&cfg.Node.ID, "DURABLEFLOW_NODE_ID")
	strEnv(&cfg.Node.Address, "DURABLEFLOW_NODE_ADDRESS")
	strEnv(&cfg.Store.Path, "DURABLEFLOW_STORE_PATH")

	intEnv(&cfg.Engine.MaxConcurrentWorkflows, "DURABLEFLOW_MAX_CONCURRENT_WORKFLOWS")
	durationEnv(&cfg.Engine.TimerPollInterval, "DURABLEFLOW_TIMER_POLL_INTERVAL")
	intEnv(&cfg.Engine.TimerBatchSize, "DURABLEFLOW_TIMER_BATCH_SIZE")

	strEnv(&cfg.Cluster.SeedAddress, "DURABLEFLOW_SEED_ADDRESS")
	intEnv(&cfg.Cluster.VirtualNodesPerNode, "DURABLEFLOW_VIRTUAL_NODES_PER_NODE")
	durationEnv(&cfg.Cluster.ProbeInterval, "DURABLEFLOW_PROBE_INTERVAL")
	durationEnv(&cfg.Cluster.ProbeTimeout, "DURABLEFLOW_PROBE_TIMEOUT")
	durationEnv(&cfg.Cluster.SuspectTimeout, "DURABLEFLOW_SUSPECT_TIMEOUT")
	durationEnv(&cfg.Cluster.RPCTimeout, "DURABLEFLOW_RPC_TIMEOUT")

	strEnv(&cfg.Audit.DSN, "DURABLEFLOW_AUDIT_DSN")

	boolEnv(&cfg.Metrics.Enabled, "DURABLEFLOW_METRICS_ENABLED")
	strEnv(&cfg.Metrics.Address, "DURABLEFLOW_METRICS_ADDRESS")

	boolEnv(&cfg.Tracing.Enabled, "DURABLEFLOW_TRACING_ENABLED")

	strEnv(&cfg.Chat.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	strEnv(&cfg.Chat.AnthropicModel, "DURABLEFLOW_ANTHROPIC_MODEL")
	strEnv(&cfg.Chat.OpenAIAPIKey, "OPENAI_API_KEY")
	strEnv(&cfg.Chat.OpenAIModel, "DURABLEFLOW_OPENAI_MODEL")
	strEnv(&cfg.Chat.GoogleAPIKey, "GOOGLE_API_KEY")
	strEnv(&cfg.Chat.GoogleModel, "DURABLEFLOW_GOOGLE_MODEL")
}

func strEnv(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func intEnv(dst *int, key string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}

func boolEnv(dst *bool, key string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	if b, err := strconv.ParseBool(v); err == nil {
		*dst = b
	}
}

func durationEnv(dst *time.Duration, key string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
	}
}
