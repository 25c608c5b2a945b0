package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml"
)

const (
	defaultListenAddr          = ":3333"
	defaultMaxConns            = 10000
	defaultMaxAcceptsPerSecond = 500
	defaultMaxAcceptBurst      = 1000
	defaultStatusInterval      = 60 // seconds
	defaultBroadcastFanout     = 32

	stratumReadTimeout  = 5 * time.Minute
	stratumWriteTimeout = 10 * time.Second
)

type Config struct {
	// ListenAddr is the TCP address the stratum listener binds, e.g. ":3333".
	ListenAddr string `toml:"listen_addr"`
	// SharedSecret gates mining.authorize when non-empty. Only its SHA-256
	// digest is kept in memory after startup.
	SharedSecret string `toml:"shared_secret"`
	// MaxConns caps concurrently connected miners. Zero disables the cap.
	MaxConns int `toml:"max_conns"`
	// MaxAcceptsPerSecond limits how many new TCP connections the server
	// accepts per second. Zero disables rate limiting.
	MaxAcceptsPerSecond int `toml:"max_accepts_per_second"`
	// MaxAcceptBurst controls how many accepts can happen in a short burst
	// before the average rate is enforced. Zero means "same as rate".
	MaxAcceptBurst int `toml:"max_accept_burst"`
	// BroadcastFanout bounds how many concurrent pushes one notify round may
	// have in flight. Zero falls back to the default.
	BroadcastFanout int `toml:"broadcast_fanout"`
	// ZMQJobAddr is an optional ZeroMQ SUB endpoint publishing new job
	// payloads (e.g. "tcp://127.0.0.1:28432"). Empty disables the feed.
	ZMQJobAddr string `toml:"zmq_job_addr"`
	// ZMQJobTopic is the subscription topic for the job feed.
	ZMQJobTopic string `toml:"zmq_job_topic"`
	// DataDir holds the submission log database and log files.
	DataDir string `toml:"data_dir"`
	// SubmissionLog enables recording accepted submissions to SQLite.
	SubmissionLog bool `toml:"submission_log"`
	// StatusLogIntervalSec controls how often a status summary line is
	// logged. Zero disables the summary.
	StatusLogIntervalSec int `toml:"status_log_interval_sec"`
	LogStdout            bool `toml:"log_stdout"`
	Debug                bool `toml:"debug"`
	// UseSimdSha256 selects the SIMD SHA-256 implementation for secret
	// hashing. The default stdlib implementation is already fast enough for
	// the authorize path; this mainly exists for parity with deployments
	// that enable it fleet-wide.
	UseSimdSha256 bool `toml:"use_simd_sha256"`
}

func defaultConfig() Config {
	return Config{
		ListenAddr:           defaultListenAddr,
		MaxConns:             defaultMaxConns,
		MaxAcceptsPerSecond:  defaultMaxAcceptsPerSecond,
		MaxAcceptBurst:       defaultMaxAcceptBurst,
		BroadcastFanout:      defaultBroadcastFanout,
		ZMQJobTopic:          "job",
		DataDir:              "data",
		SubmissionLog:        true,
		StatusLogIntervalSec: defaultStatusInterval,
		LogStdout:            true,
	}
}

// loadConfig reads a TOML config from path, applying defaults for any field
// the file leaves unset. A missing file is not an error: the defaults are
// used so a bare binary still comes up listening on the default port.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("config file not found; using defaults", "path", path)
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, applyConfigDefaults(&cfg)
}

func applyConfigDefaults(cfg *Config) error {
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	if cfg.MaxConns < 0 {
		return fmt.Errorf("max_conns must be >= 0, got %d", cfg.MaxConns)
	}
	if cfg.MaxAcceptsPerSecond < 0 {
		return fmt.Errorf("max_accepts_per_second must be >= 0, got %d", cfg.MaxAcceptsPerSecond)
	}
	if cfg.BroadcastFanout <= 0 {
		cfg.BroadcastFanout = defaultBroadcastFanout
	}
	if strings.TrimSpace(cfg.ZMQJobTopic) == "" {
		cfg.ZMQJobTopic = "job"
	}
	return nil
}
