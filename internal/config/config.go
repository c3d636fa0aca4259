// SPDX-License-Identifier: AGPL-3.0-or-later
// gsmcore - a GSM/GPRS Um-side protocol core

// Package config describes the runtime configuration of the protocol core:
// the NS/UDP bind address, the control-channel and L1-primitive transport
// endpoints, the protocol timers, and the ambient logging /
// metrics / tracing knobs. It is loaded with configulator.
package config

// Config stores the application configuration.
type Config struct {
	// ListenAddr is the bind address for the NS/UDP listener.
	ListenAddr string `yaml:"listen_addr" default:"0.0.0.0"`
	// NSPort is the UDP port the NS sublayer listens on.
	NSPort int `yaml:"ns_port" default:"23000"`
	// ControlPort is the TCP port for the optional control/RPC skeleton.
	ControlPort int `yaml:"control_port" default:"4251"`
	// L1SocketPath is the Unix-domain socket path for the L1 primitive
	// transport.
	L1SocketPath string `yaml:"l1_socket_path" default:"/tmp/gsmcore_l1"`

	// NetworkName identifies this instance in logs and the control tree root.
	NetworkName string `yaml:"network_name" default:"gsmcore"`

	// Timers holds every protocol timeout the core uses.
	Timers Timers `yaml:"timers"`

	LogLevel LogLevel `yaml:"log_level" default:"info"`
	Debug    bool     `yaml:"debug" default:"false"`

	Metrics Metrics `yaml:"metrics"`
	Tracing Tracing `yaml:"tracing"`
}

// Timers holds the protocol timeout values used across the core.
type Timers struct {
	// NSTnsTestSeconds is the NS "test alive" period (default 30s).
	NSTnsTestSeconds int `yaml:"ns_tns_test_seconds" default:"30"`
	// NSTnsAliveSeconds is the NS alive-ack wait period (default 3s).
	NSTnsAliveSeconds int `yaml:"ns_tns_alive_seconds" default:"3"`
	// NSAliveRetries is the number of consecutive Tns-alive expirations
	// before an NSVC is marked BLOCKED (default 10).
	NSAliveRetries int `yaml:"ns_alive_retries" default:"10"`

	// SMCTC1ASeconds is TC1A, the CP-DATA retransmit budget (default 30s).
	SMCTC1ASeconds int `yaml:"smc_tc1a_seconds" default:"30"`
	// SMCMaxRetries bounds CP-DATA retransmits (default 2).
	SMCMaxRetries int `yaml:"smc_max_retries" default:"2"`

	// SMRTR1NSeconds is TR1N, the RP-ACK wait period (default 35s per 3GPP TS 04.11).
	SMRTR1NSeconds int `yaml:"smr_tr1n_seconds" default:"35"`
	// SMRTR2NSeconds is TR2N, the RP-ACK transmit-readiness wait period.
	SMRTR2NSeconds int `yaml:"smr_tr2n_seconds" default:"5"`
}

// Metrics configures the optional Prometheus endpoint.
type Metrics struct {
	Enabled bool   `yaml:"enabled" default:"false"`
	Bind    string `yaml:"bind" default:"127.0.0.1"`
	Port    int    `yaml:"port" default:"9273"`
}

// Tracing configures the optional OpenTelemetry exporter.
type Tracing struct {
	Enabled  bool   `yaml:"enabled" default:"false"`
	Endpoint string `yaml:"endpoint" default:""`
}
