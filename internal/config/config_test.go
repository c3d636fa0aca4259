// SPDX-License-Identifier: AGPL-3.0-or-later
// gsmcore - a GSM/GPRS Um-side protocol core

package config_test

import (
	"testing"

	"github.com/gsmcore/gsmcore/internal/config"
	"github.com/stretchr/testify/assert"
)

func validConfig() config.Config {
	return config.Config{
		ListenAddr:   "0.0.0.0",
		NSPort:       23000,
		ControlPort:  4251,
		L1SocketPath: "/tmp/gsmcore_l1",
		NetworkName:  "test",
		LogLevel:     config.LogLevelInfo,
		Timers: config.Timers{
			NSTnsTestSeconds:  30,
			NSTnsAliveSeconds: 3,
			NSAliveRetries:    10,
			SMCTC1ASeconds:    30,
			SMCMaxRetries:     2,
			SMRTR1NSeconds:    35,
			SMRTR2NSeconds:    5,
		},
	}
}

func TestValidateAcceptsDefaultShapedConfig(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.LogLevel = "verbose"
	assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidLogLevel)
}

func TestValidateRejectsBadListenAddr(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.ListenAddr = "not-an-ip"
	assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidListenAddr)
}

func TestValidateRejectsOutOfRangePorts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr error
	}{
		{"ns port zero", func(c *config.Config) { c.NSPort = 0 }, config.ErrInvalidNSPort},
		{"ns port too big", func(c *config.Config) { c.NSPort = 99999 }, config.ErrInvalidNSPort},
		{"control port zero", func(c *config.Config) { c.ControlPort = 0 }, config.ErrInvalidControlPort},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestValidateRejectsNonPositiveTimers(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Timers.NSAliveRetries = 0
	assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidTimer)
}

func TestAddrFormatsHostPort(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	assert.Equal(t, "0.0.0.0:23000", cfg.Addr())
	assert.Equal(t, "0.0.0.0:4251", cfg.ControlAddr())
}
