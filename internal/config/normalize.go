// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"github.com/Thermoquad/n2kbridge/pkg/bridge"
	"github.com/Thermoquad/n2kbridge/pkg/transport"
)

// Defaults
const (
	DefaultBaud       = 115200
	DefaultInterface  = "can0"
	DefaultRefreshMs  = 500
	DefaultLogLevel   = "info"
	DefaultEvictionMs = 120000
	DefaultSweepMs    = 1000
)

// Normalize fills in defaults for every unset field.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Bridge.DefaultSource == nil {
		src := uint8(bridge.DefaultSource)
		cfg.Bridge.DefaultSource = &src
	}
	if cfg.Bridge.ForwardOwnMessages == nil {
		on := true
		cfg.Bridge.ForwardOwnMessages = &on
	}
	setDefault(&cfg.Bridge.PollIntervalMs, int(bridge.DefaultPollInterval.Milliseconds()))
	setDefault(&cfg.Bridge.MaxFramesPerPoll, bridge.DefaultMaxFramesPerPoll)

	setDefault(&cfg.Serial.Baud, DefaultBaud)
	setDefault(&cfg.Serial.WriteQueue, transport.DefaultWriteQueue)

	if cfg.Bus.Driver == "" {
		cfg.Bus.Driver = DriverSocketCAN
	}
	if cfg.Bus.Interface == "" {
		cfg.Bus.Interface = DefaultInterface
	}
	setDefault(&cfg.Bus.SendBuffer, transport.DefaultSendBuffer)
	setDefault(&cfg.Bus.ReceiveBuffer, transport.DefaultReceiveBuffer)

	setDefault(&cfg.Registry.EvictionMs, DefaultEvictionMs)
	setDefault(&cfg.Registry.SweepMs, DefaultSweepMs)
	if cfg.Registry.SweepMs > cfg.Registry.EvictionMs {
		cfg.Registry.SweepMs = cfg.Registry.EvictionMs
	}

	setDefault(&cfg.Status.RefreshMs, DefaultRefreshMs)
	if cfg.Status.TUI == nil {
		on := true
		cfg.Status.TUI = &on
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
}

func setDefault(field *int, v int) {
	if *field == 0 {
		*field = v
	}
}
