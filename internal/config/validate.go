// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"fmt"
	"net"
	"net/url"

	"github.com/Thermoquad/n2kbridge/pkg/n2k"
	"github.com/rs/zerolog"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	// ------------------------------------------------------------
	// BRIDGE
	// ------------------------------------------------------------

	if src := cfg.Bridge.DefaultSource; src != nil && *src > n2k.MaxDeviceAddress {
		return fmt.Errorf("bridge.default_source %d is not a device address (0-%d)", *src, n2k.MaxDeviceAddress)
	}
	if err := nonNegative("bridge.poll_interval_ms", cfg.Bridge.PollIntervalMs); err != nil {
		return err
	}
	if err := nonNegative("bridge.max_frames_per_poll", cfg.Bridge.MaxFramesPerPoll); err != nil {
		return err
	}

	// ------------------------------------------------------------
	// SERIAL
	// ------------------------------------------------------------

	s := cfg.Serial
	if s.URL == "" && s.ReadPort == "" && s.ForwardPort == "" {
		return fmt.Errorf("serial: one of read_port, forward_port or url is required")
	}
	if s.URL != "" {
		if s.ReadPort != "" || s.ForwardPort != "" {
			return fmt.Errorf("serial.url cannot be combined with read_port or forward_port")
		}
		u, err := url.Parse(s.URL)
		if err != nil {
			return fmt.Errorf("serial.url: %w", err)
		}
		if u.Scheme != "ws" && u.Scheme != "wss" {
			return fmt.Errorf("serial.url: unsupported scheme %q (use ws:// or wss://)", u.Scheme)
		}
	}
	if err := nonNegative("serial.baud", s.Baud); err != nil {
		return err
	}
	if err := nonNegative("serial.write_queue", s.WriteQueue); err != nil {
		return err
	}

	// ------------------------------------------------------------
	// BUS
	// ------------------------------------------------------------

	switch cfg.Bus.Driver {
	case "", DriverSocketCAN, DriverLoopback:
	default:
		return fmt.Errorf("bus.driver %q: must be %s or %s", cfg.Bus.Driver, DriverSocketCAN, DriverLoopback)
	}
	if err := nonNegative("bus.send_buffer", cfg.Bus.SendBuffer); err != nil {
		return err
	}
	if err := nonNegative("bus.receive_buffer", cfg.Bus.ReceiveBuffer); err != nil {
		return err
	}

	// ------------------------------------------------------------
	// REGISTRY
	// ------------------------------------------------------------

	r := cfg.Registry
	if err := nonNegative("registry.eviction_ms", r.EvictionMs); err != nil {
		return err
	}
	if err := nonNegative("registry.sweep_ms", r.SweepMs); err != nil {
		return err
	}
	if r.EvictionMs > 0 && r.SweepMs > r.EvictionMs {
		return fmt.Errorf("registry.sweep_ms (%d) exceeds registry.eviction_ms (%d)", r.SweepMs, r.EvictionMs)
	}

	// ------------------------------------------------------------
	// STATUS / LOG
	// ------------------------------------------------------------

	if err := nonNegative("status.refresh_ms", cfg.Status.RefreshMs); err != nil {
		return err
	}
	if cfg.Status.Listen != "" {
		if _, _, err := net.SplitHostPort(cfg.Status.Listen); err != nil {
			return fmt.Errorf("status.listen: %w", err)
		}
	}
	if cfg.Log.Level != "" {
		if _, err := zerolog.ParseLevel(cfg.Log.Level); err != nil {
			return fmt.Errorf("log.level: %w", err)
		}
	}

	return nil
}

func nonNegative(field string, v int) error {
	if v < 0 {
		return fmt.Errorf("%s must not be negative, got %d", field, v)
	}
	return nil
}
