// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads the bridge configuration file.
//
// The lifecycle is Load, then command-line overrides, then Validate (which
// never mutates), then Normalize (which fills in defaults).
package config

import (
	"time"

	"github.com/Thermoquad/n2kbridge/pkg/bridge"
)

type Config struct {
	Bridge   BridgeConfig   `yaml:"bridge"`
	Serial   SerialConfig   `yaml:"serial"`
	Bus      BusConfig      `yaml:"bus"`
	Registry RegistryConfig `yaml:"registry"`
	Status   StatusConfig   `yaml:"status"`
	Log      LogConfig      `yaml:"log"`
}

// ---- BRIDGE ----

type BridgeConfig struct {
	DefaultSource      *uint8 `yaml:"default_source"`
	ForwardOwnMessages *bool  `yaml:"forward_own_messages"`
	PollIntervalMs     int    `yaml:"poll_interval_ms"`
	MaxFramesPerPoll   int    `yaml:"max_frames_per_poll"`
}

// ---- SERIAL ----

type SerialConfig struct {
	ReadPort    string `yaml:"read_port"`
	ForwardPort string `yaml:"forward_port"` // empty: same as read_port
	Baud        int    `yaml:"baud"`
	WriteQueue  int    `yaml:"write_queue"`

	// WebSocket serial bridge, instead of read_port
	URL         string `yaml:"url"`
	Username    string `yaml:"username"`
	NoSSLVerify bool   `yaml:"no_ssl_verify"`
}

// ---- BUS ----

const (
	DriverSocketCAN = "socketcan"
	DriverLoopback  = "loopback"
)

type BusConfig struct {
	Driver        string `yaml:"driver"`
	Interface     string `yaml:"interface"`
	SendBuffer    int    `yaml:"send_buffer"`
	ReceiveBuffer int    `yaml:"receive_buffer"`
}

// ---- REGISTRY ----

type RegistryConfig struct {
	EvictionMs int `yaml:"eviction_ms"`
	SweepMs    int `yaml:"sweep_ms"`
}

// ---- STATUS ----

type StatusConfig struct {
	RefreshMs int    `yaml:"refresh_ms"`
	Listen    string `yaml:"listen"` // websocket snapshot server, empty disables
	TUI       *bool  `yaml:"tui"`
}

// ---- LOG ----

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"` // empty: stderr
}

// SameChannel reports whether frames are read from and forwarded to the
// same serial stream
func (c *Config) SameChannel() bool {
	if c.Serial.URL != "" {
		return true
	}
	return c.Serial.ForwardPort == "" || c.Serial.ForwardPort == c.Serial.ReadPort
}

// ToBridge converts a normalized configuration into bridge settings
func (c *Config) ToBridge() bridge.Config {
	cfg := bridge.DefaultConfig()
	if c.Bridge.DefaultSource != nil {
		cfg.DefaultSource = *c.Bridge.DefaultSource
	}
	if c.Bridge.ForwardOwnMessages != nil {
		cfg.ForwardOwnMessages = *c.Bridge.ForwardOwnMessages
	}
	cfg.SameChannel = c.SameChannel()
	cfg.PollInterval = millis(c.Bridge.PollIntervalMs)
	cfg.MaxFramesPerPoll = c.Bridge.MaxFramesPerPoll
	cfg.EvictionThreshold = millis(c.Registry.EvictionMs)
	cfg.SweepInterval = millis(c.Registry.SweepMs)
	return cfg
}

// RefreshInterval returns the status consumer period
func (c *Config) RefreshInterval() time.Duration {
	return millis(c.Status.RefreshMs)
}

// TUIEnabled reports whether the status display owns the terminal
func (c *Config) TUIEnabled() bool {
	return c.Status.TUI == nil || *c.Status.TUI
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
