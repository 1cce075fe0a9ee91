// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package bridge connects an NMEA2000 bus to an Actisense serial stream.
//
// Everything in this package runs on a single goroutine: the one calling
// Poll or Run. Status leaves the package only through the atomic counters
// of a status.Block.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Thermoquad/n2kbridge/pkg/actisense"
	"github.com/Thermoquad/n2kbridge/pkg/status"
	"github.com/Thermoquad/n2kbridge/pkg/transport"
	"github.com/rs/zerolog"
)

// Defaults
const (
	DefaultSource           = 43
	DefaultPollInterval     = time.Millisecond
	DefaultMaxFramesPerPoll = 32
	DefaultSweepInterval    = time.Second
)

var (
	// ErrNoBus is returned by New without a bus transport
	ErrNoBus = errors.New("bridge: no bus transport")

	// ErrNoEndpoints is returned by New when neither serial endpoint is available
	ErrNoEndpoints = errors.New("bridge: no serial endpoint available")
)

// SerialReader yields the serial bytes that have already arrived
type SerialReader interface {
	ReadAvailable(dst []byte) ([]byte, error)
}

// Config holds the bridge settings
type Config struct {
	DefaultSource      uint8 // Source assigned to serial frames that carry none
	ForwardOwnMessages bool  // Echo sent frames to the forward endpoint
	SameChannel        bool  // Read and forward endpoints are one stream

	PollInterval      time.Duration // Idle wait between polls
	MaxFramesPerPoll  int           // Bus frames drained per poll
	EvictionThreshold time.Duration // Registry eviction threshold
	SweepInterval     time.Duration // Registry sweep period

	Epoch time.Time // Origin of assigned timestamps, zero means now
}

// DefaultConfig returns the firmware defaults for a shared serial channel
func DefaultConfig() Config {
	return Config{
		DefaultSource:      DefaultSource,
		ForwardOwnMessages: true,
		SameChannel:        true,
		PollInterval:       DefaultPollInterval,
		MaxFramesPerPoll:   DefaultMaxFramesPerPoll,
		EvictionThreshold:  DefaultEvictionThreshold,
		SweepInterval:      DefaultSweepInterval,
	}
}

// Bridge owns the codec, router and registry
type Bridge struct {
	cfg      Config
	bus      transport.Bus
	reader   SerialReader // nil disables serial -> bus
	decoder  *actisense.Decoder
	router   *Router
	registry *Registry
	status   *status.Block
	log      zerolog.Logger

	readBuf   []byte
	nextSweep time.Time
	busErr    error
}

// New creates a bridge. Either reader or forward may be nil to run in one
// direction only, but not both.
func New(cfg Config, bus transport.Bus, reader SerialReader, forward Forwarder, st *status.Block, log zerolog.Logger) (*Bridge, error) {
	if bus == nil {
		return nil, ErrNoBus
	}
	if reader == nil && forward == nil {
		return nil, ErrNoEndpoints
	}
	if st == nil {
		st = status.NewBlock()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MaxFramesPerPoll <= 0 {
		cfg.MaxFramesPerPoll = DefaultMaxFramesPerPoll
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}

	registry := NewRegistry(cfg.EvictionThreshold)
	log = log.With().Str("component", "bridge").Logger()

	if reader == nil {
		log.Warn().Msg("serial read endpoint unavailable, serial -> bus disabled")
	}
	if forward == nil {
		log.Warn().Msg("serial forward endpoint unavailable, bus -> serial disabled")
	}

	return &Bridge{
		cfg:      cfg,
		bus:      bus,
		reader:   reader,
		decoder:  actisense.NewDecoder(),
		router:   NewRouter(cfg, bus, forward, registry, st, log),
		registry: registry,
		status:   st,
		log:      log,
		readBuf:  make([]byte, 0, 512),
	}, nil
}

// Status returns the shared status block
func (b *Bridge) Status() *status.Block {
	return b.status
}

// Registry returns the device registry. Only the goroutine running the
// bridge may use it.
func (b *Bridge) Registry() *Registry {
	return b.registry
}

// Poll runs one bounded iteration and never blocks. It returns the amount
// of work done: bus frames handled plus serial bytes decoded.
func (b *Bridge) Poll(now time.Time) int {
	work := 0

	for range b.cfg.MaxFramesPerPoll {
		f, ok := b.bus.TryReceive()
		if !ok {
			break
		}
		b.router.OnBusFrame(f, now)
		work++
	}
	if b.busErr == nil {
		if err := b.bus.Err(); err != nil {
			b.busErr = err
			b.log.Error().Err(err).Msg("bus receive failed")
		}
	}

	if b.reader != nil {
		work += b.pollSerial(now)
	}

	if !now.Before(b.nextSweep) {
		b.sweep(now)
		b.nextSweep = now.Add(b.cfg.SweepInterval)
	}

	return work
}

func (b *Bridge) pollSerial(now time.Time) int {
	data, err := b.reader.ReadAvailable(b.readBuf[:0])
	b.readBuf = data

	for _, c := range data {
		frame, derr := b.decoder.DecodeByte(c)
		if derr != nil {
			b.status.IncFramingErrors()
			b.log.Debug().Err(derr).Msg("serial frame discarded")
			continue
		}
		if frame != nil {
			// counted and logged by the router
			_ = b.router.OnSerialFrame(*frame, now)
		}
	}

	if err != nil {
		b.log.Warn().Err(err).Msg("serial read endpoint failed, serial -> bus disabled")
		b.reader = nil
	}
	return len(data)
}

// Err returns the bus failure seen by Poll, if any
func (b *Bridge) Err() error {
	return b.busErr
}

func (b *Bridge) sweep(now time.Time) {
	if removed := b.registry.Sweep(now); removed > 0 {
		b.log.Debug().Int("removed", removed).Msg("registry sweep")
	}
	b.status.SetDevices(b.registry.Count(now))
}

// Run polls until ctx is cancelled or the bus fails, waiting PollInterval
// only after an iteration that found nothing to do
func (b *Bridge) Run(ctx context.Context) error {
	b.log.Info().
		Uint8("default_source", b.cfg.DefaultSource).
		Bool("same_channel", b.cfg.SameChannel).
		Msg("bridge running")

	idle := time.NewTimer(b.cfg.PollInterval)
	defer idle.Stop()

	for {
		if ctx.Err() != nil {
			return nil
		}
		work := b.Poll(time.Now())
		if b.busErr != nil {
			return fmt.Errorf("bridge: %w", b.busErr)
		}
		if work > 0 {
			continue
		}

		idle.Reset(b.cfg.PollInterval)
		select {
		case <-ctx.Done():
			return nil
		case <-idle.C:
		}
	}
}
