// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"errors"
	"time"

	"github.com/Thermoquad/n2kbridge/pkg/actisense"
	"github.com/Thermoquad/n2kbridge/pkg/n2k"
	"github.com/Thermoquad/n2kbridge/pkg/status"
	"github.com/Thermoquad/n2kbridge/pkg/transport"
	"github.com/rs/zerolog"
)

// Forwarder accepts encoded serial frames without blocking
type Forwarder interface {
	WriteBytes(p []byte) error
}

// echoer is implemented by buses that hand every sent frame back to the
// receiver, like a CAN controller in loopback mode
type echoer interface {
	Echoes() bool
}

// Router moves frames between the bus and the serial side
type Router struct {
	bus      transport.Bus
	forward  Forwarder // nil disables bus -> serial
	registry *Registry
	status   *status.Block
	log      zerolog.Logger

	defaultSource uint8
	sameChannel   bool
	forwardOwn    bool
	busEchoes     bool
	epoch         time.Time
}

// NewRouter creates a router. forward may be nil.
func NewRouter(cfg Config, bus transport.Bus, forward Forwarder, registry *Registry, st *status.Block, log zerolog.Logger) *Router {
	epoch := cfg.Epoch
	if epoch.IsZero() {
		epoch = time.Now()
	}
	busEchoes := false
	if e, ok := bus.(echoer); ok {
		busEchoes = e.Echoes()
	}
	return &Router{
		bus:           bus,
		forward:       forward,
		registry:      registry,
		status:        st,
		log:           log,
		defaultSource: cfg.DefaultSource,
		sameChannel:   cfg.SameChannel,
		forwardOwn:    cfg.ForwardOwnMessages,
		busEchoes:     busEchoes,
		epoch:         epoch,
	}
}

// OnBusFrame handles a frame received from the bus. Returns true when the
// frame was written to the forward endpoint.
func (r *Router) OnBusFrame(f n2k.Frame, now time.Time) bool {
	r.status.IncReceived()

	own := f.Source == r.defaultSource
	if !own || !r.busEchoes {
		if r.registry.Observe(f, now) {
			r.status.SetDevices(r.registry.Count(now))
			r.log.Info().Uint8("address", f.Source).Str("pgn", n2k.PGNName(f.PGN)).Msg("device appeared")
		}
	}

	// Our own frames come back from the bus; on a shared channel they
	// would be fed straight back into the decoder.
	if own && r.sameChannel {
		return false
	}
	// An echoing bus delivers own messages here instead of OnSerialFrame
	if own && r.busEchoes && !r.forwardOwn {
		return false
	}

	return r.writeForward(f)
}

// OnSerialFrame handles a frame decoded from the serial side. A missing
// source is replaced with the default source and a missing timestamp with
// the time since the router started. Returns transport.ErrBusBusy when the
// bus was saturated and the frame dropped.
func (r *Router) OnSerialFrame(f n2k.Frame, now time.Time) error {
	if f.Source == n2k.AddressUnset {
		f = f.WithSource(r.defaultSource)
	}
	if f.Timestamp == 0 {
		f = f.WithTimestamp(r.millis(now))
	}

	if err := r.bus.Send(f); err != nil {
		if errors.Is(err, transport.ErrBusBusy) {
			r.status.IncDropped()
			r.log.Trace().Uint32("pgn", f.PGN).Msg("bus busy, frame dropped")
		} else {
			r.log.Warn().Err(err).Uint32("pgn", f.PGN).Msg("bus send failed")
		}
		return err
	}
	r.status.IncSent()

	if r.forwardOwn && !r.sameChannel && !r.busEchoes {
		r.writeForward(f)
	}
	return nil
}

func (r *Router) writeForward(f n2k.Frame) bool {
	if r.forward == nil {
		return false
	}
	if err := r.forward.WriteBytes(actisense.Encode(f)); err != nil {
		r.log.Debug().Err(err).Uint32("pgn", f.PGN).Msg("forward write dropped")
		return false
	}
	r.status.IncForwarded()
	return true
}

func (r *Router) millis(now time.Time) uint32 {
	d := now.Sub(r.epoch)
	if d < 0 {
		return 0
	}
	return uint32(d.Milliseconds())
}
