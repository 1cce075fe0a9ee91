// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Thermoquad/n2kbridge/internal/config"
	"github.com/Thermoquad/n2kbridge/pkg/bridge"
	"github.com/Thermoquad/n2kbridge/pkg/status"
	"github.com/Thermoquad/n2kbridge/pkg/transport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// defaultTUILogFile receives logs while the status display owns the terminal
const defaultTUILogFile = "n2kbridge.log"

var (
	bridgeForwardPort string
	bridgeBusDriver   string
	bridgeInterface   string
	bridgeListen      string
	bridgeNoTUI       bool
)

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Run the NMEA2000 <-> Actisense serial bridge",
	Long: `Bridge frames between an NMEA2000 CAN bus and an Actisense serial stream.

Frames received from the bus are encoded as Actisense N2K messages and
written to the forward endpoint. Actisense N2K send requests read from the
read endpoint are put on the bus; requests without a source address are sent
from the bridge's default source (43).

Endpoints:
  --port /dev/ttyUSB0                     read and forward on one port
  --port /dev/ttyUSB0 --forward-port ...  separate read and forward ports
  --url ws://host/path                    WebSocket serial bridge

When read and forward share one channel, bus frames carrying the default
source are not forwarded, since they are the bridge's own frames coming back.

A status display refreshes every 500ms. Send SIGUSR1 to toggle the
maintenance ("Upload In Progress") screen. With --listen, status snapshots
are also served to 'n2kbridge watch' over WebSocket.`,
	RunE: runBridge,
}

func init() {
	rootCmd.AddCommand(bridgeCmd)
	bridgeCmd.Flags().StringVar(&bridgeForwardPort, "forward-port", "", "Serial port for bus -> serial frames (default: same as --port)")
	bridgeCmd.Flags().StringVar(&bridgeBusDriver, "bus", "", "Bus driver (socketcan, loopback)")
	bridgeCmd.Flags().StringVar(&bridgeInterface, "interface", "", "SocketCAN interface (default: can0)")
	bridgeCmd.Flags().StringVar(&bridgeListen, "listen", "", "Serve status snapshots on this address (e.g. :8080)")
	bridgeCmd.Flags().BoolVar(&bridgeNoTUI, "no-tui", false, "Print status lines instead of the status display")
}

// applyFlagOverrides copies explicitly set command-line flags over the file
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Serial.ReadPort = portName
	}
	if flags.Changed("baud") {
		cfg.Serial.Baud = baudRate
	}
	if flags.Changed("url") {
		cfg.Serial.URL = wsURL
	}
	if flags.Changed("username") {
		cfg.Serial.Username = wsUsername
	}
	if flags.Changed("no-ssl-verify") {
		cfg.Serial.NoSSLVerify = wsNoSSLVerify
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("forward-port") {
		cfg.Serial.ForwardPort = bridgeForwardPort
	}
	if flags.Changed("bus") {
		cfg.Bus.Driver = bridgeBusDriver
	}
	if flags.Changed("interface") {
		cfg.Bus.Interface = bridgeInterface
	}
	if flags.Changed("listen") {
		cfg.Status.Listen = bridgeListen
	}
	if bridgeNoTUI {
		off := false
		cfg.Status.TUI = &off
	}
}

// loadBridgeConfig loads, overrides, validates and normalizes the configuration
func loadBridgeConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	applyFlagOverrides(cmd, cfg)

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(cfg)

	if cfg.TUIEnabled() && cfg.Log.File == "" {
		cfg.Log.File = defaultTUILogFile
	}
	return cfg, nil
}

func runBridge(cmd *cobra.Command, args []string) error {
	cfg, err := loadBridgeConfig(cmd)
	if err != nil {
		return err
	}

	log, logCloser, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// --------------------
	// Bus
	// --------------------

	bus, busInfo, err := openBus(ctx, cfg.Bus)
	if err != nil {
		log.Error().Err(err).Msg("Bus unavailable")
		return err
	}
	defer bus.Close()
	log.Info().Str("bus", busInfo).Msg("Bus open")

	// --------------------
	// Serial endpoints
	// --------------------

	ep := openEndpoints(ctx, cfg, log)
	defer ep.Close()

	st := status.NewBlock()
	st.Reset()

	b, err := bridge.New(cfg.ToBridge(), bus, ep.reader, ep.forward, st, log)
	if err != nil {
		log.Error().Err(err).Msg("Bridge cannot start")
		return err
	}

	watchMaintenance(ctx, st, log)

	// --------------------
	// Run
	// --------------------

	var wg sync.WaitGroup
	var runErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		if runErr = b.Run(ctx); runErr != nil {
			log.Error().Err(runErr).Msg("Bridge failed")
			cancel()
		}
	}()

	if cfg.Status.Listen != "" {
		srv := status.NewServer(st, bus.Stats(), cfg.RefreshInterval(), log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.ListenAndServe(ctx, cfg.Status.Listen); err != nil {
				log.Error().Err(err).Msg("Status server failed")
			}
		}()
	}

	source := func() status.Snapshot { return st.Snapshot(bus.Stats()) }

	if cfg.TUIEnabled() {
		m := initialModel(ep.info, busInfo, cfg.RefreshInterval(), source)
		p := tea.NewProgram(m, tea.WithContext(ctx))
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			cancel()
			wg.Wait()
			return fmt.Errorf("status display: %w", err)
		}
	} else {
		fmt.Printf("n2kbridge - %s | %s\n", ep.info, busInfo)
		fmt.Printf("Press Ctrl+C to exit\n\n")
		runStatusReporter(ctx, os.Stdout, source, cfg.RefreshInterval())
	}

	cancel()
	wg.Wait()
	if runErr != nil {
		return runErr
	}
	log.Info().
		Uint64("sent", st.Sent()).
		Uint64("received", st.Received()).
		Uint64("dropped", st.Dropped()).
		Msg("Bridge stopped")
	return nil
}

// openBus opens the configured bus transport
func openBus(ctx context.Context, cfg config.BusConfig) (transport.Bus, string, error) {
	switch cfg.Driver {
	case config.DriverLoopback:
		bus := transport.NewLoopback(cfg.SendBuffer, cfg.ReceiveBuffer, true)
		go drainLoopback(ctx, bus)
		return bus, "Bus: loopback", nil

	default:
		bus, err := transport.OpenSocketCAN(cfg.Interface, cfg.SendBuffer, cfg.ReceiveBuffer)
		if err != nil {
			return nil, "", err
		}
		return bus, fmt.Sprintf("Bus: %s", cfg.Interface), nil
	}
}

// drainLoopback plays the rest of the bus, consuming sent frames
func drainLoopback(ctx context.Context, bus *transport.Loopback) {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			bus.Drain()
		}
	}
}

// endpoints holds the open serial side of the bridge. Either direction may
// be missing.
type endpoints struct {
	reader  bridge.SerialReader
	forward bridge.Forwarder
	links   []*transport.ByteLink
	info    string
}

func (e *endpoints) Close() error {
	for _, l := range e.links {
		l.Close()
	}
	return nil
}

// openEndpoints opens the read and forward endpoints. A failure disables
// that direction; the bridge refuses to start only when both are missing.
func openEndpoints(ctx context.Context, cfg *config.Config, log zerolog.Logger) *endpoints {
	ep := &endpoints{}
	s := cfg.Serial

	if s.URL != "" {
		conn, err := DialWebSocket(ctx, wsEndpoint{URL: s.URL, Username: s.Username, SkipVerify: s.NoSSLVerify})
		if err != nil {
			log.Warn().Err(err).Str("url", s.URL).Msg("WebSocket endpoint unavailable")
			ep.info = "WebSocket: unavailable"
			return ep
		}
		ep.both(transport.NewByteLink(conn, conn, s.WriteQueue, conn))
		ep.info = fmt.Sprintf("WebSocket: %s", s.URL)
		return ep
	}

	if cfg.SameChannel() {
		conn, err := OpenSerialConnection(s.ReadPort, s.Baud)
		if err != nil {
			log.Warn().Err(err).Str("port", s.ReadPort).Msg("Serial port unavailable")
			ep.info = "Serial: unavailable"
			return ep
		}
		ep.both(transport.NewByteLink(conn, conn, s.WriteQueue, conn))
		ep.info = fmt.Sprintf("Serial: %s @ %d baud", s.ReadPort, s.Baud)
		return ep
	}

	readInfo, forwardInfo := "-", "-"
	if s.ReadPort != "" {
		if conn, err := OpenSerialConnection(s.ReadPort, s.Baud); err != nil {
			log.Warn().Err(err).Str("port", s.ReadPort).Msg("Read port unavailable")
		} else {
			link := transport.NewByteLink(conn, nil, 0, conn)
			ep.links = append(ep.links, link)
			ep.reader = link
			readInfo = s.ReadPort
		}
	}
	if s.ForwardPort != "" {
		if conn, err := OpenSerialConnection(s.ForwardPort, s.Baud); err != nil {
			log.Warn().Err(err).Str("port", s.ForwardPort).Msg("Forward port unavailable")
		} else {
			link := transport.NewByteLink(nil, conn, s.WriteQueue, conn)
			ep.links = append(ep.links, link)
			ep.forward = link
			forwardInfo = s.ForwardPort
		}
	}
	ep.info = fmt.Sprintf("Serial: read %s, forward %s @ %d baud", readInfo, forwardInfo, s.Baud)
	return ep
}

func (e *endpoints) both(link *transport.ByteLink) {
	e.links = append(e.links, link)
	e.reader = link
	e.forward = link
}
