// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Thermoquad/n2kbridge/pkg/status"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var (
	watchMaintenanceFlag bool
	watchText            bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Show the status of a running bridge",
	Long: `Connect to a bridge started with --listen and show its status display.

The bridge pushes a status snapshot every refresh period. Use --url to point
at the bridge's status address:

  n2kbridge watch --url ws://bridge.local:8080/

With --maintenance the "Upload In Progress" screen is shown regardless of the
bridge's own maintenance flag, for use while the bridge firmware is updated.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().BoolVar(&watchMaintenanceFlag, "maintenance", false, "Force the maintenance screen")
	watchCmd.Flags().BoolVar(&watchText, "text", false, "Print status lines instead of the status display")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if wsURL == "" {
		return fmt.Errorf("--url must be specified")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := flagEndpoint().dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	connInfo := fmt.Sprintf("Watching: %s", wsURL)
	adjust := func(s status.Snapshot) status.Snapshot {
		if watchMaintenanceFlag {
			s.Maintenance = true
		}
		return s
	}

	if watchText {
		fmt.Printf("n2kbridge - %s\n", connInfo)
		fmt.Printf("Press Ctrl+C to exit\n\n")
		printer := &statusPrinter{out: os.Stdout}
		return status.ReadSnapshots(ctx, conn, func(s status.Snapshot) {
			printer.print(adjust(s))
		})
	}

	m := initialModel(connInfo, "remote", 500*time.Millisecond, nil)
	p := tea.NewProgram(m, tea.WithContext(ctx))

	go func() {
		err := status.ReadSnapshots(ctx, conn, func(s status.Snapshot) {
			p.Send(snapshotMsg(adjust(s)))
		})
		if err != nil {
			p.Send(disconnectedMsg{err: err})
		}
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("status display: %w", err)
	}
	return nil
}
