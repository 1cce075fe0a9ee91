// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

//go:build unix

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Thermoquad/n2kbridge/pkg/status"
	"github.com/rs/zerolog"
)

// watchMaintenance toggles the maintenance flag on every SIGUSR1
func watchMaintenance(ctx context.Context, st *status.Block, log zerolog.Logger) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGUSR1)

	go func() {
		defer signal.Stop(sig)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sig:
				on := st.ToggleMaintenance()
				log.Info().Bool("maintenance", on).Msg("Maintenance toggled")
			}
		}
	}()
}
