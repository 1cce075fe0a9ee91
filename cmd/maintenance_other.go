// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

//go:build !unix

package cmd

import (
	"context"

	"github.com/Thermoquad/n2kbridge/pkg/status"
	"github.com/rs/zerolog"
)

// watchMaintenance is a no-op without SIGUSR1
func watchMaintenance(ctx context.Context, st *status.Block, log zerolog.Logger) {
	log.Debug().Msg("Maintenance signal not supported on this platform")
}
