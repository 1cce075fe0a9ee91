// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Thermoquad/n2kbridge/pkg/status"
)

// formatStatusLine renders one snapshot as a single text line
func formatStatusLine(s status.Snapshot) string {
	return fmt.Sprintf("[%s] St: %d | Sent: %d | Received: %d | Forwarded: %d | Dropped: %d | Framing Errors: %d | Can Rx: %d | Can Tx: %d\n",
		s.Taken.Format("15:04:05.000"),
		s.Devices, s.Sent, s.Received, s.Forwarded, s.Dropped, s.FramingErrors, s.CANRx, s.CANTx)
}

// sameCounters compares two snapshots ignoring when they were taken
func sameCounters(a, b status.Snapshot) bool {
	a.Taken = time.Time{}
	b.Taken = time.Time{}
	return a == b
}

// statusPrinter prints a status line whenever the counters change. While
// maintenance is set only the maintenance banner is shown.
type statusPrinter struct {
	out     io.Writer
	last    status.Snapshot
	started bool
}

func (p *statusPrinter) print(s status.Snapshot) {
	switch {
	case s.Maintenance && (!p.started || !p.last.Maintenance):
		fmt.Fprintf(p.out, "[%s] Upload In Progress\n", s.Taken.Format("15:04:05.000"))
	case s.Maintenance:
		// suppressed
	case !p.started || !sameCounters(s, p.last):
		fmt.Fprint(p.out, formatStatusLine(s))
	}
	p.last = s
	p.started = true
}

// runStatusReporter prints snapshots from source every refresh period
// until ctx is cancelled
func runStatusReporter(ctx context.Context, out io.Writer, source func() status.Snapshot, refresh time.Duration) {
	ticker := time.NewTicker(refresh)
	defer ticker.Stop()

	printer := &statusPrinter{out: out}
	for {
		printer.print(source())

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
