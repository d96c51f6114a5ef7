// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package input

import (
	"bufio"
	"context"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

var consoleKeys = map[string]Source{
	"1":  Primary,
	"b1": Primary,
	"2":  Secondary,
	"b2": Secondary,
}

// WatchLines turns lines read from r into button edges, for bench runs
// without GPIO: "1" or "b1" presses the primary button, "2" or "b2" the
// secondary. Other lines are ignored. It returns at EOF, on a read error, or
// after the first line read once ctx has ended.
func WatchLines(ctx context.Context, b *Buttons, r io.Reader, now Clock) error {
	log.Println("input: reading button presses from console (1=primary, 2=secondary)")
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		src, ok := consoleKeys[strings.ToLower(strings.TrimSpace(scanner.Text()))]
		if !ok {
			continue
		}
		if b.Edge(src, now()) {
			log.Debugf("input: %s press accepted", src)
		}
	}
	return scanner.Err()
}
