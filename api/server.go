// Copyright 2026 The chainhook-observer Authors
// This file is part of the chainhook-observer library.
//
// The chainhook-observer library is free software: you can redistribute it
// and/or modify it under the terms of the GNU Lesser General Public License
// as published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// The chainhook-observer library is distributed in the hope that it will be
// useful, but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the GNU Lesser
// General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the chainhook-observer library. If not, see
// <http://www.gnu.org/licenses/>.

package api

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// shutdownGrace bounds how long the two ingress servers get to drain
// in-flight requests once Run's context is cancelled.
const shutdownGrace = 5 * time.Second

// Servers runs the ingestion and control HTTP servers (spec §5 "two
// independent HTTP ingress servers ... run as separate tasks") and
// coordinates their graceful shutdown.
type Servers struct {
	ingestion *http.Server
	control   *http.Server
}

// NewServers builds both servers bound to the given addresses.
func NewServers(ingestionAddr, controlAddr string, ingestionHandler, controlHandler http.Handler) *Servers {
	return &Servers{
		ingestion: &http.Server{Addr: ingestionAddr, Handler: ingestionHandler},
		control:   &http.Server{Addr: controlAddr, Handler: controlHandler},
	}
}

// Run blocks serving both servers until ctx is cancelled or one of them
// fails to start, then drains both within shutdownGrace.
func (s *Servers) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.ingestion.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := s.control.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		_ = s.ingestion.Shutdown(shutdownCtx)
		_ = s.control.Shutdown(shutdownCtx)
		return nil
	})

	return g.Wait()
}
