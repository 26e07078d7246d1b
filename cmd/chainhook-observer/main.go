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

// Command chainhook-observer runs the ingestion and control HTTP servers
// described by spec §6, wiring the block pool / indexer / predicate store
// / dispatcher / orchestrator stack together from a TOML configuration
// file.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rcrowley/go-metrics"
	"gopkg.in/urfave/cli.v1"

	"github.com/klaytn/chainhook-observer/api"
	"github.com/klaytn/chainhook-observer/blockpool"
	"github.com/klaytn/chainhook-observer/config"
	"github.com/klaytn/chainhook-observer/dispatcher"
	"github.com/klaytn/chainhook-observer/event"
	"github.com/klaytn/chainhook-observer/indexer"
	"github.com/klaytn/chainhook-observer/log"
	"github.com/klaytn/chainhook-observer/observer"
	"github.com/klaytn/chainhook-observer/occurrence"
	"github.com/klaytn/chainhook-observer/predicate"
)

var logger = log.NewModuleLogger(log.CMD)

var configFileFlag = cli.StringFlag{
	Name:  "config",
	Usage: "TOML configuration file",
}

var ingestionPortFlag = cli.IntFlag{
	Name:  "ingestion-port",
	Usage: "overrides the config file's ingestion_port",
}

var controlPortFlag = cli.IntFlag{
	Name:  "control-port",
	Usage: "overrides the config file's control_port",
}

var verboseFlag = cli.BoolFlag{
	Name:  "verbose",
	Usage: "raise the global log level to Debug",
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "chainhook-observer"
	app.Usage = "blockchain event observer and chainhook dispatcher for coupled BTC/STX chains"
	app.Flags = []cli.Flag{configFileFlag, ingestionPortFlag, controlPortFlag, verboseFlag}
	app.Action = run
	return app
}

func loadConfig(ctx *cli.Context) config.Config {
	var cfg config.Config
	if path := ctx.String(configFileFlag.Name); path != "" {
		cfg = config.MustLoad(path)
	} else {
		cfg = config.Default()
	}
	if ctx.IsSet(ingestionPortFlag.Name) {
		cfg.IngestionPort = ctx.Int(ingestionPortFlag.Name)
	}
	if ctx.IsSet(controlPortFlag.Name) {
		cfg.ControlPort = ctx.Int(controlPortFlag.Name)
	}
	return cfg
}

func run(ctx *cli.Context) error {
	cfg := loadConfig(ctx)
	if ctx.Bool(verboseFlag.Name) {
		log.SetLevel(log.LvlDebug)
	}
	if !cfg.DisplayLogs {
		log.SetLevel(log.LvlCrit)
	}

	ix := indexer.New(canonicalNormalizer{}, blockpool.DefaultConfirmedDepth, blockpool.DefaultConfirmedDepth)
	store := predicate.NewStore(cfg.Operators)
	tracker := occurrence.New()

	var proofClient dispatcher.ProofClient
	if cfg.BtcNode.RpcURL != "" {
		proofClient = newBtcRPCProofClient(cfg.BtcNode, http.DefaultClient)
	}

	outbox := &event.Feed{}
	metricsRegistry := metrics.NewRegistry()
	disp := dispatcher.New(http.DefaultClient, proofClient, outbox, false, dispatcher.NewMetrics(metricsRegistry))
	defer disp.Close()

	var handlers []observer.EventHandler
	for _, h := range cfg.EventHandlers {
		if h.Kind == "HTTP" {
			handlers = append(handlers, observer.NewHTTPEventHandler(h.URL, nil))
		}
	}

	orch := observer.New(ix, store, tracker, disp, outbox, cfg.HooksEnabled, handlers)
	if err := orch.LoadInitialPredicates(cfg.InitialPredicates); err != nil {
		logger.Crit("failed to load initial predicates", "err", err)
	}
	orch.Start()
	defer orch.Stop()

	ingestionRouter := api.NewIngestionRouter(api.IngestionConfig{
		Orchestrator:       orch,
		BtcRpcProxyEnabled: cfg.BtcRpcProxyEnabled,
		BtcNodeUsername:    cfg.BtcNode.Username,
		BtcNodePassword:    cfg.BtcNode.Password,
		BtcNodeRpcURL:      cfg.BtcNode.RpcURL,
		HTTPClient:         http.DefaultClient,
	})
	controlRouter := api.NewControlRouter(api.ControlConfig{Orchestrator: orch, Store: store})

	servers := api.NewServers(
		fmt.Sprintf(":%d", cfg.IngestionPort),
		fmt.Sprintf(":%d", cfg.ControlPort),
		ingestionRouter,
		controlRouter,
	)

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	logger.Info("chainhook-observer starting",
		"ingestion_port", cfg.IngestionPort, "control_port", cfg.ControlPort, "hooks_enabled", cfg.HooksEnabled)

	return servers.Run(runCtx)
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
