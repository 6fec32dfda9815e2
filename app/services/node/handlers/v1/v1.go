// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/btc2/ledgerchain/app/services/node/handlers/v1/evtgrp"
	"github.com/btc2/ledgerchain/app/services/node/handlers/v1/rpcgrp"
	"github.com/btc2/ledgerchain/business/web/mid"
	"github.com/btc2/ledgerchain/foundation/blockchain/ledger"
	"github.com/btc2/ledgerchain/foundation/events"
	"github.com/btc2/ledgerchain/foundation/web"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log    *zap.SugaredLogger
	Ledger *ledger.Ledger
	Evts   *events.Events
}

// PublicRoutes binds all the version 1 public routes. The JSON-RPC endpoint
// lives at the root since that is where wallets post their calls.
func PublicRoutes(app *web.App, cfg Config) {
	rpc := rpcgrp.Handlers{
		Log:    cfg.Log,
		Ledger: cfg.Ledger,
	}

	app.Handle(http.MethodPost, "", "/", rpc.RPC, mid.Cors("*"))
	app.Handle(http.MethodOptions, "", "/", rpc.RPC, mid.Cors("*"))

	evt := evtgrp.Handlers{
		Log:  cfg.Log,
		Evts: cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", evt.Events)
}
