// Package evtgrp maintains the group of handlers for node event streaming.
package evtgrp

import (
	"context"
	"net/http"
	"time"

	"github.com/btc2/ledgerchain/foundation/events"
	"github.com/btc2/ledgerchain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// pingInterval is how often an idle connection is checked.
const pingInterval = time.Second

// Handlers manages the set of event endpoints.
type Handlers struct {
	Log  *zap.SugaredLogger
	WS   websocket.Upgrader
	Evts *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	// Need this to handle CORS on the websocket.
	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	// This upgrades the HTTP connection to a websocket connection.
	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	// This provides a channel for receiving events from the node.
	ch := h.Evts.Acquire(v.TraceID)
	defer func() {
		dropped, err := h.Evts.Release(v.TraceID)
		if err != nil {
			return
		}
		h.Log.Infow("websocket released", "traceid", v.TraceID, "dropped", dropped)
	}()

	// Set a ticker to ping the client to keep the connection alive.
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:

			// If the channel is closed, release the websocket.
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}
