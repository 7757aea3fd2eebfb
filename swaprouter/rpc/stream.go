package rpc

import (
	"net/http"
	"slices"
	"time"

	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/models"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/protocol"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/settlement"
	"github.com/gorilla/websocket"
)

// StreamPath serves recorded settlements over a websocket as they happen.
const StreamPath = "/v1/settlements/stream"

const (
	streamWriteTimeout = 10 * time.Second
	streamPongTimeout  = 60 * time.Second
	streamPingInterval = 30 * time.Second
)

type streamHandler struct {
	hub      *settlement.Hub
	resolve  func(string) (protocol.Address, error)
	upgrader websocket.Upgrader
}

func newStreamHandler(hub *settlement.Hub, resolve func(string) (protocol.Address, error), allowedOrigins []string) *streamHandler {
	return &streamHandler{
		hub:     hub,
		resolve: resolve,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*") {
					return true
				}
				return slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// ServeHTTP upgrades the connection and forwards settlements, optionally only
// those of ?sender=.
func (h *streamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var filter *protocol.Address
	if s := r.URL.Query().Get("sender"); s != "" {
		addr, err := h.resolve(s)
		if err != nil {
			http.Error(w, "invalid sender: "+err.Error(), http.StatusBadRequest)
			return
		}
		filter = &addr
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		Logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	events, cancel := h.hub.Subscribe()
	defer cancel()
	streamSubscribers.Inc()
	defer streamSubscribers.Dec()

	// reader: handles pongs and notices the client going away
	done := make(chan struct{})
	_ = conn.SetReadDeadline(time.Now().Add(streamPongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongTimeout))
	})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case st, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(streamWriteTimeout))
				return
			}
			if filter != nil && st.Sender != *filter {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteJSON(models.FromSettlement(&st)); err != nil {
				Logger.Debug().Err(err).Msg("settlement stream write failed")
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteTimeout)); err != nil {
				return
			}
		}
	}
}
