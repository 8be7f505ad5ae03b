package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/loganszeto/udpkv/internal/protocol"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// WSHandler speaks the datagram protocol over WebSocket messages. The
// shutdown control message is not honoured here; it is dispatched like any
// other unknown command. A message one byte over the limit is answered with
// too-large; anything longer closes the connection.
type WSHandler struct {
	disp  *Dispatcher
	log   *zap.Logger
	limit int
}

func NewWSHandler(disp *Dispatcher, bufferSize int, logger *zap.Logger) *WSHandler {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{disp: disp, log: logger, limit: bufferSize}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(int64(h.limit) + 1)

	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			if errors.Is(err, websocket.ErrReadLimit) {
				h.disp.stats.RecordError()
				h.log.Warn("websocket message too large", zap.Int("limit", h.limit))
			}
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}

		var resp protocol.Response
		if len(payload) > h.limit {
			h.disp.stats.RecordError()
			resp = protocol.BadRequest(tooLargeBody)
		} else if req, err := protocol.Decode(payload); err != nil {
			h.disp.stats.RecordError()
			resp = protocol.BadRequest("")
		} else {
			resp = h.disp.Handle(req)
		}

		if err := conn.WriteMessage(websocket.TextMessage, protocol.Encode(resp)); err != nil {
			return
		}
	}
}

// NewHTTPHandler serves the gateway on /ws, metrics from reg on /metrics
// and a liveness probe on /healthz.
func NewHTTPHandler(ws *WSHandler, reg prometheus.Gatherer, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/ws", ws)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return withLogging(mux, logger)
}

func withLogging(next http.Handler, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(start)))
	})
}
