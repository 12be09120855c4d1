package http

import (
	"encoding/json"
	"net/http"
	"time"

	"flashcard-challenge-service/internal/app"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSHandler streams the countdown of a running attempt over a websocket.
type WSHandler struct {
	service  *app.ChallengeService
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewWSHandler(service *app.ChallengeService, log *zap.Logger) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{
		service: service,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeTimer pushes timer events of the attempt until it is finalized, then
// closes the socket. A "complete" message finalizes the attempt early.
func (h *WSHandler) ServeTimer(c *gin.Context) {
	challengeID := c.Param("id")
	attempt, err := h.service.Attempt(challengeID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.String("challenge_id", challengeID), zap.Error(err))
		return
	}
	defer conn.Close()

	events, cancel := attempt.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})

	// single writer: gorilla connections allow one concurrent writer
	go func() {
		defer close(writerDone)
		for {
			select {
			case event, ok := <-events:
				if !ok {
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, "attempt finalized"),
						time.Now().Add(time.Second))
					return
				}
				if err := conn.WriteJSON(outboundMessage[any]{Type: event.Type, Payload: event}); err != nil {
					h.log.Debug("ws write error", zap.Error(err))
					return
				}
			case msg := <-send:
				if err := conn.WriteJSON(msg); err != nil {
					h.log.Debug("ws write error", zap.Error(err))
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	reply := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "complete":
			// the result reaches the client as the finalized event
			if _, err := h.service.CompleteAttempt(c.Request.Context(), challengeID); err != nil {
				reply(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
			}
		default:
			reply(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
	}

	close(closeSignals)
	<-writerDone
}
