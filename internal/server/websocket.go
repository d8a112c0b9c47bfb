package server

import (
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/spigell/insurance-advisor/internal/logger"
)

const (
	messageQuestion = "question"
	messageAnswer   = "answer"
	messageError    = "error"
	messagePing     = "ping"
	messagePong     = "pong"
	messageSystem   = "system"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

type wsMessage struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
	Status  int    `json:"status,omitempty"`
}

// chatWebSocket serves chat turns over a websocket. Turns are handled one at a
// time so answers arrive in question order.
func (s *Server) chatWebSocket(c echo.Context) error {
	id := c.Param("id")
	ctx := c.Request().Context()

	if _, err := s.deps.Sessions.Get(ctx, id); err != nil {
		return sessionError(err)
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	log := logger.WithSession(s.logger, id)
	log.Debug("websocket chat connected")

	if err := ws.WriteJSON(wsMessage{Type: messageSystem, Content: "Connected. Ask me anything about insurance."}); err != nil {
		return nil
	}

	for {
		var msg wsMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("websocket read failed", zap.Error(err))
			}
			return nil
		}

		var reply wsMessage
		switch msg.Type {
		case messageQuestion:
			answer, _, err := s.ask(ctx, id, msg.Content)
			if err != nil {
				reply = errorMessage(err)
			} else {
				reply = wsMessage{Type: messageAnswer, Content: answer}
			}
		case messagePing:
			reply = wsMessage{Type: messagePong}
		default:
			reply = wsMessage{Type: messageError, Error: "unknown message type", Status: http.StatusBadRequest}
		}

		if err := ws.WriteJSON(reply); err != nil {
			log.Warn("websocket write failed", zap.Error(err))
			return nil
		}
	}
}

func errorMessage(err error) wsMessage {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		if text, ok := httpErr.Message.(string); ok {
			return wsMessage{Type: messageError, Error: text, Status: httpErr.Code}
		}
	}
	return wsMessage{Type: messageError, Error: "internal error", Status: http.StatusInternalServerError}
}
