// internal/handlers/table_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/falseshow/internal/ai"
	"github.com/jason-s-yu/falseshow/internal/cards"
	"github.com/jason-s-yu/falseshow/internal/game"
	"github.com/jason-s-yu/falseshow/internal/middleware"
	"github.com/jason-s-yu/falseshow/internal/table"
	"github.com/sirupsen/logrus"
)

// Subprotocol must be requested by table socket clients.
const Subprotocol = "falseshow"

// ClientMessage is everything a client may send over a table socket.
type ClientMessage struct {
	Type       string             `json:"type"`
	Cards      []cards.Card       `json:"cards,omitempty"`
	Choice     game.PenaltyChoice `json:"choice,omitempty"`
	Difficulty string             `json:"difficulty,omitempty"`
}

// TableWSHandler upgrades GET /table/ws/{id}, seats the caller and runs the
// read loop until the socket closes.
func TableWSHandler(logger *logrus.Logger, s *TableServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idStr := strings.Trim(strings.TrimPrefix(r.URL.Path, "/table/ws/"), "/")
		tableID, err := uuid.Parse(idStr)
		if err != nil {
			http.Error(w, "Invalid table id", http.StatusBadRequest)
			return
		}
		t, ok := s.Store.Get(tableID)
		if !ok {
			http.Error(w, "Table not found", http.StatusNotFound)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{Subprotocol},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			logger.Warnf("WebSocket accept error for table %s: %v", tableID, err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

		if c.Subprotocol() != Subprotocol {
			c.Close(BadSubprotocolError, "Client must use the 'falseshow' subprotocol.")
			return
		}

		guest, err := authenticate(r)
		if err != nil {
			logger.Warnf("authentication failed for table %s: %v", tableID, err)
			c.Close(InvalidAuthTokenError, "Authentication failed.")
			return
		}
		if _, err := t.Join(guest.UserID, guest.Name); err != nil {
			code := SeatUnavailableError
			if errors.Is(err, table.ErrTableClosed) {
				code = InvalidTableIDError
			}
			c.Close(code, err.Error())
			return
		}

		cl := newClient(c)
		log := logger.WithFields(logrus.Fields{"table": tableID.String(), "user": guest.UserID})
		go cl.writeLoop(log)
		s.attach(tableID, guest.UserID, cl)
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, tableID.String(), guest.UserID)

		s.broadcastTable(t)
		if v := t.View(guest.UserID); v.Game != nil {
			s.send(tableID, guest.UserID, ServerMessage{Type: "state", Game: v.Game})
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		readErr := readTableMessages(ctx, c, s, t, guest.UserID, log)

		s.detach(tableID, guest.UserID, cl)
		cl.close(websocket.StatusNormalClosure, "")
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, tableID.String(), guest.UserID, readErr)
	}
}

// readTableMessages routes inbound JSON to the table until the socket fails.
func readTableMessages(ctx context.Context, c *websocket.Conn, s *TableServer, t *table.Table, userID string, log logrus.FieldLogger) error {
	reply := func(msg ServerMessage) { s.send(t.ID, userID, msg) }
	replyErr := func(err error) { reply(ServerMessage{Type: "error", Message: err.Error()}) }

	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if msgType != websocket.MessageText {
			log.Warnf("ignoring non-text message type %d", msgType)
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			reply(ServerMessage{Type: "error", Message: "Invalid JSON format."})
			continue
		}
		log.Debugf("received %s", msg.Type)

		switch msg.Type {
		case "ping":
			reply(ServerMessage{Type: "pong"})

		case "join":
			v := t.View(userID)
			reply(ServerMessage{Type: "table", Table: &v})

		case "add_bot":
			d, err := ai.ParseDifficulty(msg.Difficulty)
			if err != nil {
				replyErr(err)
				continue
			}
			if _, err := t.AddBot(d); err != nil {
				replyErr(err)
				continue
			}
			s.broadcastTable(t)

		case string(table.CmdStartRound), string(table.CmdPlayCards), string(table.CmdCallShow), string(table.CmdPenaltyChoice):
			res, err := t.Apply(table.Command{
				Type:     table.CommandType(msg.Type),
				PlayerID: userID,
				Cards:    msg.Cards,
				Choice:   msg.Choice,
			})
			if err != nil {
				replyErr(err)
				continue
			}
			reply(ServerMessage{Type: "result", Result: res})
			if msg.Type == string(table.CmdStartRound) {
				s.broadcastTable(t)
			}

		default:
			reply(ServerMessage{Type: "error", Message: "Unknown message type: " + msg.Type})
		}
	}
}
