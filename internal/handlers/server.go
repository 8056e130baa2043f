// internal/handlers/server.go
package handlers

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/falseshow/internal/cache"
	"github.com/jason-s-yu/falseshow/internal/database"
	"github.com/jason-s-yu/falseshow/internal/game"
	"github.com/jason-s-yu/falseshow/internal/table"
	"github.com/sirupsen/logrus"
)

// ServerMessage is everything the server sends over a table socket.
type ServerMessage struct {
	Type    string          `json:"type"` // table, state, event, result, error, pong
	Table   *table.View     `json:"table,omitempty"`
	Game    *game.GameState `json:"game,omitempty"`
	Event   *game.Event     `json:"event,omitempty"`
	Result  interface{}     `json:"result,omitempty"`
	Message string          `json:"message,omitempty"`
}

// TableServer owns the live tables and the sockets attached to them.
type TableServer struct {
	Store        *table.Store
	Logger       *logrus.Logger
	ThinkingTime time.Duration

	// Persist enables the Redis and Postgres hooks on new tables.
	Persist bool

	rngMu sync.Mutex
	rng   *rand.Rand

	hubMu sync.Mutex
	hubs  map[uuid.UUID]map[string]*client
}

func NewTableServer(logger *logrus.Logger) *TableServer {
	return &TableServer{
		Store:  table.NewStore(),
		Logger: logger,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		hubs:   make(map[uuid.UUID]map[string]*client),
	}
}

// NewTable creates a table, wires its hooks and registers it.
func (s *TableServer) NewTable(settings game.Settings) (*table.Table, error) {
	for {
		opts := []table.Option{
			table.WithRand(s.newRand()),
			table.WithLogger(s.Logger),
		}
		if s.ThinkingTime > 0 {
			opts = append(opts, table.WithThinkingTime(s.ThinkingTime))
		}
		t, err := table.New(settings, opts...)
		if err != nil {
			return nil, err
		}
		if s.Store.CodeInUse(t.Code) {
			continue
		}
		s.wire(t)
		s.Store.Add(t)
		return t, nil
	}
}

func (s *TableServer) newRand() *rand.Rand {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return rand.New(rand.NewSource(s.rng.Int63()))
}

// wire connects a table's hooks to the sockets and, when Persist is set, to
// Redis and Postgres. Hooks run under the table lock, so everything here
// either queues or runs in its own goroutine.
func (s *TableServer) wire(t *table.Table) {
	id := t.ID
	log := s.Logger.WithField("table", id.String())

	t.EventFn = func(ev game.Event) {
		s.broadcast(id, ServerMessage{Type: "event", Event: &ev})
	}
	t.StateFn = func(playerID string, gs game.GameState) {
		s.send(id, playerID, ServerMessage{Type: "state", Game: &gs})
	}

	if !s.Persist {
		return
	}

	code := t.Code
	t.ActionFn = func(rec cache.GameActionRecord) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := cache.PublishGameAction(ctx, rec); err != nil {
				log.Warnf("publish action %d: %v", rec.ActionIndex, err)
			}
		}()
	}
	t.SnapshotFn = func(snap game.Snapshot) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := cache.PublishSnapshot(ctx, id, snap); err != nil {
				log.Warnf("publish snapshot: %v", err)
			}
		}()
	}
	t.RoundEndFn = func(res game.RoundResult, snap game.Snapshot) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := database.UpsertTable(ctx, id, code, snap.Settings); err != nil {
				log.Errorf("record table: %v", err)
				return
			}
			if err := database.RecordRoundResult(ctx, id, res); err != nil {
				log.Errorf("record round %d: %v", res.Round, err)
			}
			if res.GameOver {
				if err := database.StoreFinalGameState(ctx, id, res.Winner, snap); err != nil {
					log.Errorf("store final state: %v", err)
				}
			}
		}()
	}
}

// RemoveTable drops a table and disconnects its sockets.
func (s *TableServer) RemoveTable(id uuid.UUID) {
	s.Store.Delete(id)
	s.hubMu.Lock()
	clients := s.hubs[id]
	delete(s.hubs, id)
	s.hubMu.Unlock()
	for _, c := range clients {
		c.close(websocket.StatusGoingAway, "table closed")
	}
}

// client is one socket with an ordered outbound queue.
type client struct {
	conn *websocket.Conn
	out  chan []byte
	done chan struct{}
	once sync.Once
}

const clientQueueSize = 64

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn: conn,
		out:  make(chan []byte, clientQueueSize),
		done: make(chan struct{}),
	}
}

// writeLoop drains the queue until the client is closed.
func (c *client) writeLoop(log logrus.FieldLogger) {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.out:
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			err := c.conn.Write(ctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				log.Warnf("websocket write failed: %v", err)
				c.close(websocket.StatusInternalError, "write failed")
				return
			}
		}
	}
}

func (c *client) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	case c.out <- data:
		return true
	default:
		return false
	}
}

func (c *client) close(code websocket.StatusCode, reason string) {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close(code, reason)
	})
}

// attach registers a socket for a seat, replacing any older one.
func (s *TableServer) attach(tableID uuid.UUID, userID string, c *client) {
	s.hubMu.Lock()
	conns, ok := s.hubs[tableID]
	if !ok {
		conns = make(map[string]*client)
		s.hubs[tableID] = conns
	}
	old := conns[userID]
	conns[userID] = c
	s.hubMu.Unlock()
	if old != nil {
		old.close(websocket.StatusPolicyViolation, "connected elsewhere")
	}
}

func (s *TableServer) detach(tableID uuid.UUID, userID string, c *client) {
	s.hubMu.Lock()
	defer s.hubMu.Unlock()
	if conns, ok := s.hubs[tableID]; ok && conns[userID] == c {
		delete(conns, userID)
	}
}

func (s *TableServer) send(tableID uuid.UUID, userID string, msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.Logger.Errorf("failed to marshal %s message: %v", msg.Type, err)
		return
	}
	s.hubMu.Lock()
	c := s.hubs[tableID][userID]
	s.hubMu.Unlock()
	if c != nil && !c.enqueue(data) {
		s.Logger.WithFields(logrus.Fields{"table": tableID, "user": userID}).Warn("dropping message for slow client")
	}
}

func (s *TableServer) broadcast(tableID uuid.UUID, msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.Logger.Errorf("failed to marshal %s message: %v", msg.Type, err)
		return
	}
	s.hubMu.Lock()
	targets := make([]*client, 0, len(s.hubs[tableID]))
	for _, c := range s.hubs[tableID] {
		targets = append(targets, c)
	}
	s.hubMu.Unlock()
	for _, c := range targets {
		c.enqueue(data)
	}
}

// broadcastTable sends each connected seat its own view of the table.
func (s *TableServer) broadcastTable(t *table.Table) {
	s.hubMu.Lock()
	users := make([]string, 0, len(s.hubs[t.ID]))
	for id := range s.hubs[t.ID] {
		users = append(users, id)
	}
	s.hubMu.Unlock()
	for _, id := range users {
		v := t.View(id)
		s.send(t.ID, id, ServerMessage{Type: "table", Table: &v})
	}
}
