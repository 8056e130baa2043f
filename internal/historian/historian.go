// Package historian drains the table action queue into Postgres in batches
// and marks tables abandoned once their actions stop arriving.
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/falseshow/internal/cache"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Config tunes batching and the inactivity threshold.
type Config struct {
	Queue      string
	BatchSize  int
	FlushDelay time.Duration
	Inactivity time.Duration
	// MaxPending caps the records held while the database is failing. The
	// oldest are dropped past it.
	MaxPending int
}

// DefaultMaxPending is used when Config.MaxPending is not set.
const DefaultMaxPending = 10000

// Service batches action records between the queue and the database.
type Service struct {
	cfg Config
	rdb *redis.Client
	log logrus.FieldLogger

	// Sink persists a batch. Abandon marks an idle table.
	Sink    func(ctx context.Context, batch []cache.GameActionRecord) error
	Abandon func(ctx context.Context, tableID uuid.UUID) error

	flushMu sync.Mutex // one flush at a time
	batchMu sync.Mutex
	batch   []cache.GameActionRecord

	activityMu   sync.Mutex
	lastActivity map[uuid.UUID]time.Time
	finished     map[uuid.UUID]bool
}

// New builds a service. rdb may be nil when records are fed through Add.
func New(cfg Config, rdb *redis.Client, log logrus.FieldLogger) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.MaxPending < cfg.BatchSize {
		cfg.MaxPending = DefaultMaxPending
		if cfg.MaxPending < cfg.BatchSize {
			cfg.MaxPending = cfg.BatchSize
		}
	}
	return &Service{
		cfg:          cfg,
		rdb:          rdb,
		log:          log,
		batch:        make([]cache.GameActionRecord, 0, cfg.BatchSize),
		lastActivity: make(map[uuid.UUID]time.Time),
		finished:     make(map[uuid.UUID]bool),
	}
}

// Run reads the queue until ctx is done, flushing on size and on a timer,
// and sweeps for abandoned tables once a minute.
func (s *Service) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.readLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		s.tickLoop(ctx)
	}()
	wg.Wait()

	// drain what is left with a fresh context
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Flush(flushCtx)
}

func (s *Service) readLoop(ctx context.Context) {
	for ctx.Err() == nil {
		res, err := s.rdb.BLPop(ctx, 3*time.Second, s.cfg.Queue).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				s.log.Errorf("BLPop: %v", err)
				time.Sleep(time.Second)
			}
			continue
		}
		// res[0] is the queue name and res[1] the payload
		if len(res) < 2 {
			continue
		}
		var rec cache.GameActionRecord
		if err := json.Unmarshal([]byte(res[1]), &rec); err != nil {
			s.log.Warnf("invalid action record: %v", err)
			continue
		}
		s.Add(ctx, rec, time.Now())
	}
}

func (s *Service) tickLoop(ctx context.Context) {
	flush := time.NewTicker(s.cfg.FlushDelay)
	defer flush.Stop()
	sweep := time.NewTicker(time.Minute)
	defer sweep.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-flush.C:
			s.Flush(ctx)
		case now := <-sweep.C:
			s.SweepInactive(ctx, now)
		}
	}
}

// Add queues one record, flushing when the batch is full.
func (s *Service) Add(ctx context.Context, rec cache.GameActionRecord, now time.Time) {
	if rec.ActionType == cache.ActionGameOver {
		s.MarkFinished(rec.TableID)
	} else {
		s.activityMu.Lock()
		if !s.finished[rec.TableID] {
			s.lastActivity[rec.TableID] = now
		}
		s.activityMu.Unlock()
	}

	s.batchMu.Lock()
	s.batch = append(s.batch, rec)
	full := len(s.batch) >= s.cfg.BatchSize
	s.batchMu.Unlock()

	if full {
		s.Flush(ctx)
	}
}

// Flush writes the pending batch. Flushes never overlap, so a failed batch
// goes back in front of exactly the records queued while it was in flight.
func (s *Service) Flush(ctx context.Context) {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return
	}
	pending := s.batch
	s.batch = make([]cache.GameActionRecord, 0, s.cfg.BatchSize)
	s.batchMu.Unlock()

	if err := s.Sink(ctx, pending); err != nil {
		s.log.Errorf("flush %d actions: %v", len(pending), err)
		s.batchMu.Lock()
		s.batch = append(pending, s.batch...)
		if over := len(s.batch) - s.cfg.MaxPending; over > 0 {
			s.log.Errorf("dropping %d oldest actions, %d still pending", over, s.cfg.MaxPending)
			s.batch = append([]cache.GameActionRecord(nil), s.batch[over:]...)
		}
		s.batchMu.Unlock()
		return
	}
	s.log.Debugf("flushed %d actions", len(pending))
}

// Pending reports how many records wait for the next flush.
func (s *Service) Pending() int {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	return len(s.batch)
}

// MarkFinished stops inactivity tracking for a table that ended normally.
func (s *Service) MarkFinished(tableID uuid.UUID) {
	s.activityMu.Lock()
	defer s.activityMu.Unlock()
	s.finished[tableID] = true
	delete(s.lastActivity, tableID)
}

// SweepInactive abandons every tracked table idle longer than the threshold.
func (s *Service) SweepInactive(ctx context.Context, now time.Time) []uuid.UUID {
	s.activityMu.Lock()
	var idle []uuid.UUID
	for id, last := range s.lastActivity {
		if now.Sub(last) > s.cfg.Inactivity && !s.finished[id] {
			idle = append(idle, id)
			delete(s.lastActivity, id)
		}
	}
	s.activityMu.Unlock()

	for _, id := range idle {
		if s.Abandon == nil {
			continue
		}
		if err := s.Abandon(ctx, id); err != nil {
			s.log.Errorf("mark table %s abandoned: %v", id, err)
			continue
		}
		s.log.Infof("marked table %s abandoned", id)
	}
	return idle
}
