// Package runstore keeps the results of asynchronous pipeline runs in
// memory for later polling, expiring completed entries after a TTL.
package runstore

import (
	"log/slog"
	"sync"
	"time"

	"github.com/athellier/larecherche/agent"
)

type Status string

const (
	StatusStarted   Status = "started"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

type Execution struct {
	ID          string        `json:"id"`
	Query       string        `json:"query"`
	Status      Status        `json:"status"`
	Output      *agent.Output `json:"output,omitempty"`
	Error       string        `json:"error,omitempty"`
	SubmittedAt string        `json:"submitted_at"`
	CompletedAt string        `json:"completed_at,omitempty"`
}

type Store struct {
	mu         sync.RWMutex
	executions map[string]*Execution

	ttl     time.Duration
	ticker  *time.Ticker
	stop    chan struct{}
	stopped sync.Once
	logger  *slog.Logger
}

func New(ttl, cleanupInterval time.Duration, logger *slog.Logger) *Store {
	s := &Store{
		executions: make(map[string]*Execution),
		ttl:        ttl,
		stop:       make(chan struct{}),
		logger:     logger,
	}

	s.ticker = time.NewTicker(cleanupInterval)
	go func() {
		for {
			select {
			case <-s.ticker.C:
				s.cleanup()
			case <-s.stop:
				s.ticker.Stop()
				return
			}
		}
	}()

	return s
}

func (s *Store) Close() {
	s.stopped.Do(func() { close(s.stop) })
}

func (s *Store) Put(exec *Execution) {
	s.mu.Lock()
	s.executions[exec.ID] = exec
	s.mu.Unlock()
}

func (s *Store) Get(id string) (*Execution, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	exec, ok := s.executions[id]
	return exec, ok
}

// Complete marks an execution finished with the pipeline's output.
func (s *Store) Complete(id string, out agent.Output) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exec, ok := s.executions[id]
	if !ok {
		return
	}
	exec.Output = &out
	exec.CompletedAt = time.Now().UTC().Format(time.RFC3339)
	if out.Failed() {
		exec.Status = StatusFailed
		exec.Error = out.Metadata["error"]
	} else {
		exec.Status = StatusCompleted
	}
}

// abandonedAfter bounds how long a never-completed execution stays
// queryable. A run whose goroutine died before Complete would otherwise
// sit in the map forever.
const abandonedAfter = 24 * time.Hour

func (s *Store) cleanup() {
	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, exec := range s.executions {
		if exec.CompletedAt == "" {
			submittedAt, err := time.Parse(time.RFC3339, exec.SubmittedAt)
			if err == nil && now.Sub(submittedAt) > abandonedAfter {
				delete(s.executions, id)
				s.logger.Warn("expired abandoned execution", slog.String("execution_id", id))
			}
			continue
		}
		completedAt, err := time.Parse(time.RFC3339, exec.CompletedAt)
		if err == nil && now.Sub(completedAt) > s.ttl {
			delete(s.executions, id)
			s.logger.Debug("expired execution result", slog.String("execution_id", id))
		}
	}
}
