// Package jobs holds the in-memory table of bulk-ingestion jobs. It replaces
// an implicit process-wide progress variable with explicit job records so
// multiple runs are representable and a polling endpoint has something
// concrete to read.
package jobs

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Job is one bulk-ingestion run with its progress counters.
type Job struct {
	ID            string     `json:"id"`
	Status        Status     `json:"status"`
	Phase         string     `json:"phase,omitempty"`
	CurrentSource string     `json:"currentSource,omitempty"`
	Current       int        `json:"current"`
	Total         int        `json:"total"`
	Error         string     `json:"error,omitempty"`
	StartedAt     time.Time  `json:"startedAt"`
	FinishedAt    *time.Time `json:"finishedAt,omitempty"`
}

// Manager owns the job table. All access goes through it; Get and Latest
// return copies so callers never share the mutable record.
type Manager struct {
	mu     sync.RWMutex
	jobs   map[string]*Job
	latest string
	now    func() time.Time
}

func NewManager() *Manager {
	return &Manager{
		jobs: make(map[string]*Job),
		now:  time.Now,
	}
}

// Create registers a new pending job and returns its ID.
func (m *Manager) Create() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.NewString()
	m.jobs[id] = &Job{
		ID:        id,
		Status:    StatusPending,
		StartedAt: m.now(),
	}
	m.latest = id
	return id
}

// Start marks a job as running.
func (m *Manager) Start(id string) {
	m.Update(id, func(j *Job) {
		j.Status = StatusRunning
		j.StartedAt = m.now()
	})
}

// Update applies fn to the job under the table lock.
func (m *Manager) Update(id string, fn func(*Job)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if j, ok := m.jobs[id]; ok {
		fn(j)
	}
}

// Complete marks a job as finished successfully.
func (m *Manager) Complete(id string) {
	now := m.now()
	m.Update(id, func(j *Job) {
		j.Status = StatusCompleted
		j.FinishedAt = &now
	})
}

// Fail marks a job as failed with the given error.
func (m *Manager) Fail(id string, err error) {
	now := m.now()
	m.Update(id, func(j *Job) {
		j.Status = StatusFailed
		j.FinishedAt = &now
		if err != nil {
			j.Error = err.Error()
		}
	})
}

// Get returns a copy of the job with the given ID.
func (m *Manager) Get(id string) (Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, ok := m.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// Latest returns a copy of the most recently created job.
func (m *Manager) Latest() (Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, ok := m.jobs[m.latest]
	if !ok {
		return Job{}, false
	}
	return *j, true
}
