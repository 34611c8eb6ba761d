package session

import (
	"context"
	"encoding/json"
	"time"

	"divdataset/domain/core"
	"divdataset/domain/dataset"
	"divdataset/internal/errors"
	"divdataset/ports"
)

// DefaultTTL is how long a session lives after its last write
const DefaultTTL = time.Hour

// State is the lifecycle position of a session
type State string

const (
	StateAbsent          State = "absent"
	StateActive          State = "active"
	StateActiveWithSplit State = "active_with_split"
)

// Session is the cached payload of one upload. Only the raw file text is kept;
// the table is rebuilt from it on every operation.
type Session struct {
	ID          core.SessionID        `json:"session_id"`
	Filename    string                `json:"filename"`
	DatasetInfo dataset.Info          `json:"dataset_info"`
	FileContent string                `json:"file_content"`
	CreatedAt   time.Time             `json:"created_at"`
	LastSplit   *dataset.SplitSummary `json:"last_split,omitempty"`
}

// State reports whether the session has been split yet
func (s *Session) State() State {
	if s == nil {
		return StateAbsent
	}
	if s.LastSplit != nil {
		return StateActiveWithSplit
	}
	return StateActive
}

// Manager stores sessions in a SessionCache, applying the TTL on every write
type Manager struct {
	cache ports.SessionCache
	ttl   time.Duration
	now   func() time.Time
}

// NewManager creates a session manager. A non-positive ttl uses DefaultTTL.
func NewManager(cache ports.SessionCache, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{cache: cache, ttl: ttl, now: time.Now}
}

// TTL returns the expiry applied on each write
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Create stores a new session under a fresh ID
func (m *Manager) Create(ctx context.Context, filename, content string, info dataset.Info) (*Session, error) {
	s := &Session{
		ID:          core.NewSessionID(),
		Filename:    filename,
		DatasetInfo: info,
		FileContent: content,
		CreatedAt:   m.now().UTC(),
	}
	if err := m.put(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Get loads a session, returning a NOT_FOUND error when it is absent or expired
func (m *Manager) Get(ctx context.Context, id core.SessionID) (*Session, error) {
	raw, ok, err := m.cache.Get(ctx, id.String())
	if err != nil {
		return nil, errors.CacheError("failed to load session", err)
	}
	if !ok {
		return nil, errors.NotFound("Session not found or expired")
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, errors.CacheError("corrupt session payload", err)
	}
	return &s, nil
}

// AttachSplit records the latest split on the session and refreshes its TTL
func (m *Manager) AttachSplit(ctx context.Context, s *Session, params dataset.SplitParams, sizes dataset.SplitSizes) error {
	s.LastSplit = &dataset.SplitSummary{
		Parameters: params,
		Sizes:      sizes,
		Timestamp:  m.now().UTC(),
	}
	return m.put(ctx, s)
}

// Delete removes a session. Deleting an absent session succeeds.
func (m *Manager) Delete(ctx context.Context, id core.SessionID) error {
	if err := m.cache.Delete(ctx, id.String()); err != nil {
		return errors.CacheError("failed to delete session", err)
	}
	return nil
}

func (m *Manager) put(ctx context.Context, s *Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return errors.CacheError("failed to encode session", err)
	}
	if err := m.cache.Set(ctx, s.ID.String(), raw, m.ttl); err != nil {
		return errors.CacheError("failed to store session", err)
	}
	return nil
}
