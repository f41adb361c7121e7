package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Decision outcomes recorded for a gate check.
const (
	Granted  = "granted"
	Denied   = "denied"
	Bypassed = "bypassed"
)

// Event is one access-control decision.
type Event struct {
	ID               string    `json:"id"`
	At               time.Time `json:"at"`
	Gate             string    `json:"gate"`
	Decision         string    `json:"decision"`
	Reason           string    `json:"reason,omitempty"`
	Email            string    `json:"email,omitempty"`
	Subject          string    `json:"subject,omitempty"`
	TokenFingerprint string    `json:"token_fingerprint,omitempty"`
	IP               string    `json:"ip,omitempty"`
	Method           string    `json:"method"`
	Route            string    `json:"route"`
	RequestID        string    `json:"request_id,omitempty"`
}

// Recorder persists gate decisions. Record must not fail the request.
type Recorder interface {
	Record(ctx context.Context, ev Event)
}

// Lister returns the most recent events, newest first.
type Lister interface {
	Recent(ctx context.Context, limit int) ([]Event, error)
}

func stamp(ev Event) Event {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	return ev
}

// LogRecorder writes every decision as a structured log line.
type LogRecorder struct {
	logger zerolog.Logger
}

func NewLogRecorder(logger zerolog.Logger) *LogRecorder {
	return &LogRecorder{logger: logger}
}

func (l *LogRecorder) Record(_ context.Context, ev Event) {
	ev = stamp(ev)
	event := l.logger.Info()
	if ev.Decision == Denied {
		event = l.logger.Warn()
	}
	event.Str("audit_id", ev.ID).
		Str("gate", ev.Gate).
		Str("decision", ev.Decision).
		Str("reason", ev.Reason).
		Str("email", ev.Email).
		Str("subject", ev.Subject).
		Str("token", ev.TokenFingerprint).
		Str("ip", ev.IP).
		Str("method", ev.Method).
		Str("route", ev.Route).
		Str("request_id", ev.RequestID).
		Time("at", ev.At).
		Msg("access_decision")
}

type listCommander interface {
	LPush(ctx context.Context, key string, values ...any) *redis.IntCmd
	LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
}

// RedisRecorder keeps a capped list of recent decisions shared by every
// instance.
type RedisRecorder struct {
	client listCommander
	key    string
	max    int64
	logger zerolog.Logger
}

func NewRedisRecorder(client listCommander, key string, max int64, logger zerolog.Logger) *RedisRecorder {
	if max <= 0 {
		max = 1000
	}
	return &RedisRecorder{client: client, key: key, max: max, logger: logger}
}

func (r *RedisRecorder) Record(ctx context.Context, ev Event) {
	ev = stamp(ev)
	raw, err := json.Marshal(ev)
	if err != nil {
		r.logger.Error().Err(err).Msg("audit encode")
		return
	}
	if err := r.client.LPush(ctx, r.key, raw).Err(); err != nil {
		r.logger.Error().Err(err).Msg("audit push")
		return
	}
	if err := r.client.LTrim(ctx, r.key, 0, r.max-1).Err(); err != nil {
		r.logger.Error().Err(err).Msg("audit trim")
	}
}

func (r *RedisRecorder) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	items, err := r.client.LRange(ctx, r.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("audit range: %w", err)
	}
	events := make([]Event, 0, len(items))
	for _, item := range items {
		var ev Event
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// MemoryRecorder is a process-local ring used when Redis is not configured.
type MemoryRecorder struct {
	mu     sync.Mutex
	events []Event
	next   int
	full   bool
}

func NewMemoryRecorder(size int) *MemoryRecorder {
	if size <= 0 {
		size = 1000
	}
	return &MemoryRecorder{events: make([]Event, size)}
}

func (m *MemoryRecorder) Record(_ context.Context, ev Event) {
	ev = stamp(ev)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[m.next] = ev
	m.next = (m.next + 1) % len(m.events)
	if m.next == 0 {
		m.full = true
	}
}

func (m *MemoryRecorder) Recent(_ context.Context, limit int) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := m.next
	if m.full {
		count = len(m.events)
	}
	if limit <= 0 || limit > count {
		limit = count
	}
	out := make([]Event, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (m.next - i + len(m.events)) % len(m.events)
		out = append(out, m.events[idx])
	}
	return out, nil
}

// Multi fans a decision out to several recorders.
type Multi []Recorder

func (m Multi) Record(ctx context.Context, ev Event) {
	ev = stamp(ev)
	for _, r := range m {
		r.Record(ctx, ev)
	}
}
