package audit

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type stubRedis struct {
	list    []string
	trimmed int64
	pushErr error
}

func (s *stubRedis) LPush(ctx context.Context, key string, values ...any) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if s.pushErr != nil {
		cmd.SetErr(s.pushErr)
		return cmd
	}
	for _, v := range values {
		var item string
		switch raw := v.(type) {
		case []byte:
			item = string(raw)
		case string:
			item = raw
		}
		s.list = append([]string{item}, s.list...)
	}
	cmd.SetVal(int64(len(s.list)))
	return cmd
}

func (s *stubRedis) LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	if int64(len(s.list)) > stop+1 {
		s.list = s.list[start : stop+1]
	}
	s.trimmed = stop
	cmd.SetVal("OK")
	return cmd
}

func (s *stubRedis) LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd {
	cmd := redis.NewStringSliceCmd(ctx)
	end := stop + 1
	if end > int64(len(s.list)) {
		end = int64(len(s.list))
	}
	cmd.SetVal(s.list[start:end])
	return cmd
}

func TestRedisRecorderKeepsNewestFirstAndCaps(t *testing.T) {
	client := &stubRedis{}
	rec := NewRedisRecorder(client, "audit:gate", 2, zerolog.Nop())
	ctx := context.Background()

	for _, email := range []string{"a@x.co", "b@x.co", "c@x.co"} {
		rec.Record(ctx, Event{Gate: "role", Decision: Granted, Email: email, Route: "/api/submit-time"})
	}

	events, err := rec.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected list capped at 2, got %d", len(events))
	}
	if events[0].Email != "c@x.co" || events[1].Email != "b@x.co" {
		t.Fatalf("unexpected order %+v", events)
	}
	if events[0].ID == "" || events[0].At.IsZero() {
		t.Fatalf("expected id and timestamp to be stamped")
	}
}

func TestRedisRecorderSwallowsErrors(t *testing.T) {
	var buf bytes.Buffer
	client := &stubRedis{pushErr: errors.New("redis down")}
	rec := NewRedisRecorder(client, "audit:gate", 10, zerolog.New(&buf))

	rec.Record(context.Background(), Event{Decision: Denied})
	if !strings.Contains(buf.String(), "redis down") {
		t.Fatalf("expected push error to be logged, got %q", buf.String())
	}
}

func TestMemoryRecorderRing(t *testing.T) {
	rec := NewMemoryRecorder(3)
	ctx := context.Background()
	for _, reason := range []string{"1", "2", "3", "4"} {
		rec.Record(ctx, Event{Reason: reason})
	}

	events, _ := rec.Recent(ctx, 0)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Reason != "4" || events[2].Reason != "2" {
		t.Fatalf("unexpected ring order %+v", events)
	}

	two, _ := rec.Recent(ctx, 2)
	if len(two) != 2 || two[1].Reason != "3" {
		t.Fatalf("unexpected limited result %+v", two)
	}
}

func TestLogRecorderAndMulti(t *testing.T) {
	var buf bytes.Buffer
	mem := NewMemoryRecorder(5)
	Multi{NewLogRecorder(zerolog.New(&buf)), mem}.Record(context.Background(), Event{
		Gate: "admin", Decision: Denied, Email: "mgr@x.co", Route: "/api/admin/all-users",
	})

	if !strings.Contains(buf.String(), `"decision":"denied"`) || !strings.Contains(buf.String(), `"level":"warn"`) {
		t.Fatalf("unexpected log line %q", buf.String())
	}
	events, _ := mem.Recent(context.Background(), 1)
	if len(events) != 1 || events[0].Email != "mgr@x.co" {
		t.Fatalf("expected multi to reach memory recorder, got %+v", events)
	}
}
