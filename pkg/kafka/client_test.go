package kafka

import (
	"context"
	"docqa-go/internal/config"
	"docqa-go/pkg/tasks"
	"errors"
	"testing"
)

func init() {
	retryBackoff = 0
}

// stubProcessor 前 failures 次返回 err，failures 为负时一直失败。
type stubProcessor struct {
	err      error
	failures int
	seen     []tasks.IngestTask
}

func (p *stubProcessor) Process(_ context.Context, task tasks.IngestTask) error {
	p.seen = append(p.seen, task)
	if p.err != nil && (p.failures < 0 || len(p.seen) <= p.failures) {
		return p.err
	}
	return nil
}

type stubCounter struct {
	counts  map[string]int64
	cleared []string
	err     error
}

func (c *stubCounter) IncrAttempts(_ context.Context, md5 string) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	if c.counts == nil {
		c.counts = map[string]int64{}
	}
	c.counts[md5]++
	return c.counts[md5], nil
}

func (c *stubCounter) ClearAttempts(_ context.Context, md5 string) error {
	c.cleared = append(c.cleared, md5)
	return nil
}

const taskJSON = `{"file_md5":"abc","object_key":"k","file_name":"geo.txt","namespace":"docs"}`

func TestHandleMessage_SuccessCommitsAndClears(t *testing.T) {
	p := &stubProcessor{}
	c := &stubCounter{}
	if !handleMessage(context.Background(), []byte(taskJSON), p, c) {
		t.Fatal("successful task should be committed")
	}
	if len(p.seen) != 1 || p.seen[0].FileName != "geo.txt" {
		t.Errorf("task not decoded: %+v", p.seen)
	}
	if len(c.cleared) != 1 || c.cleared[0] != "abc" {
		t.Errorf("attempts should be cleared, got %v", c.cleared)
	}
}

func TestHandleMessage_RetriesUntilMaxAttempts(t *testing.T) {
	p := &stubProcessor{err: errors.New("tika down"), failures: -1}
	c := &stubCounter{}
	if !handleMessage(context.Background(), []byte(taskJSON), p, c) {
		t.Fatal("exhausted task should be committed to stop retrying")
	}
	if len(p.seen) != MaxAttempts {
		t.Errorf("Process called %d times, want %d", len(p.seen), MaxAttempts)
	}
	if c.counts["abc"] != MaxAttempts {
		t.Errorf("attempt counter = %d, want %d", c.counts["abc"], MaxAttempts)
	}
	if len(c.cleared) != 0 {
		t.Errorf("failed task must keep its counter, cleared %v", c.cleared)
	}
}

func TestHandleMessage_RecoversOnRetry(t *testing.T) {
	p := &stubProcessor{err: errors.New("transient"), failures: 1}
	c := &stubCounter{}
	if !handleMessage(context.Background(), []byte(taskJSON), p, c) {
		t.Fatal("recovered task should be committed")
	}
	if len(p.seen) != 2 {
		t.Errorf("Process called %d times, want 2", len(p.seen))
	}
	if len(c.cleared) != 1 {
		t.Errorf("attempts should be cleared after success, got %v", c.cleared)
	}
}

func TestHandleMessage_CountsFromPreviousRuns(t *testing.T) {
	p := &stubProcessor{err: errors.New("boom"), failures: -1}
	c := &stubCounter{counts: map[string]int64{"abc": MaxAttempts - 1}}
	if !handleMessage(context.Background(), []byte(taskJSON), p, c) {
		t.Fatal("should commit once the stored counter reaches the limit")
	}
	if len(p.seen) != 1 {
		t.Errorf("Process called %d times, want 1", len(p.seen))
	}
}

func TestHandleMessage_CounterFailureFallsBackToLocalCount(t *testing.T) {
	p := &stubProcessor{err: errors.New("boom"), failures: -1}
	c := &stubCounter{err: errors.New("redis down")}
	if !handleMessage(context.Background(), []byte(taskJSON), p, c) {
		t.Fatal("retries should stay bounded when the counter is unavailable")
	}
	if len(p.seen) != MaxAttempts {
		t.Errorf("Process called %d times, want %d", len(p.seen), MaxAttempts)
	}
}

func TestHandleMessage_CanceledContextDoesNotCommit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &stubProcessor{err: errors.New("canceled"), failures: -1}
	if handleMessage(ctx, []byte(taskJSON), p, &stubCounter{}) {
		t.Fatal("message interrupted by shutdown must stay uncommitted")
	}
	if len(p.seen) != 1 {
		t.Errorf("Process called %d times, want 1", len(p.seen))
	}
}

func TestHandleMessage_MalformedIsCommitted(t *testing.T) {
	p := &stubProcessor{}
	if !handleMessage(context.Background(), []byte("{not json"), p, &stubCounter{}) {
		t.Fatal("malformed message should be committed")
	}
	if len(p.seen) != 0 {
		t.Error("processor must not run for malformed message")
	}
}

func TestBrokers_SplitsAndTrims(t *testing.T) {
	got := brokers(config.KafkaConfig{Brokers: "a:9092, b:9092,"})
	if len(got) != 2 || got[0] != "a:9092" || got[1] != "b:9092" {
		t.Errorf("brokers = %v", got)
	}
}
