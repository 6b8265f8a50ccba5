package services_test

import (
	"io"
	"log/slog"
	"time"

	"github.com/mbenedict/gatehouse/internal/store"
	pkglogger "github.com/mbenedict/gatehouse/pkg/logger"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestAudit() *pkglogger.AuditLogger {
	return pkglogger.NewAuditLogger(newTestLogger())
}

// clock is a controllable time source for the memory store, letting tests
// simulate TTL expiry.
type clock struct {
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Now()}
}

func (c *clock) Now() time.Time {
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newClockedStore() (*store.MemoryStore, *clock) {
	c := newClock()
	return store.NewMemoryStoreWithClock(c.Now), c
}
