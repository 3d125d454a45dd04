package db

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/stockledger/pkg/logger"
)

func TestQueryLoggerWritesSlowAndFailedStatements(t *testing.T) {
	buf := &bytes.Buffer{}
	q := newQueryLogger(logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: buf}), 50*time.Millisecond)
	stmt := func() (string, int64) { return "SELECT 1", 1 }

	q.Trace(context.Background(), time.Now(), stmt, nil)
	if buf.Len() != 0 {
		t.Fatalf("fast query should not be logged: %s", buf.String())
	}

	q.Trace(context.Background(), time.Now(), stmt, gorm.ErrRecordNotFound)
	if buf.Len() != 0 {
		t.Fatalf("record not found should not be logged: %s", buf.String())
	}

	q.Trace(context.Background(), time.Now().Add(-time.Second), stmt, nil)
	if !bytes.Contains(buf.Bytes(), []byte(`"slow query"`)) || !bytes.Contains(buf.Bytes(), []byte(`"sql":"SELECT 1"`)) {
		t.Fatalf("expected slow query entry, got %s", buf.String())
	}

	buf.Reset()
	q.Trace(context.Background(), time.Now(), stmt, errors.New("syntax error"))
	if !bytes.Contains(buf.Bytes(), []byte(`"query failed"`)) {
		t.Fatalf("expected failure entry, got %s", buf.String())
	}
}

func TestQueryLoggerWithoutServiceLoggerDiscards(t *testing.T) {
	q := newQueryLogger(nil, time.Millisecond)
	q.Trace(context.Background(), time.Now().Add(-time.Second), func() (string, int64) { return "SELECT 1", 0 }, nil)
}
