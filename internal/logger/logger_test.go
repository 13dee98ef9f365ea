package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"medequip-marketplace/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := Get()
	SetDefault(New(&buf, level, "json"))
	t.Cleanup(func() { SetDefault(prev) })
	return &buf
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, l := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if l == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(l), &rec))
		out = append(out, rec)
	}
	return out
}

func TestExitMethodWithError(t *testing.T) {
	buf := capture(t, "debug")

	ExitMethodWithError("QuoteService.Accept", domain.ErrServiceRequestAlreadyAccepted)
	ExitMethodWithError("QuoteService.Accept", errors.New("connection reset"))

	recs := lines(t, buf)
	require.Len(t, recs, 2)
	assert.Equal(t, "WARN", recs[0]["level"])
	assert.Equal(t, "CONFLICT", recs[0]["code"])
	assert.Equal(t, "ERROR", recs[1]["level"])
	assert.Equal(t, "INTERNAL", recs[1]["code"])
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t, "info")

	EnterMethod("ServiceRequestService.Create")
	Info("started")

	recs := lines(t, buf)
	require.Len(t, recs, 1)
	assert.Equal(t, "started", recs[0]["msg"])
	assert.Equal(t, "medequip-marketplace", recs[0]["app"])
}

func TestContextLogger(t *testing.T) {
	buf := capture(t, "debug")

	ctx := WithContext(context.Background(), "request_id", "req-1")
	ctx = WithContext(ctx, "user_id", "u-1")
	InfoContext(ctx, "handled")
	InfoContext(context.Background(), "plain")

	recs := lines(t, buf)
	require.Len(t, recs, 2)
	assert.Equal(t, "req-1", recs[0]["request_id"])
	assert.Equal(t, "u-1", recs[0]["user_id"])
	assert.NotContains(t, recs[1], "request_id")
}
