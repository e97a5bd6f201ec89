package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		entry := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestNewWithWriterLevels(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn", false, nil)

	log.Debug().Msg("hidden")
	log.Info().Msg("hidden")
	log.Warn().Str("table", "users").Msg("slow")
	log.Error().Err(errors.New("boom")).Int("code", 884).Msg("failed")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "warn", entries[0]["level"])
	assert.Equal(t, "users", entries[0]["table"])
	assert.Equal(t, "boom", entries[1]["error"])
	assert.EqualValues(t, 884, entries[1]["code"])
	assert.Contains(t, entries[1]["caller"], "logger/logger_test.go:")
}

func TestNewWithWriterUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "chatty", false, nil)
	log.Debug().Msg("hidden")
	log.Info().Msg("shown")
	assert.Len(t, decodeLines(t, &buf), 1)
}

func TestDisabledLoggerWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "disabled", false, nil)
	log.Error().Msg("nothing")
	log.WithFields(map[string]any{"a": 1}).Warn().Msg("nothing")
	assert.Zero(t, buf.Len())
}

func TestEventFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug", false, nil)

	log.Debug().
		Int64("rows", 3).
		Uint64("id", 7).
		Dur("elapsed", 1500*time.Millisecond).
		Interface("meta", map[string]any{"password": "pw", "table": "users"}).
		Bytes("raw", []byte("x")).
		Msgf("ran %d", 1)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "ran 1", e["message"])
	assert.EqualValues(t, 3, e["rows"])
	assert.EqualValues(t, 7, e["id"])
	assert.Equal(t, "x", e["raw"])
	assert.Equal(t, map[string]any{"password": DefaultMaskValue, "table": "users"}, e["meta"])
}

func TestWithFieldsMasksSensitiveValues(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info", false, nil)

	log.WithFields(map[string]any{
		"dsn":      "app:s3cret@tcp(db:3306)/shop",
		"password": "s3cret",
		"vendor":   "mysql",
	}).Info().Str("database_url", "postgres://app:s3cret@db:5432/shop?sslmode=disable").Msg("connected")

	out := buf.String()
	assert.NotContains(t, out, "s3cret")

	e := decodeLines(t, &buf)[0]
	assert.Equal(t, "app:***@tcp(db:3306)/shop", e["dsn"])
	assert.Equal(t, DefaultMaskValue, e["password"])
	assert.Equal(t, "mysql", e["vendor"])
	assert.Equal(t, "postgres://app:***@db:5432/shop?sslmode=disable", e["database_url"])
}

func TestCustomFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info", false, &FilterConfig{SensitiveFields: []string{"email"}, MaskValue: "[x]"})
	log.Info().Str("user_email", "a@b.c").Str("password", "visible").Msg("m")

	e := decodeLines(t, &buf)[0]
	assert.Equal(t, "[x]", e["user_email"])
	assert.Equal(t, "visible", e["password"])
}

func TestWithContext(t *testing.T) {
	var base, ctxBuf bytes.Buffer
	log := NewWithWriter(&base, "info", false, nil)

	assert.Same(t, log, log.WithContext(context.Background()))
	assert.Same(t, log, log.WithContext("not a context"))

	zl := zerolog.New(&ctxBuf)
	ctx := zl.WithContext(context.Background())
	log.WithContext(ctx).Info().Msg("via context")

	assert.Zero(t, base.Len())
	assert.Contains(t, ctxBuf.String(), "via context")
}

func TestShortCaller(t *testing.T) {
	assert.Equal(t, "builder/actions.go:12", shortCaller(0, "/src/qdb/database/internal/builder/actions.go", 12))
	assert.Equal(t, "main.go:3", shortCaller(0, "main.go", 3))
}

func TestDBCounter(t *testing.T) {
	plain := context.Background()
	IncrementDBCounter(plain)
	AddDBElapsed(plain, 10)
	assert.Zero(t, GetDBCounter(plain))
	assert.Zero(t, GetDBElapsed(plain))

	ctx := WithDBCounter(plain)
	IncrementDBCounter(ctx)
	IncrementDBCounter(ctx)
	AddDBElapsed(ctx, 1500)
	assert.Equal(t, int64(2), GetDBCounter(ctx))
	assert.Equal(t, int64(1500), GetDBElapsed(ctx))
}

func TestFilterValueNonString(t *testing.T) {
	f := NewSensitiveDataFilter(nil)
	assert.Equal(t, DefaultMaskValue, f.FilterValue("api_key", 12345))
	assert.Equal(t, 42, f.FilterValue("count", 42))
	assert.Equal(t, "", f.FilterString("password", ""))
	assert.Equal(t, "https://example.com/x", f.FilterString("auth_url", "https://example.com/x"))
}
