package logger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"useretl/pkg/config"
)

func newBufferLogger(buf *bytes.Buffer) *zerologLogger {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	zlog := zerolog.New(buf).Level(zerolog.DebugLevel)
	return &zerologLogger{logger: &zlog, fields: map[string]interface{}{}}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{name: "info level", cfg: &config.LoggingConfig{Level: "info"}},
		{name: "debug level", cfg: &config.LoggingConfig{Level: "debug"}},
		{name: "invalid level", cfg: &config.LoggingConfig{Level: "chatty"}, wantErr: true},
		{name: "file output", cfg: &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "useretl.log")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestFileOutputIsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "useretl.log")
	l, err := New(&config.LoggingConfig{Level: "info", File: path})
	require.NoError(t, err)

	l.WithField("index", 37).Warn("fetch failed")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"index":37`)
	assert.Contains(t, string(data), `"app":"useretl"`)
	assert.Contains(t, string(data), `"message":"fetch failed"`)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"", zerolog.InfoLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"loud", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestFieldChaining(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)

	l.WithField("run_id", "abc").
		WithFields(map[string]interface{}{"index": 5, "skipped": true}).
		Info("chained fields")

	out := buf.String()
	assert.Contains(t, out, "chained fields")
	assert.Contains(t, out, `"run_id":"abc"`)
	assert.Contains(t, out, `"index":5`)
	assert.Contains(t, out, `"skipped":true`)
}

func TestWithFieldDoesNotLeakIntoParent(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)

	_ = l.WithField("child", "only")
	l.Info("parent message")

	assert.NotContains(t, buf.String(), "child")
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)

	assert.Same(t, l, l.WithError(nil))

	l.WithError(errors.New("connection refused")).Error("insert failed")
	assert.Contains(t, buf.String(), `"error":"connection refused"`)
}

func TestFieldTypes(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)

	l.InfoWithFields("all types", map[string]interface{}{
		"int64":    int64(456),
		"float":    3.5,
		"time":     time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		"duration": 5 * time.Second,
		"strings":  []string{"a", "b"},
		"ints":     []int{37, 81},
		"custom":   struct{ Name string }{Name: "x"},
	})

	out := buf.String()
	assert.Contains(t, out, `"ints":[37,81]`)
	assert.Contains(t, out, `"float":3.5`)
}

func TestTestLoggerCapturesChildren(t *testing.T) {
	tl := NewTestLogger()
	child := tl.WithField("index", 12)

	child.Warn("skipping index")
	tl.ErrorWithFields("run aborted", map[string]interface{}{"reason": "persist"})

	msgs := tl.GetMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, 12, msgs[0].Fields["index"])
	assert.True(t, tl.HasMessage("skipping"))
	assert.True(t, tl.HasError())
	assert.Contains(t, tl.String(), "[WARN] skipping index index=12")

	tl.Clear()
	assert.Empty(t, tl.GetMessages())
}

func TestGlobalLogger(t *testing.T) {
	tl := NewTestLogger()
	SetLogger(tl)
	defer SetLogger(nil)

	WithField("k", "v").Info("with field")
	WithError(errors.New("boom")).Error("with error")
	Warn("plain warn")

	assert.Len(t, tl.GetMessages(), 3)
	assert.Len(t, tl.GetMessagesByLevel("ERROR"), 1)
}
