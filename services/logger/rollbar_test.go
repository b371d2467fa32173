package logsvc

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/unilife/core"
)

func newTestLogger(debug bool) (*RollbarLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := NewRollbarLogger(log.New(&buf, "TEST : ", 0), &core.Config{Env: "TEST", Debug: debug})
	l.Enable(false)
	return l, &buf
}

func TestRollbarLogger_levels(t *testing.T) {
	tests := []struct {
		name  string
		debug bool
		log   func(l *RollbarLogger)
		want  string
	}{
		{name: "debug dropped", log: func(l *RollbarLogger) { l.Debug("loaded") }, want: ""},
		{name: "debug kept in debug mode", debug: true, log: func(l *RollbarLogger) { l.Debug("loaded") }, want: "TEST : [DEBUG] loaded\n"},
		{name: "info", log: func(l *RollbarLogger) { l.Info("started") }, want: "TEST : [INFO] started\n"},
		{
			name: "warn with owner",
			log:  func(l *RollbarLogger) { l.Warn("reloading tasks", core.Owner{ID: "o1"}, core.Owner{ID: "o2"}) },
			want: "TEST : [WARN] reloading tasks owner=o1\n",
		},
		{
			name: "extras",
			log:  func(l *RollbarLogger) { l.Info("loaded", map[string]interface{}{"tasks": 3}, nil) },
			want: "TEST : [INFO] loaded map[tasks:3]\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, buf := newTestLogger(tt.debug)
			tt.log(l)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestRollbarLogger_errorStack(t *testing.T) {
	l, buf := newTestLogger(false)
	l.Error("create tasks failed; reverted", errors.Wrap(errors.New("connection refused"), "inserting"), core.Owner{ID: "o1"})

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "TEST : [ERROR] create tasks failed; reverted owner=o1\nconnection refused\n"), out)
	assert.Contains(t, out, "\ninserting\n")
	assert.Contains(t, out, "rollbar_test.go", "stack trace printed")
}

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "Level(9)", Level(9).String())
}
