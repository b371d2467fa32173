package logsvc

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/unilife/core"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

func (lvl Level) String() string {
	if lvl < LevelDebug || lvl > LevelFatal {
		return fmt.Sprintf("Level(%d)", int(lvl))
	}
	return levelNames[lvl]
}

// RollbarLogger prints to a std logger and reports to rollbar while enabled.
// Entries below the minimum level are dropped; Debug entries are only kept in debug mode.
type RollbarLogger struct {
	std      *log.Logger
	minLevel Level
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)

	minLevel := LevelInfo
	if conf.Debug {
		minLevel = LevelDebug
	}
	return &RollbarLogger{std: std, minLevel: minLevel}
}

// NewDiscardLogger returns a logger that writes nowhere and never reports, for tests.
func NewDiscardLogger() *RollbarLogger {
	l := NewRollbarLogger(log.New(io.Discard, "", 0), &core.Config{Env: "TEST"})
	l.Enable(false)
	return l
}

func (l *RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// entry splits args into what rollbar receives and the owner, if any.
// expected fmt: msg | error, map[string]interface{}, core.Owner
func entry(msg string, args []interface{}) (report []interface{}, owner *core.Owner) {
	report = make([]interface{}, 0, len(args)+1)
	report = append(report, msg)
	for _, arg := range args {
		switch a := arg.(type) {
		case core.Owner:
			if owner == nil { // only keep one owner
				owner = &a
			}
		case nil:
		default:
			report = append(report, a)
		}
	}
	return report, owner
}

func (l *RollbarLogger) log(lvl Level, msg string, args []interface{}) {
	if lvl < l.minLevel {
		return
	}
	report, owner := entry(msg, args)

	if owner != nil {
		rollbar.SetPerson(owner.ID, "", "")
	} else {
		rollbar.ClearPerson()
	}
	switch lvl {
	case LevelDebug:
		rollbar.Debug(report...)
	case LevelInfo:
		rollbar.Info(report...)
	case LevelWarn:
		rollbar.Warning(report...)
	case LevelError:
		rollbar.Error(report...)
	default:
		rollbar.Critical(report...)
	}

	var b strings.Builder
	b.WriteString("[" + lvl.String() + "] " + msg)
	if owner != nil {
		b.WriteString(" owner=" + owner.ID)
	}
	for _, arg := range report[1:] {
		switch a := arg.(type) {
		case error:
			fmt.Fprintf(&b, "\n%+v", a)
		default:
			fmt.Fprintf(&b, " %v", a)
		}
	}
	l.std.Println(b.String())
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) { l.log(LevelDebug, msg, args) }
func (l *RollbarLogger) Info(msg string, args ...interface{})  { l.log(LevelInfo, msg, args) }
func (l *RollbarLogger) Warn(msg string, args ...interface{})  { l.log(LevelWarn, msg, args) }
func (l *RollbarLogger) Error(msg string, args ...interface{}) { l.log(LevelError, msg, args) }

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log(LevelFatal, msg, args)
	rollbar.Wait()
	l.std.Fatal(msg)
}
