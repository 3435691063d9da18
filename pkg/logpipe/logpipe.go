// Package logpipe gives an embedder a single file descriptor to poll for
// this module's log output, instead of requiring them to wire up a zap
// sink themselves. The pipe is created lazily, once, on first use, and
// every LogFD call returns the same read end; every zap core built with
// Core() writes formatted lines to the same underlying pipe.
package logpipe

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap/zapcore"
)

var (
	once      sync.Once
	writeMu   sync.Mutex
	readEnd   *os.File
	writeEnd  *os.File
	pipeSetup error
)

func ensurePipe() error {
	once.Do(func() {
		readEnd, writeEnd, pipeSetup = os.Pipe()
	})
	return pipeSetup
}

// LogFD returns the read end of the process-wide log pipe, creating the
// pipe on first call. Every subsequent call returns the same *os.File; the
// caller is expected to read from it (directly, or via a polling loop) for
// the life of the process.
func LogFD() (*os.File, error) {
	if err := ensurePipe(); err != nil {
		return nil, err
	}
	return readEnd, nil
}

// Core returns a zapcore.Core that writes "<level> <logger> <message>\n"
// lines to the log pipe's write end at or above the given level. Writes
// from concurrent goroutines are serialized so that lines from different
// loggers never interleave mid-write.
func Core(level zapcore.LevelEnabler) (zapcore.Core, error) {
	if err := ensurePipe(); err != nil {
		return nil, err
	}
	return &pipeCore{level: level}, nil
}

type pipeCore struct {
	level  zapcore.LevelEnabler
	name   string
	fields []zapcore.Field
}

func (c *pipeCore) Enabled(lvl zapcore.Level) bool { return c.level.Enabled(lvl) }

func (c *pipeCore) With(fields []zapcore.Field) zapcore.Core {
	return &pipeCore{level: c.level, name: c.name, fields: append(append([]zapcore.Field{}, c.fields...), fields...)}
}

func (c *pipeCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *pipeCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	name := ent.LoggerName
	if name == "" {
		name = c.name
	}

	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}

	line := fmt.Sprintf("%d %s %s", levelCode(ent.Level), name, ent.Message)
	for k, v := range enc.Fields {
		line += fmt.Sprintf(" %s=%v", k, v)
	}
	line += "\n"

	writeMu.Lock()
	defer writeMu.Unlock()
	_, err := writeEnd.WriteString(line)
	return err
}

func (c *pipeCore) Sync() error {
	return writeEnd.Sync()
}

// levelCode maps a zap level to a fixed integer severity, lower meaning
// more severe: FATAL 0, ERROR 10, WARNING 20, INFO 30, DEBUG 40, TRACE 50.
// zap has no Trace level, so any level outside zap's defined set falls
// through to 50 (the zero Level is Info, which maps to 30).
func levelCode(lvl zapcore.Level) int {
	switch lvl {
	case zapcore.FatalLevel:
		return 0
	case zapcore.PanicLevel, zapcore.DPanicLevel, zapcore.ErrorLevel:
		return 10
	case zapcore.WarnLevel:
		return 20
	case zapcore.InfoLevel:
		return 30
	case zapcore.DebugLevel:
		return 40
	default:
		return 50
	}
}
