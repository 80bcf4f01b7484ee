package logger

import (
	"bytes"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync/atomic"
	"time"
)

// Logger is a subsystem logger writing to a Backend.
type Logger struct {
	level   uint32
	tag     string
	backend *Backend
}

// Level returns the current level of the logger.
func (l *Logger) Level() Level {
	return Level(atomic.LoadUint32(&l.level))
}

// SetLevel changes the logging level.
func (l *Logger) SetLevel(level Level) {
	atomic.StoreUint32(&l.level, uint32(level))
}

// Backend returns the backend the logger writes to.
func (l *Logger) Backend() *Backend {
	return l.backend
}

// Tag returns the subsystem tag of the logger.
func (l *Logger) Tag() string {
	return l.tag
}

// Tracef formats and writes a message at LevelTrace.
func (l *Logger) Tracef(format string, args ...interface{}) { l.writef(LevelTrace, format, args) }

// Debugf formats and writes a message at LevelDebug.
func (l *Logger) Debugf(format string, args ...interface{}) { l.writef(LevelDebug, format, args) }

// Infof formats and writes a message at LevelInfo.
func (l *Logger) Infof(format string, args ...interface{}) { l.writef(LevelInfo, format, args) }

// Warnf formats and writes a message at LevelWarn.
func (l *Logger) Warnf(format string, args ...interface{}) { l.writef(LevelWarn, format, args) }

// Errorf formats and writes a message at LevelError.
func (l *Logger) Errorf(format string, args ...interface{}) { l.writef(LevelError, format, args) }

// Criticalf formats and writes a message at LevelCritical.
func (l *Logger) Criticalf(format string, args ...interface{}) { l.writef(LevelCritical, format, args) }

// Trace writes its arguments at LevelTrace.
func (l *Logger) Trace(args ...interface{}) { l.write(LevelTrace, args) }

// Debug writes its arguments at LevelDebug.
func (l *Logger) Debug(args ...interface{}) { l.write(LevelDebug, args) }

// Info writes its arguments at LevelInfo.
func (l *Logger) Info(args ...interface{}) { l.write(LevelInfo, args) }

// Warn writes its arguments at LevelWarn.
func (l *Logger) Warn(args ...interface{}) { l.write(LevelWarn, args) }

// Error writes its arguments at LevelError.
func (l *Logger) Error(args ...interface{}) { l.write(LevelError, args) }

// Critical writes its arguments at LevelCritical.
func (l *Logger) Critical(args ...interface{}) { l.write(LevelCritical, args) }

func (l *Logger) writef(level Level, format string, args []interface{}) {
	if level < l.Level() {
		return
	}
	l.print(level, fmt.Sprintf(format, args...))
}

func (l *Logger) write(level Level, args []interface{}) {
	if level < l.Level() {
		return
	}
	l.print(level, fmt.Sprint(args...))
}

func (l *Logger) print(level Level, message string) {
	buf := bytes.Buffer{}
	buf.Grow(normalLogSize)
	buf.WriteString(time.Now().Format("2006-01-02 15:04:05.000"))
	buf.WriteString(" [")
	buf.WriteString(level.String())
	buf.WriteString("] ")
	buf.WriteString(l.tag)
	if flags := l.backend.flag; flags&(LogFlagShortFile|LogFlagLongFile) != 0 {
		buf.WriteString(" ")
		buf.WriteString(callsite(flags))
	}
	buf.WriteString(": ")
	buf.WriteString(message)
	if !strings.HasSuffix(message, "\n") {
		buf.WriteByte('\n')
	}
	line := buf.Bytes()
	if level >= LevelCritical && !l.backend.IsRunning() {
		_, _ = os.Stderr.Write(line)
		return
	}
	l.backend.write(level, line)
}

const normalLogSize = 512

// callsite returns "file:line" of the caller of the Logger method.
func callsite(flags uint32) string {
	_, file, line, ok := runtime.Caller(4)
	if !ok {
		return "???:0"
	}
	if flags&LogFlagShortFile != 0 {
		if index := strings.LastIndexByte(file, '/'); index >= 0 {
			file = file[index+1:]
		}
	}
	return fmt.Sprintf("%s:%d", file, line)
}
