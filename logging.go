package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var (
	logger       = newAsyncLogger()
	debugLogging bool
)

const (
	logLevelDebug logLevel = iota
	logLevelInfo
	logLevelWarn
	logLevelError
)

var levelNames = []string{
	"DEBUG",
	"INFO",
	"WARN",
	"ERROR",
}

type logLevel int

type logEvent struct {
	level logLevel
	msg   string
	attrs []any
}

// asyncLogger decouples hot-path callers (share handling, broadcast fan-out)
// from log IO by queueing events to a single writer goroutine.
type asyncLogger struct {
	level    logLevel
	queue    chan logEvent
	done     chan struct{}
	writerMu sync.RWMutex
	out      io.Writer
	errOut   io.Writer
	stdout   bool
	wg       sync.WaitGroup
	stopOnce sync.Once
	closing  atomic.Bool
}

func newAsyncLogger() *asyncLogger {
	l := &asyncLogger{
		level:  logLevelInfo,
		queue:  make(chan logEvent, 4096),
		done:   make(chan struct{}),
		out:    os.Stdout,
		errOut: os.Stdout,
	}
	l.wg.Add(1)
	go l.run()
	return l
}

func (l *asyncLogger) run() {
	defer l.wg.Done()
	for {
		select {
		case evt := <-l.queue:
			l.writeEntry(evt)
		case <-l.done:
			for {
				select {
				case evt := <-l.queue:
					l.writeEntry(evt)
				default:
					return
				}
			}
		}
	}
}

func (l *asyncLogger) log(level logLevel, msg string, attrs ...any) {
	if level < l.level {
		return
	}
	if l.closing.Load() {
		return
	}
	select {
	case l.queue <- logEvent{level: level, msg: msg, attrs: append([]any(nil), attrs...)}:
	case <-l.done:
	}
}

func (l *asyncLogger) Debug(msg string, attrs ...any) {
	l.log(logLevelDebug, msg, attrs...)
}

func (l *asyncLogger) Info(msg string, attrs ...any) {
	l.log(logLevelInfo, msg, attrs...)
}

func (l *asyncLogger) Warn(msg string, attrs ...any) {
	l.log(logLevelWarn, msg, attrs...)
}

func (l *asyncLogger) Error(msg string, attrs ...any) {
	l.log(logLevelError, msg, attrs...)
}

func (l *asyncLogger) setLevel(level logLevel) {
	l.level = level
}

func (l *asyncLogger) configureWriters(out, errOut io.Writer, stdout bool) {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	l.writerMu.Lock()
	l.out = out
	l.errOut = errOut
	l.stdout = stdout
	l.writerMu.Unlock()
}

func (l *asyncLogger) Stop() {
	l.stopOnce.Do(func() {
		l.closing.Store(true)
		close(l.done)
		l.wg.Wait()
		l.writerMu.Lock()
		closeWriter(l.out)
		closeWriter(l.errOut)
		l.out = io.Discard
		l.errOut = io.Discard
		l.writerMu.Unlock()
	})
}

func closeWriter(w io.Writer) {
	if closer, ok := w.(io.Closer); ok {
		_ = closer.Close()
	}
}

func (l *asyncLogger) writeEntry(evt logEvent) {
	fields := formatAttrs(evt.attrs)
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	levelName := "UNKNOWN"
	if int(evt.level) >= 0 && int(evt.level) < len(levelNames) {
		levelName = levelNames[evt.level]
	}
	var entry strings.Builder
	entry.WriteString(timestamp)
	entry.WriteString(" [")
	entry.WriteString(levelName)
	entry.WriteString("] ")
	entry.WriteString(evt.msg)
	if fields != "" {
		entry.WriteString(" ")
		entry.WriteString(fields)
	}
	entry.WriteByte('\n')
	line := entry.String()

	l.writerMu.RLock()
	out := l.out
	errOut := l.errOut
	stdout := l.stdout
	l.writerMu.RUnlock()

	if stdout {
		_, _ = os.Stdout.Write([]byte(line))
	}
	if out != nil {
		_, _ = out.Write([]byte(line))
	}
	if evt.level >= logLevelError && errOut != nil && errOut != out {
		_, _ = errOut.Write([]byte(line))
	}
}

func formatAttrs(attrs []any) string {
	if len(attrs) == 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i < len(attrs); i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		key := fmt.Sprint(attrs[i])
		if i+1 < len(attrs) {
			value := fmt.Sprint(attrs[i+1])
			b.WriteString(key)
			b.WriteByte('=')
			b.WriteString(value)
			i++
		} else {
			b.WriteString(key)
		}
	}
	return b.String()
}

func newRollingFileWriter(path string) io.Writer {
	if path == "" {
		return io.Discard
	}
	return &rollingFileWriter{path: path}
}

// rollingFileWriter reopens its file when an external rotation removes it, so
// logrotate-style setups keep working without signaling the process.
type rollingFileWriter struct {
	path string
	mu   sync.Mutex
	f    *os.File
}

func (w *rollingFileWriter) ensureFile() error {
	if w.path == "" {
		return nil
	}
	if _, err := os.Stat(w.path); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		if w.f != nil {
			_ = w.f.Close()
			w.f = nil
		}
	}
	if w.f == nil {
		f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		w.f = f
	}
	return nil
}

func (w *rollingFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.ensureFile(); err != nil {
		return 0, err
	}
	if w.f == nil {
		return 0, nil
	}
	return w.f.Write(p)
}

func (w *rollingFileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}

func configureFileLogging(serverPath, errorPath string, stdout bool) {
	logger.configureWriters(
		newRollingFileWriter(serverPath),
		newRollingFileWriter(errorPath),
		stdout,
	)
}

func fatal(msg string, err error, attrs ...any) {
	attrPairs := append(attrs, "error", err)
	logger.Error(msg, attrPairs...)
	logger.Stop()
	os.Exit(1)
}
