package logger

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// textHandler renders records as "LEVEL [module] message key=value".
// Timestamps are left to the process supervisor.
type textHandler struct {
	mu    *sync.Mutex
	w     io.Writer
	level slog.Leveler
	attrs []slog.Attr
	group string
}

func newTextHandler(w io.Writer, level slog.Level) slog.Handler {
	return &textHandler{mu: &sync.Mutex{}, w: w, level: level}
}

func (h *textHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

//nolint:gocritic // slog.Handler interface requires record by value
func (h *textHandler) Handle(_ context.Context, r slog.Record) error {
	var module string
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%-5s ", levelName(r.Level))

	var rest []slog.Attr
	collect := func(a slog.Attr) bool {
		if a.Key == moduleKey && h.group == "" {
			module = a.Value.String()
			return true
		}
		rest = append(rest, a)
		return true
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(collect)

	if module != "" {
		buf.WriteString("[" + module + "] ")
	}
	buf.WriteString(r.Message)

	for _, a := range rest {
		key := a.Key
		if h.group != "" {
			key = h.group + "." + key
		}
		value := a.Value.Resolve().String()
		if strings.ContainsAny(value, " \t\"=") {
			value = fmt.Sprintf("%q", value)
		}
		buf.WriteString(" " + key + "=" + value)
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *textHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(clone.attrs[:len(clone.attrs):len(clone.attrs)], attrs...)
	return &clone
}

func (h *textHandler) WithGroup(name string) slog.Handler {
	clone := *h
	if clone.group == "" {
		clone.group = name
	} else {
		clone.group += "." + name
	}
	return &clone
}

func levelName(level slog.Level) string {
	if level <= traceLevelValue {
		return "TRACE"
	}
	return level.String()
}

// fanoutHandler forwards each record to every handler that accepts its level
type fanoutHandler struct {
	handlers []slog.Handler
}

func newFanoutHandler(handlers ...slog.Handler) slog.Handler {
	return &fanoutHandler{handlers: handlers}
}

func (h *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

//nolint:gocritic // slog.Handler interface requires record by value
func (h *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, r.Level) {
			continue
		}
		if err := handler.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: next}
}

func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithGroup(name)
	}
	return &fanoutHandler{handlers: next}
}

// LogFilePermissions is the default file permissions for log files (rw-------)
const LogFilePermissions = 0o600

// fileWriter is a buffered, reopenable append-only log file
type fileWriter struct {
	mu   sync.Mutex
	path string
	file *os.File
	buf  *bufio.Writer
}

func newFileWriter(path string) (*fileWriter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fw := &fileWriter{path: path}
	if err := fw.open(); err != nil {
		return nil, err
	}
	return fw, nil
}

func (fw *fileWriter) open() error {
	file, err := os.OpenFile(fw.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, LogFilePermissions)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", fw.path, err)
	}
	fw.file = file
	fw.buf = bufio.NewWriter(file)
	return nil
}

func (fw *fileWriter) Write(p []byte) (int, error) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.buf == nil {
		return 0, errClosedWriter
	}
	n, err := fw.buf.Write(p)
	if err != nil {
		return n, err
	}
	// JSON records end with a newline; keep the file readable while tailing
	return n, fw.buf.Flush()
}

func (fw *fileWriter) Flush() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.buf == nil {
		return nil
	}
	return fw.buf.Flush()
}

// Reopen closes and reopens the file at the same path
func (fw *fileWriter) Reopen() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if err := fw.closeLocked(); err != nil {
		return err
	}
	return fw.open()
}

func (fw *fileWriter) Close() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.closeLocked()
}

func (fw *fileWriter) closeLocked() error {
	if fw.file == nil {
		return nil
	}
	flushErr := fw.buf.Flush()
	syncErr := fw.file.Sync()
	closeErr := fw.file.Close()
	fw.file = nil
	fw.buf = nil
	return errors.Join(flushErr, syncErr, closeErr)
}
