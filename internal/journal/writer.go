package journal

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dgnsrekt/heatmap_agent/internal/capture"
)

var (
	ErrClosed     = errors.New("journal closed")
	ErrBufferFull = errors.New("journal buffer full")
)

// Writer appends capture run records as JSON lines to
// <dir>/<YYYY-MM-DD>/runs.jsonl. Writes are queued and flushed by a single
// goroutine; a full queue drops the record instead of blocking a capture.
type Writer struct {
	dir       string
	maxSizeMB int
	now       func() time.Time

	writeCh chan capture.RunRecord
	done    chan struct{}
	wg      sync.WaitGroup

	mu          sync.Mutex
	closed      bool
	currentDate string
	logger      *lumberjack.Logger
}

func NewWriter(dir string, bufferSize, maxSizeMB int) *Writer {
	return newWriter(dir, bufferSize, maxSizeMB, time.Now)
}

func newWriter(dir string, bufferSize, maxSizeMB int, now func() time.Time) *Writer {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	if maxSizeMB <= 0 {
		maxSizeMB = 25
	}
	w := &Writer{
		dir:       dir,
		maxSizeMB: maxSizeMB,
		now:       now,
		writeCh:   make(chan capture.RunRecord, bufferSize),
		done:      make(chan struct{}),
	}
	w.wg.Add(1)
	go w.writeLoop()
	return w
}

// Record queues rec.
func (w *Writer) Record(rec capture.RunRecord) error {
	select {
	case <-w.done:
		return ErrClosed
	default:
	}
	select {
	case w.writeCh <- rec:
		return nil
	case <-w.done:
		return ErrClosed
	default:
		slog.Warn("run journal buffer full, dropping record", "run_id", rec.RunID)
		return ErrBufferFull
	}
}

// Close stops the writer after flushing queued records.
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.done)
	w.wg.Wait()

drain:
	for {
		select {
		case rec := <-w.writeCh:
			w.write(rec)
		default:
			break drain
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.logger != nil {
		return w.logger.Close()
	}
	return nil
}

func (w *Writer) writeLoop() {
	defer w.wg.Done()
	for {
		select {
		case rec := <-w.writeCh:
			w.write(rec)
		case <-w.done:
			return
		}
	}
}

func (w *Writer) write(rec capture.RunRecord) {
	data, err := json.Marshal(rec)
	if err != nil {
		slog.Error("run journal marshal failed", "run_id", rec.RunID, "error", err)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	date := w.now().UTC().Format("2006-01-02")
	if w.logger == nil || date != w.currentDate {
		if err := w.rotate(date); err != nil {
			slog.Error("run journal rotate failed", "dir", w.dir, "error", err)
			return
		}
	}
	if _, err := w.logger.Write(append(data, '\n')); err != nil {
		slog.Error("run journal write failed", "run_id", rec.RunID, "error", err)
	}
}

func (w *Writer) rotate(date string) error {
	if w.logger != nil {
		_ = w.logger.Close()
	}
	dir := filepath.Join(w.dir, date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	filename := filepath.Join(dir, "runs.jsonl")
	w.logger = &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    w.maxSizeMB,
		MaxBackups: 30,
		MaxAge:     30,
	}
	w.currentDate = date
	slog.Debug("run journal opened", "file", filename)
	return nil
}
