// Package markdown appends segments to daily markdown logs, per
// spec.md §4.8: append + fsync per segment, day rollover, heading
// dedup. Grounded on the teacher's atomic-write idiom
// (voiceprint.Store.saveUnsafe) but this writer append-only's a single
// file instead of rewriting a whole document, since crash survival here
// means "never lose a segment mid-chunk", not "never corrupt a profile".
package markdown

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const maxBufferedBytes = 1 << 20 // 1 MiB, per spec.md §7 WriterIo policy

// Segment is the unit written to markdown, per spec.md §3.
type Segment struct {
	MinuteKey string // "HH:MM" in local time
	Text      string
	Speaker   string // optional, empty means no speaker tag
	ChunkSeq  uint64
}

// Writer appends segments to <output_dir>/<YYYY-MM-DD>.md.
type Writer struct {
	outputDir string

	file          *os.File
	date          string // "YYYY-MM-DD" of the currently open file
	lastMinuteKey string

	// pending holds segment bodies that failed to write twice in a row
	// and are waiting for the next successful write to flush ahead of
	// them, per spec.md §7's WriterIo policy.
	pending      [][]byte
	pendingBytes int
}

func New(outputDir string) *Writer {
	return &Writer{outputDir: outputDir}
}

// Write appends one segment, opening or rolling over the day file as
// needed, and fsyncs before returning so a crash mid-chunk never loses
// a segment that was reported as written. On IO failure it retries
// once after 100ms; if that also fails the segment is buffered in
// memory (capped at 1 MiB, dropping the oldest) instead of being lost
// outright, and flushed ahead of future writes once IO recovers.
func (w *Writer) Write(seg Segment) error {
	body := w.render(seg)

	w.flushPending()
	err := w.append(body)
	if err != nil {
		time.Sleep(100 * time.Millisecond)
		err = w.append(body)
	}
	if err != nil {
		slog.Warn("markdown writer io failure, buffering segment", "error", err)
		w.buffer(body)
		return fmt.Errorf("append segment: %w", err)
	}

	return nil
}

func (w *Writer) render(seg Segment) []byte {
	if time.Now().Format("2006-01-02") != w.date {
		// The segment lands in a day file that has no minute heading yet.
		w.lastMinuteKey = ""
	}

	var body string
	if seg.MinuteKey != w.lastMinuteKey {
		body += fmt.Sprintf("## %s\n\n", seg.MinuteKey)
		w.lastMinuteKey = seg.MinuteKey
	}

	if seg.Speaker != "" {
		body += fmt.Sprintf("**%s:** %s\n\n", seg.Speaker, seg.Text)
	} else {
		body += fmt.Sprintf("%s\n\n", seg.Text)
	}
	return []byte(body)
}

func (w *Writer) append(body []byte) error {
	now := time.Now()
	if err := w.ensureDayFile(now); err != nil {
		return err
	}
	if _, err := w.file.Write(body); err != nil {
		return err
	}
	return w.file.Sync()
}

func (w *Writer) buffer(body []byte) {
	w.pending = append(w.pending, body)
	w.pendingBytes += len(body)
	for w.pendingBytes > maxBufferedBytes && len(w.pending) > 0 {
		w.pendingBytes -= len(w.pending[0])
		w.pending = w.pending[1:]
	}
}

func (w *Writer) flushPending() {
	for len(w.pending) > 0 {
		body := w.pending[0]
		if err := w.append(body); err != nil {
			return
		}
		w.pendingBytes -= len(body)
		w.pending = w.pending[1:]
	}
}

// Close syncs and closes the currently open day file, if any.
func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}
	if err := w.file.Sync(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

func (w *Writer) ensureDayFile(now time.Time) error {
	date := now.Format("2006-01-02")
	if w.file != nil && date == w.date {
		return nil
	}

	if w.file != nil {
		w.file.Close()
	}

	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(w.outputDir, date+".md")
	isNew := true
	if _, err := os.Stat(path); err == nil {
		isNew = false
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open day file: %w", err)
	}

	w.file = f
	w.date = date

	if isNew {
		heading := fmt.Sprintf("# %s\n\n", now.Format("Monday, January 2, 2006"))
		if _, err := w.file.WriteString(heading); err != nil {
			return fmt.Errorf("write day heading: %w", err)
		}
		if err := w.file.Sync(); err != nil {
			return err
		}
	}

	return nil
}
