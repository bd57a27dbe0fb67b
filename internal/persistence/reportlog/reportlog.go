// Package reportlog stores a run's tick reports as zstd-compressed JSONL.
// One file holds one run; lines land in tick order so replay can stream them
// back without an index.
package reportlog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"cityloom.ai/internal/sim/world"
)

// Writer appends reports to one compressed run log. Reopening an existing
// log starts a fresh zstd frame; readers treat concatenated frames as a
// single stream, so a resumed run keeps appending to the same file.
type Writer struct {
	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

func NewWriter(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Writer{f: f, enc: enc, w: bufio.NewWriterSize(enc, 128*1024)}, nil
}

func (w *Writer) Append(rep world.TickReport) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.enc == nil {
		return errors.New("report log is closed")
	}
	b, err := json.Marshal(rep)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

// Close finishes the zstd frame. Skipping it loses the tail of the log.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var err error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	return err
}

// Reader streams reports back in the order they were appended.
type Reader struct {
	f    *os.File
	dec  *zstd.Decoder
	sc   *bufio.Scanner
	line int
}

func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	return &Reader{f: f, dec: dec, sc: sc}, nil
}

// Next returns the following report, or io.EOF after the last line.
func (r *Reader) Next() (world.TickReport, error) {
	var rep world.TickReport
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return rep, err
		}
		return rep, io.EOF
	}
	r.line++
	if err := json.Unmarshal(r.sc.Bytes(), &rep); err != nil {
		return rep, fmt.Errorf("report log line %d: %w", r.line, err)
	}
	return rep, nil
}

func (r *Reader) Close() error {
	r.dec.Close()
	return r.f.Close()
}

// ReadAll loads an entire run log into memory.
func ReadAll(path string) ([]world.TickReport, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var out []world.TickReport
	for {
		rep, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
}
