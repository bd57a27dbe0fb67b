package reportlog_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"cityloom.ai/internal/persistence/reportlog"
	world "cityloom.ai/internal/sim/world"
	"cityloom.ai/internal/sim/worldtest"
)

// Stored reports must re-encode to exactly the bytes the original reports
// encode to; digest equality alone would miss dropped or mangled fields.
func TestWriterReader_RoundTripsReportBytes(t *testing.T) {
	h := worldtest.NewHarness(t, 31)
	reports := h.Advance(8)

	path := filepath.Join(t.TempDir(), "runs", "r1", "reports.jsonl.zst")
	w, err := reportlog.NewWriter(path)
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	for _, rep := range reports {
		if err := w.Append(rep); err != nil {
			t.Fatalf("append tick %d: %v", rep.Tick, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	got, err := reportlog.ReadAll(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if len(got) != len(reports) {
		t.Fatalf("read %d reports, wrote %d", len(got), len(reports))
	}
	for i := range reports {
		want, err := json.Marshal(reports[i])
		if err != nil {
			t.Fatalf("encode original report: %v", err)
		}
		have, err := json.Marshal(got[i])
		if err != nil {
			t.Fatalf("encode stored report: %v", err)
		}
		if !bytes.Equal(want, have) {
			t.Fatalf("tick %d: stored report differs from original", reports[i].Tick)
		}
		if got[i].StateDigest != reports[i].StateDigest {
			t.Fatalf("tick %d: stored digest %s, want %s", got[i].Tick, got[i].StateDigest, reports[i].StateDigest)
		}
	}

	r, err := reportlog.Open(path)
	if err != nil {
		t.Fatalf("reopen log: %v", err)
	}
	defer r.Close()
	for i := 0; i < len(reports); i++ {
		if _, err := r.Next(); err != nil {
			t.Fatalf("stream report %d: %v", i, err)
		}
	}
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("want io.EOF past the last report, got %v", err)
	}
}

// A resumed run reopens the same file; the reader must see one continuous
// tick sequence across the frame boundary.
func TestWriter_AppendsAcrossReopen(t *testing.T) {
	h := worldtest.NewHarness(t, 31)
	first := h.Advance(3)
	second := h.Advance(2)

	path := filepath.Join(t.TempDir(), "reports.jsonl.zst")
	w, err := reportlog.NewWriter(path)
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	for _, rep := range first {
		if err := w.Append(rep); err != nil {
			t.Fatalf("append tick %d: %v", rep.Tick, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close first session: %v", err)
	}

	w, err = reportlog.NewWriter(path)
	if err != nil {
		t.Fatalf("reopen writer: %v", err)
	}
	for _, rep := range second {
		if err := w.Append(rep); err != nil {
			t.Fatalf("append tick %d: %v", rep.Tick, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close second session: %v", err)
	}

	got, err := reportlog.ReadAll(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("read %d reports, want 5", len(got))
	}
	for i, rep := range got {
		if rep.Tick != uint64(i+1) {
			t.Fatalf("report %d carries tick %d, want %d", i, rep.Tick, i+1)
		}
	}
}

func TestReader_MissingFile(t *testing.T) {
	if _, err := reportlog.Open(filepath.Join(t.TempDir(), "absent.jsonl.zst")); !os.IsNotExist(err) {
		t.Fatalf("want a not-exist error, got %v", err)
	}
}

func TestWriter_RejectsAppendAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports.jsonl.zst")
	w, err := reportlog.NewWriter(path)
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	if err := w.Append(world.TickReport{}); err == nil {
		t.Fatal("append after close succeeded")
	}
}
