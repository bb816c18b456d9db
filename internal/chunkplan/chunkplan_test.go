package chunkplan

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/chunkcast/chunkcast/internal/audioio"
)

// writeWAV writes a mono 16-bit WAV built by calling sampleAt for each
// frame index, letting tests shape arbitrary tone/silence layouts.
func writeWAV(t *testing.T, path string, sampleRate int, totalFrames int, sampleAt func(i int) int16) {
	t.Helper()

	pcm := make([]byte, totalFrames*2)
	for i := 0; i < totalFrames; i++ {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(sampleAt(i)))
	}

	var buf bytes.Buffer
	byteRate := sampleRate * 2
	dataSize := uint32(len(pcm))
	chunkSize := 36 + dataSize

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, chunkSize)
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, dataSize)
	buf.Write(pcm)

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write test wav: %v", err)
	}
}

func loudSample(i int) int16 {
	if i%2 == 0 {
		return 20000
	}
	return -20000
}

func TestPlan_ShortFileProducesOneChunk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "short.wav")
	sampleRate := 8000
	writeWAV(t, path, sampleRate, 12*sampleRate, loudSample) // 12s

	src, err := audioio.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	cfg := Config{ChunkLengthSeconds: 600, SilenceWindowSeconds: 30, RMSThreshold: 0.01, MinSilenceDurationMs: 300, OverlapSeconds: 10}
	chunks, err := Plan(src, cfg)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("len(chunks) = %d, want 1", len(chunks))
	}
	c := chunks[0]
	if c.LogicalStart != 0 || c.LeadingOverlap != 0 || c.TrailingOverlap != 0 {
		t.Errorf("short file chunk should have zero overlap on both edges: %+v", c)
	}
	if c.CutKind != CutEnd {
		t.Errorf("CutKind = %s, want end", c.CutKind)
	}
}

func TestPlan_NoSilenceFoundFallsBackToExact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tone.wav")
	sampleRate := 8000
	writeWAV(t, path, sampleRate, 25*sampleRate, loudSample) // 25s, no gaps

	src, err := audioio.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	cfg := Config{ChunkLengthSeconds: 10, SilenceWindowSeconds: 4, RMSThreshold: 0.01, MinSilenceDurationMs: 300, OverlapSeconds: 1}
	chunks, err := Plan(src, cfg)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	for i, c := range chunks {
		if i < len(chunks)-1 && c.CutKind != CutExact {
			t.Errorf("chunk %d CutKind = %s, want exact", i, c.CutKind)
		}
	}
	assertInvariants(t, chunks, 25)
}

func TestPlan_SilenceGuidedCut(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "withgap.wav")
	sampleRate := 8000
	totalSeconds := 20
	gapStart, gapEnd := 9.75, 10.25 // 0.5s silence centered on ideal=10

	writeWAV(t, path, sampleRate, totalSeconds*sampleRate, func(i int) int16 {
		tSec := float64(i) / float64(sampleRate)
		if tSec >= gapStart && tSec < gapEnd {
			return 0
		}
		return loudSample(i)
	})

	src, err := audioio.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	cfg := Config{ChunkLengthSeconds: 10, SilenceWindowSeconds: 4, RMSThreshold: 0.05, MinSilenceDurationMs: 300, OverlapSeconds: 1}
	chunks, err := Plan(src, cfg)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("len(chunks) = %d, want 2", len(chunks))
	}
	if chunks[0].CutKind != CutSilence {
		t.Errorf("chunks[0].CutKind = %s, want silence", chunks[0].CutKind)
	}
	mid := chunks[0].LogicalEnd
	if mid < gapStart || mid > gapEnd {
		t.Errorf("cut point %.2f not inside silence gap [%.2f,%.2f]", mid, gapStart, gapEnd)
	}
	assertInvariants(t, chunks, float64(totalSeconds))
}

// assertInvariants checks spec.md's quantified planner invariants.
func assertInvariants(t *testing.T, chunks []Chunk, duration float64) {
	t.Helper()
	if len(chunks) == 0 {
		t.Fatal("no chunks produced")
	}
	if chunks[0].LogicalStart != 0 {
		t.Errorf("chunks[0].LogicalStart = %v, want 0", chunks[0].LogicalStart)
	}
	last := chunks[len(chunks)-1]
	if last.LogicalEnd != duration {
		t.Errorf("last LogicalEnd = %v, want %v", last.LogicalEnd, duration)
	}
	if chunks[0].LeadingOverlap != 0 {
		t.Errorf("chunks[0].LeadingOverlap = %v, want 0", chunks[0].LeadingOverlap)
	}
	if last.TrailingOverlap != 0 {
		t.Errorf("last.TrailingOverlap = %v, want 0", last.TrailingOverlap)
	}
	for i, c := range chunks {
		if i > 0 && c.LogicalStart != chunks[i-1].LogicalEnd {
			t.Errorf("chunk %d LogicalStart %v != previous LogicalEnd %v", i, c.LogicalStart, chunks[i-1].LogicalEnd)
		}
		if c.LogicalEnd <= c.LogicalStart {
			t.Errorf("chunk %d LogicalEnd <= LogicalStart", i)
		}
		if c.ActualStart > c.LogicalStart || c.ActualStart < 0 {
			t.Errorf("chunk %d ActualStart %v out of range", i, c.ActualStart)
		}
		if c.ActualEnd < c.LogicalEnd || c.ActualEnd > duration {
			t.Errorf("chunk %d ActualEnd %v out of range", i, c.ActualEnd)
		}
	}
}

func TestPlan_RejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "short.wav")
	writeWAV(t, path, 8000, 8000, loudSample)

	src, err := audioio.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	_, err = Plan(src, Config{ChunkLengthSeconds: 0, SilenceWindowSeconds: 1})
	if err == nil {
		t.Fatal("Plan: expected error for non-positive chunk_length_seconds")
	}
}
