package probe

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/chunkcast/chunkcast/internal/audioio"
)

// writeToneWithGap builds a mono 16-bit WAV: loud samples, then a silent
// gap, then loud samples again, so silence detection has something to find.
func writeToneWithGap(t *testing.T, path string, sampleRate int, loudSecs, silentSecs, loudSecs2 float64) {
	t.Helper()

	loudFrames := int(loudSecs * float64(sampleRate))
	silentFrames := int(silentSecs * float64(sampleRate))
	loudFrames2 := int(loudSecs2 * float64(sampleRate))
	total := loudFrames + silentFrames + loudFrames2

	pcm := make([]byte, total*2)
	idx := 0
	for i := 0; i < loudFrames; i++ {
		v := int16(20000)
		if i%2 == 0 {
			v = -20000
		}
		binary.LittleEndian.PutUint16(pcm[idx*2:], uint16(v))
		idx++
	}
	for i := 0; i < silentFrames; i++ {
		binary.LittleEndian.PutUint16(pcm[idx*2:], 0)
		idx++
	}
	for i := 0; i < loudFrames2; i++ {
		v := int16(20000)
		if i%2 == 0 {
			v = -20000
		}
		binary.LittleEndian.PutUint16(pcm[idx*2:], uint16(v))
		idx++
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

func TestSilencesInWindow_FindsGap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tone.wav")
	writeToneWithGap(t, path, 16000, 1.0, 0.5, 1.0)

	src, err := audioio.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	silences, err := SilencesInWindow(src, 1.25, 2.0, 0.2, 300)
	if err != nil {
		t.Fatalf("SilencesInWindow: %v", err)
	}
	if len(silences) != 1 {
		t.Fatalf("len(silences) = %d, want 1", len(silences))
	}
	s := silences[0]
	if s.DurationMs < 400 || s.DurationMs > 600 {
		t.Errorf("DurationMs = %.1f, want ~500", s.DurationMs)
	}
	if s.Midpoint < 0.9 || s.Midpoint > 1.6 {
		t.Errorf("Midpoint = %.2f, want ~1.25", s.Midpoint)
	}
}

func TestSilencesInWindow_NoSilenceBelowMinDuration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tone.wav")
	writeToneWithGap(t, path, 16000, 1.0, 0.1, 1.0)

	src, err := audioio.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	silences, err := SilencesInWindow(src, 1.05, 2.0, 0.2, 300)
	if err != nil {
		t.Fatalf("SilencesInWindow: %v", err)
	}
	if len(silences) != 0 {
		t.Fatalf("len(silences) = %d, want 0 (gap shorter than min duration)", len(silences))
	}
}

func TestWaveform_LengthMatchesRequest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tone.wav")
	writeToneWithGap(t, path, 16000, 1.0, 0.5, 1.0)

	src, err := audioio.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	points, err := Waveform(src, 10)
	if err != nil {
		t.Fatalf("Waveform: %v", err)
	}
	if len(points) != 10 {
		t.Fatalf("len(points) = %d, want 10", len(points))
	}
	for _, p := range points {
		if p < 0 || p > 1 {
			t.Errorf("amplitude %.3f out of [0,1]", p)
		}
	}
}

func TestDuration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tone.wav")
	writeToneWithGap(t, path, 16000, 1.0, 0.5, 1.0)

	src, err := audioio.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	d := Duration(src)
	if d < 2.4 || d > 2.6 {
		t.Errorf("Duration = %.2f, want ~2.5", d)
	}
}
