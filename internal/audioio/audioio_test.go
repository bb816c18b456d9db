package audioio

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// writeTestWAV builds a minimal mono 16-bit PCM WAV file with a simple
// ramp pattern, mirroring the header layout encodeWAV produces.
func writeTestWAV(t *testing.T, path string, sampleRate, numFrames int) {
	t.Helper()

	pcm := make([]byte, numFrames*2)
	for i := 0; i < numFrames; i++ {
		v := int16(i % 1000)
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}

	var buf bytes.Buffer
	byteRate := sampleRate * 1 * 2
	blockAlign := uint16(2)
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
	binary.Write(&buf, binary.LittleEndian, blockAlign)
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, dataSize)
	buf.Write(pcm)

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write test wav: %v", err)
	}
}

func TestOpenWAV_FormatAndDuration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.wav")
	writeTestWAV(t, path, 48000, 48000*2) // 2 seconds

	src, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	format := src.Format()
	if format.SampleRate != 48000 {
		t.Errorf("SampleRate = %d, want 48000", format.SampleRate)
	}
	if format.Channels != 1 {
		t.Errorf("Channels = %d, want 1", format.Channels)
	}
	if format.BitDepth != 16 {
		t.Errorf("BitDepth = %d, want 16", format.BitDepth)
	}

	got := src.Duration().Seconds()
	if got < 1.99 || got > 2.01 {
		t.Errorf("Duration = %.3fs, want ~2s", got)
	}
}

func TestWAVSource_ReadSamplesRange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.wav")
	writeTestWAV(t, path, 48000, 1000)

	src, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	samples, err := src.ReadSamples(100, 200)
	if err != nil {
		t.Fatalf("ReadSamples: %v", err)
	}
	if len(samples) != 100 {
		t.Fatalf("len(samples) = %d, want 100", len(samples))
	}

	// Sample 100's raw value was (100 % 1000) << 16.
	want := int32(100) << 16
	if samples[0] != want {
		t.Errorf("samples[0] = %d, want %d", samples[0], want)
	}
}

func TestWAVSource_ReadSamplesClampsToDataSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.wav")
	writeTestWAV(t, path, 48000, 500)

	src, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	samples, err := src.ReadSamples(400, 10000)
	if err != nil {
		t.Fatalf("ReadSamples: %v", err)
	}
	if len(samples) != 100 {
		t.Errorf("len(samples) = %d, want 100 (clamped to data size)", len(samples))
	}
}

func TestOpen_UnsupportedContainer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.mp3")
	if err := os.WriteFile(path, []byte("ID3\x03\x00\x00\x00"), 0o644); err != nil {
		t.Fatalf("write test file: %v", err)
	}

	_, err := Open(path)
	if err == nil {
		t.Fatal("Open: expected error for unsupported container")
	}
}
