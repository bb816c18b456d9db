package extract

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/chunkcast/chunkcast/internal/audioio"
	"github.com/chunkcast/chunkcast/internal/chunkplan"
)

func writeTestWAV(t *testing.T, path string, sampleRate, numFrames int) {
	t.Helper()

	pcm := make([]byte, numFrames*2)
	for i := 0; i < numFrames; i++ {
		v := int16(i % 1000)
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
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

func TestToWAV_ProducesValidHeaderAndRange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "source.wav")
	sampleRate := 1000
	writeTestWAV(t, path, sampleRate, 10*sampleRate) // 10s

	src, err := audioio.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	c := chunkplan.Chunk{Index: 0, ActualStart: 2.0, ActualEnd: 4.0}
	payload, err := ToWAV(src, c, 10<<20)
	if err != nil {
		t.Fatalf("ToWAV: %v", err)
	}

	if string(payload[0:4]) != "RIFF" || string(payload[8:12]) != "WAVE" {
		t.Fatalf("invalid RIFF/WAVE header")
	}
	if string(payload[36:40]) != "data" {
		t.Fatalf("invalid data chunk marker")
	}

	expectedFrames := int(4.0*float64(sampleRate)) - int(2.0*float64(sampleRate))
	expectedBytes := expectedFrames * 2
	gotBytes := len(payload) - 44
	if gotBytes != expectedBytes {
		t.Errorf("data size = %d, want %d", gotBytes, expectedBytes)
	}
}

func TestToWAV_RejectsOversizedPayload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "source.wav")
	sampleRate := 48000
	writeTestWAV(t, path, sampleRate, 5*sampleRate)

	src, err := audioio.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	c := chunkplan.Chunk{Index: 0, ActualStart: 0, ActualEnd: 5.0}
	_, err = ToWAV(src, c, 100) // absurdly small ceiling
	if err == nil {
		t.Fatal("ToWAV: expected ErrTooLarge")
	}
	var tooLarge *ErrTooLarge
	if !asErrTooLarge(err, &tooLarge) {
		t.Fatalf("ToWAV: error %v is not *ErrTooLarge", err)
	}
}

func asErrTooLarge(err error, target **ErrTooLarge) bool {
	e, ok := err.(*ErrTooLarge)
	if !ok {
		return false
	}
	*target = e
	return true
}
