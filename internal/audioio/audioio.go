// Package audioio opens an audio file once and exposes format metadata
// plus random-access sample reads, so the Probe and Extractor decode only
// the byte range they need instead of the whole file. WAV is parsed with
// a hand-rolled RIFF walk in the style of
// internal/audiocore/export's encodeWAV (same header fields, read
// direction); FLAC is decoded with github.com/tphakala/flac, which adds
// seek-table-backed seeking on top of the frame decoder.
package audioio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tphakala/flac"
)

// Format describes the PCM layout of a decoded source.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// Source is a seekable decoded-audio handle. Implementations hold exactly
// one open file descriptor, released by Close.
type Source interface {
	Format() Format
	Duration() time.Duration

	// ReadSamples decodes the half-open sample range [startSample,
	// endSample), counted in frames (one sample per channel per frame,
	// so the same index on every channel), and returns interleaved PCM samples (channel-major
	// within each frame), one int per sample, native amplitude scaled to
	// the full int32 range regardless of source bit depth.
	ReadSamples(startSample, endSample int64) ([]int32, error)

	Close() error
}

// ErrUnsupportedContainer is returned by Open when the file's extension
// and magic bytes match no known decoder.
var ErrUnsupportedContainer = errors.New("audioio: unsupported container")

// Open sniffs the file's extension and magic bytes and returns a Source
// for it. The caller owns the returned Source and must Close it.
func Open(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audioio: open %s: %w", path, err)
	}

	magic := make([]byte, 4)
	if _, err := io.ReadFull(f, magic); err != nil {
		f.Close()
		return nil, fmt.Errorf("audioio: read magic: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("audioio: rewind: %w", err)
	}

	switch {
	case string(magic) == "RIFF":
		return openWAV(f)
	case string(magic) == "fLaC":
		return openFLAC(f)
	case strings.EqualFold(filepath.Ext(path), ".flac"):
		return openFLAC(f)
	default:
		f.Close()
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedContainer, path)
	}
}

// --- WAV ---

type wavSource struct {
	f          *os.File
	format     Format
	dataOffset int64
	dataSize   int64
	blockAlign int64
}

func openWAV(f *os.File) (*wavSource, error) {
	r := bufio.NewReader(f)

	var riffHeader struct {
		ChunkID   [4]byte
		ChunkSize uint32
		Format    [4]byte
	}
	if err := binary.Read(r, binary.LittleEndian, &riffHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("audioio: read RIFF header: %w", err)
	}
	if string(riffHeader.ChunkID[:]) != "RIFF" || string(riffHeader.Format[:]) != "WAVE" {
		f.Close()
		return nil, fmt.Errorf("audioio: not a WAV file")
	}

	var (
		sampleRate, byteRate         uint32
		numChannels, bitsPerSample   uint16
		dataOffset, dataSize         int64
		haveFmt, haveData            bool
		pos                    int64 = 12
	)

	for !haveData {
		var chunkID [4]byte
		var chunkSize uint32
		if err := binary.Read(r, binary.LittleEndian, &chunkID); err != nil {
			break
		}
		if err := binary.Read(r, binary.LittleEndian, &chunkSize); err != nil {
			break
		}
		pos += 8

		switch string(chunkID[:]) {
		case "fmt ":
			var fmtChunk struct {
				AudioFormat   uint16
				NumChannels   uint16
				SampleRate    uint32
				ByteRate      uint32
				BlockAlign    uint16
				BitsPerSample uint16
			}
			if err := binary.Read(r, binary.LittleEndian, &fmtChunk); err != nil {
				f.Close()
				return nil, fmt.Errorf("audioio: read fmt chunk: %w", err)
			}
			sampleRate = fmtChunk.SampleRate
			byteRate = fmtChunk.ByteRate
			numChannels = fmtChunk.NumChannels
			bitsPerSample = fmtChunk.BitsPerSample
			haveFmt = true

			remaining := int64(chunkSize) - 16
			if remaining > 0 {
				if _, err := io.CopyN(io.Discard, r, remaining); err != nil {
					f.Close()
					return nil, fmt.Errorf("audioio: skip fmt extension: %w", err)
				}
			}
			pos += int64(chunkSize)
		case "data":
			dataOffset = pos
			dataSize = int64(chunkSize)
			haveData = true
		default:
			if _, err := io.CopyN(io.Discard, r, int64(chunkSize)); err != nil {
				f.Close()
				return nil, fmt.Errorf("audioio: skip chunk %q: %w", string(chunkID[:]), err)
			}
			pos += int64(chunkSize)
		}
		if chunkSize%2 == 1 && !haveData {
			if _, err := io.CopyN(io.Discard, r, 1); err == nil {
				pos++
			}
		}
	}

	if !haveFmt || !haveData {
		f.Close()
		return nil, fmt.Errorf("audioio: WAV missing fmt or data chunk")
	}
	_ = byteRate

	blockAlign := int64(numChannels) * int64(bitsPerSample) / 8

	return &wavSource{
		f: f,
		format: Format{
			SampleRate: int(sampleRate),
			Channels:   int(numChannels),
			BitDepth:   int(bitsPerSample),
		},
		dataOffset: dataOffset,
		dataSize:   dataSize,
		blockAlign: blockAlign,
	}, nil
}

func (s *wavSource) Format() Format { return s.format }

func (s *wavSource) Duration() time.Duration {
	if s.format.SampleRate == 0 || s.blockAlign == 0 {
		return 0
	}
	totalFrames := s.dataSize / s.blockAlign
	secs := float64(totalFrames) / float64(s.format.SampleRate)
	return time.Duration(secs * float64(time.Second))
}

func (s *wavSource) ReadSamples(startSample, endSample int64) ([]int32, error) {
	if endSample <= startSample {
		return nil, nil
	}
	totalFrames := s.dataSize / s.blockAlign
	if startSample < 0 {
		startSample = 0
	}
	if endSample > totalFrames {
		endSample = totalFrames
	}
	if endSample <= startSample {
		return nil, nil
	}

	byteOffset := s.dataOffset + startSample*s.blockAlign
	if _, err := s.f.Seek(byteOffset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("audioio: seek: %w", err)
	}

	frameCount := endSample - startSample
	buf := make([]byte, frameCount*s.blockAlign)
	n, err := io.ReadFull(s.f, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("audioio: read samples: %w", err)
	}
	buf = buf[:n]

	bytesPerSample := s.format.BitDepth / 8
	out := make([]int32, n/bytesPerSample)
	for i := range out {
		off := i * bytesPerSample
		out[i] = decodeSample(buf[off:off+bytesPerSample], s.format.BitDepth)
	}
	return out, nil
}

func (s *wavSource) Close() error { return s.f.Close() }

// decodeSample reads a little-endian PCM sample of the given bit depth
// and rescales it to full int32 range so downstream RMS/encode code never
// needs to branch on source bit depth (mirrors the divisor table in
// birdnet.go's readAudioData, generalized to a common output scale).
func decodeSample(b []byte, bitDepth int) int32 {
	switch bitDepth {
	case 8:
		return (int32(b[0]) - 128) << 24
	case 16:
		v := int16(binary.LittleEndian.Uint16(b))
		return int32(v) << 16
	case 24:
		raw := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
		if raw&0x800000 != 0 {
			raw |= ^int32(0xFFFFFF)
		}
		return raw << 8
	case 32:
		return int32(binary.LittleEndian.Uint32(b))
	default:
		return 0
	}
}

// --- FLAC ---

type flacSource struct {
	f        *os.File
	stream   *flac.Stream
	format   Format
	duration time.Duration
}

func openFLAC(f *os.File) (*flacSource, error) {
	stream, err := flac.NewSeek(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("audioio: open FLAC stream: %w", err)
	}

	format := Format{
		SampleRate: int(stream.Info.SampleRate),
		Channels:   int(stream.Info.NChannels),
		BitDepth:   int(stream.Info.BitsPerSample),
	}

	var duration time.Duration
	if format.SampleRate > 0 {
		secs := float64(stream.Info.NSamples) / float64(format.SampleRate)
		duration = time.Duration(secs * float64(time.Second))
	}

	return &flacSource{f: f, stream: stream, format: format, duration: duration}, nil
}

func (s *flacSource) Format() Format          { return s.format }
func (s *flacSource) Duration() time.Duration { return s.duration }

func (s *flacSource) ReadSamples(startSample, endSample int64) ([]int32, error) {
	if endSample <= startSample {
		return nil, nil
	}
	if _, err := s.stream.Seek(uint64(startSample)); err != nil {
		return nil, fmt.Errorf("audioio: FLAC seek: %w", err)
	}

	shift := uint(32 - s.format.BitDepth)
	out := make([]int32, 0, (endSample-startSample)*int64(s.format.Channels))

	var decoded int64
	want := endSample - startSample
	for decoded < want {
		frame, err := s.stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("audioio: FLAC decode: %w", err)
		}
		n := int64(len(frame.Subframes[0].Samples))
		for i := int64(0); i < n && decoded < want; i++ {
			for ch := 0; ch < s.format.Channels && ch < len(frame.Subframes); ch++ {
				out = append(out, frame.Subframes[ch].Samples[i]<<shift)
			}
			decoded++
		}
	}
	return out, nil
}

func (s *flacSource) Close() error { return s.f.Close() }
