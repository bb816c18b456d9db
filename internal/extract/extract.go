// Package extract produces a self-contained audio payload for a single
// chunk, implementing the "decoded re-encode" strategy exclusively:
// decode the chunk's actual sample range and emit uncompressed linear
// PCM WAV. The RIFF header is assembled by hand with encoding/binary,
// the same way internal/audiocore/export's encodeWAV writes one — this
// just walks the opposite direction, scaling the source's native bit
// depth down to 16-bit output samples.
package extract

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/chunkcast/chunkcast/internal/apperrors"
	"github.com/chunkcast/chunkcast/internal/audioio"
	"github.com/chunkcast/chunkcast/internal/chunkplan"
)

// ErrTooLarge is returned (unwrapped) when the encoded payload exceeds
// maxBytes.
type ErrTooLarge struct {
	Bytes    int64
	MaxBytes int64
}

func (e *ErrTooLarge) Error() string {
	return fmt.Sprintf("extract: payload %d bytes exceeds ceiling %d bytes", e.Bytes, e.MaxBytes)
}

// ToWAV decodes the chunk's actual sample range from src and returns a
// linear PCM WAV payload (mono or multi-channel, 16-bit), closing no
// resources of its own — the caller retains ownership of src and its
// underlying decoder context, closing it in a defer on both the success
// and error paths per the component contract.
func ToWAV(src audioio.Source, c chunkplan.Chunk, maxBytes int64) ([]byte, error) {
	format := src.Format()
	if format.SampleRate <= 0 || format.Channels <= 0 {
		return nil, apperrors.New(fmt.Errorf("invalid source format: %+v", format)).
			Component("extract").WithCategory(apperrors.CategoryExtract).Build()
	}

	startSample := int64(math.Floor(c.ActualStart * float64(format.SampleRate)))
	endSample := int64(math.Ceil(c.ActualEnd * float64(format.SampleRate)))

	samples, err := src.ReadSamples(startSample, endSample)
	if err != nil {
		return nil, apperrors.New(err).
			Component("extract").
			WithCategory(apperrors.CategoryExtract).
			Ctx("chunk_index", c.Index).
			Build()
	}

	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := int16(s >> 16) // full int32 range down to 16-bit
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}

	wav, err := encodeWAV(pcm, format.SampleRate, format.Channels, 16)
	if err != nil {
		return nil, err
	}

	if int64(len(wav)) > maxBytes {
		return nil, &ErrTooLarge{Bytes: int64(len(wav)), MaxBytes: maxBytes}
	}
	return wav, nil
}

// encodeWAV builds a RIFF/WAVE byte stream around pcmData, mirroring
// internal/audiocore/export's encodeWAV field-by-field.
func encodeWAV(pcmData []byte, sampleRate, channels, bitDepth int) ([]byte, error) {
	byteRate := sampleRate * channels * (bitDepth / 8)
	blockAlign := channels * (bitDepth / 8)
	subChunk2Size := uint32(len(pcmData))
	chunkSize := 36 + subChunk2Size

	buffer := bytes.NewBuffer(nil)

	elements := []any{
		[]byte("RIFF"),
		chunkSize,
		[]byte("WAVE"),
		[]byte("fmt "),
		uint32(16),
		uint16(1),
		uint16(channels),
		uint32(sampleRate),
		uint32(byteRate),
		uint16(blockAlign),
		uint16(bitDepth),
		[]byte("data"),
		subChunk2Size,
	}

	for _, elem := range elements {
		if b, ok := elem.([]byte); ok {
			if _, err := buffer.Write(b); err != nil {
				return nil, apperrors.New(err).Component("extract").WithCategory(apperrors.CategoryExtract).Build()
			}
			continue
		}
		if err := binary.Write(buffer, binary.LittleEndian, elem); err != nil {
			return nil, apperrors.New(err).Component("extract").WithCategory(apperrors.CategoryExtract).Build()
		}
	}

	if _, err := buffer.Write(pcmData); err != nil {
		return nil, apperrors.New(err).Component("extract").WithCategory(apperrors.CategoryExtract).Build()
	}

	return buffer.Bytes(), nil
}
