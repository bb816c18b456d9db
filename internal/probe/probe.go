// Package probe computes duration, silence regions, and a low-resolution
// waveform for an audio source without decoding more than the requested
// window. RMS-over-fixed-frames silence detection is grounded on
// other_examples' asr.calculateRMS/detectSpeechBlocksBySilence, adapted
// from an ffmpeg-piped stream to audioio.Source's random-access reads.
package probe

import (
	"math"

	"github.com/chunkcast/chunkcast/internal/audioio"
)

// Silence is a detected quiet region inside an audio window. Times are
// absolute (offset by the window start), in seconds.
type Silence struct {
	Start      float64
	End        float64
	DurationMs float64
	Midpoint   float64
}

// Duration returns the source's total playable duration, in seconds.
func Duration(src audioio.Source) float64 {
	return src.Duration().Seconds()
}

// SilencesInWindow analyzes only [max(0, center-window/2), min(duration,
// center+window/2)], computing RMS over fixed 50ms non-overlapping frames.
// A contiguous run of frames whose RMS is strictly below rmsThreshold is a
// candidate; it is emitted as a Silence only once its total span reaches
// minSilenceMs.
func SilencesInWindow(src audioio.Source, center, windowSeconds, rmsThreshold float64, minSilenceMs int) ([]Silence, error) {
	duration := src.Duration().Seconds()
	sampleRate := src.Format().SampleRate
	channels := src.Format().Channels
	if sampleRate == 0 || channels == 0 {
		return nil, nil
	}

	windowStart := math.Max(0, center-windowSeconds/2)
	windowEnd := math.Min(duration, center+windowSeconds/2)
	if windowEnd <= windowStart {
		return nil, nil
	}

	frameSeconds := 0.05
	frameSamples := int(frameSeconds * float64(sampleRate))
	if frameSamples <= 0 {
		return nil, nil
	}

	startSample := int64(windowStart * float64(sampleRate))
	endSample := int64(windowEnd * float64(sampleRate))

	var silences []Silence
	var runStartFrame = -1
	frameIndex := 0

	flush := func(endFrame int) {
		if runStartFrame < 0 {
			return
		}
		startSec := windowStart + float64(runStartFrame)*frameSeconds
		endSec := windowStart + float64(endFrame)*frameSeconds
		durMs := (endSec - startSec) * 1000
		if durMs >= float64(minSilenceMs) {
			silences = append(silences, Silence{
				Start:      startSec,
				End:        endSec,
				DurationMs: durMs,
				Midpoint:   (startSec + endSec) / 2,
			})
		}
		runStartFrame = -1
	}

	for frameStart := startSample; frameStart < endSample; frameStart += int64(frameSamples) {
		frameEnd := frameStart + int64(frameSamples)
		if frameEnd > endSample {
			frameEnd = endSample
		}

		samples, err := src.ReadSamples(frameStart, frameEnd)
		if err != nil {
			flush(frameIndex)
			return silences, err
		}

		rms := calculateRMS(samples)
		if rms < rmsThreshold {
			if runStartFrame < 0 {
				runStartFrame = frameIndex
			}
		} else {
			flush(frameIndex)
		}
		frameIndex++
	}
	flush(frameIndex)

	return silences, nil
}

// calculateRMS computes root-mean-square amplitude over interleaved
// int32 PCM samples, normalized to full int32 range.
func calculateRMS(samples []int32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s) / float64(math.MaxInt32)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// longFileThresholdSeconds is the design default above which Waveform
// switches to a sampled-snippet strategy so peak memory stays O(snippet).
const longFileThresholdSeconds = 10 * 60

// snippetSeconds is the width of each decoded snippet in the sampled
// strategy.
const snippetSeconds = 0.5

// Waveform produces a peak-amplitude summary of length numPoints, each
// value in [0,1]. Files longer than longFileThresholdSeconds are sampled
// at regular intervals rather than decoded in full.
func Waveform(src audioio.Source, numPoints int) ([]float64, error) {
	if numPoints <= 0 {
		return nil, nil
	}
	duration := src.Duration().Seconds()
	sampleRate := src.Format().SampleRate
	channels := src.Format().Channels
	if duration <= 0 || sampleRate == 0 || channels == 0 {
		return make([]float64, numPoints), nil
	}

	out := make([]float64, numPoints)

	if duration <= longFileThresholdSeconds {
		segmentSeconds := duration / float64(numPoints)
		for i := 0; i < numPoints; i++ {
			start := int64(float64(i) * segmentSeconds * float64(sampleRate))
			end := int64(float64(i+1) * segmentSeconds * float64(sampleRate))
			out[i] = peakAmplitude(src, start, end)
		}
		return out, nil
	}

	stride := duration / float64(numPoints)
	for i := 0; i < numPoints; i++ {
		center := float64(i) * stride
		start := int64(math.Max(0, center-snippetSeconds/2) * float64(sampleRate))
		end := int64(math.Min(duration, center+snippetSeconds/2) * float64(sampleRate))
		out[i] = peakAmplitude(src, start, end)
	}
	return out, nil
}

func peakAmplitude(src audioio.Source, startSample, endSample int64) float64 {
	samples, err := src.ReadSamples(startSample, endSample)
	if err != nil || len(samples) == 0 {
		return 0
	}
	var peak int32
	for _, s := range samples {
		abs := s
		if abs < 0 {
			abs = -abs
		}
		if abs > peak {
			peak = abs
		}
	}
	return float64(peak) / float64(math.MaxInt32)
}
