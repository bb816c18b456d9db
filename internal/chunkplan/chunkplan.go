// Package chunkplan converts a source's duration and a tunable config
// into an ordered list of Chunks with logical and actual (overlap-padded)
// boundaries, using the Probe to find silence-guided cut points. Plan
// never retries and never aborts for a silence-detection error — a
// failed probe window degrades to an exact cut for that boundary only.
package chunkplan

import (
	"math"

	"github.com/chunkcast/chunkcast/internal/audioio"
	"github.com/chunkcast/chunkcast/internal/config"
	"github.com/chunkcast/chunkcast/internal/probe"
)

// CutKind records how a chunk's logical end boundary was chosen.
type CutKind string

const (
	CutSilence CutKind = "silence"
	CutExact   CutKind = "exact"
	CutEnd     CutKind = "end"
)

// Chunk is an immutable plan record. Passed by value; downstream stages
// borrow it but the plan owns it.
type Chunk struct {
	Index           int
	LogicalStart    float64
	LogicalEnd      float64
	ActualStart     float64
	ActualEnd       float64
	LeadingOverlap  float64
	TrailingOverlap float64
	CutKind         CutKind
}

// Config is the planner's tunable surface, mirroring
// config.Settings.Planner. ProgressSink, if set, receives a monotonic
// percentage in [0, 100].
type Config struct {
	ChunkLengthSeconds   float64
	SilenceWindowSeconds float64
	RMSThreshold         float64
	MinSilenceDurationMs int
	OverlapSeconds       float64
	ProgressSink         func(percent float64)
}

// FromSettings builds a Config from the resolved application settings.
func FromSettings(s *config.Settings) Config {
	return Config{
		ChunkLengthSeconds:   s.Planner.ChunkLengthSeconds,
		SilenceWindowSeconds: s.Planner.SilenceWindowSeconds,
		RMSThreshold:         s.Planner.RMSThreshold,
		MinSilenceDurationMs: s.Planner.MinSilenceDurationMs,
		OverlapSeconds:       s.Planner.OverlapSeconds,
	}
}

func validate(cfg Config) error {
	if cfg.ChunkLengthSeconds <= 0 {
		return &config.ConfigError{Field: "chunk_length_seconds", Reason: "must be > 0"}
	}
	if cfg.OverlapSeconds < 0 {
		return &config.ConfigError{Field: "overlap_seconds", Reason: "must be >= 0"}
	}
	if cfg.SilenceWindowSeconds <= 0 {
		return &config.ConfigError{Field: "silence_window_seconds", Reason: "must be > 0"}
	}
	return nil
}

type cutPoint struct {
	time float64
	kind CutKind
}

// Plan implements the two-pass cut-point/overlap algorithm. The config is
// validated before any probing begins.
func Plan(src audioio.Source, cfg Config) ([]Chunk, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}

	duration := src.Duration().Seconds()

	cutPoints := []cutPoint{{time: 0}}

	for {
		lastCut := cutPoints[len(cutPoints)-1].time
		ideal := math.Min(lastCut+cfg.ChunkLengthSeconds, duration)
		if ideal >= duration-1.0 {
			break
		}

		silences, err := probe.SilencesInWindow(src, ideal, cfg.SilenceWindowSeconds, cfg.RMSThreshold, cfg.MinSilenceDurationMs)
		if err != nil {
			silences = nil // probe failure degrades to "no silences found"
		}

		var cut float64
		var kind CutKind
		if len(silences) > 0 {
			best := silences[0]
			bestScore := silenceScore(best, ideal)
			for _, s := range silences[1:] {
				sc := silenceScore(s, ideal)
				if sc > bestScore {
					best = s
					bestScore = sc
				}
			}
			cut = best.Midpoint
			kind = CutSilence
		} else {
			cut = ideal
			kind = CutExact
		}

		cutPoints = append(cutPoints, cutPoint{time: cut, kind: kind})

		if cfg.ProgressSink != nil {
			pct := 50 * math.Min(1, cut/duration)
			cfg.ProgressSink(pct)
		}
	}

	cutPoints = append(cutPoints, cutPoint{time: duration, kind: CutEnd})

	chunks := make([]Chunk, 0, len(cutPoints)-1)
	last := len(cutPoints) - 2
	for i := 0; i <= last; i++ {
		logicalStart := cutPoints[i].time
		logicalEnd := cutPoints[i+1].time

		actualStart := math.Max(0, logicalStart-cfg.OverlapSeconds)
		if i == 0 {
			actualStart = 0
		}
		actualEnd := math.Min(duration, logicalEnd+cfg.OverlapSeconds)
		if i == last {
			actualEnd = duration
		}

		chunks = append(chunks, Chunk{
			Index:           i,
			LogicalStart:    logicalStart,
			LogicalEnd:      logicalEnd,
			ActualStart:     actualStart,
			ActualEnd:       actualEnd,
			LeadingOverlap:  logicalStart - actualStart,
			TrailingOverlap: actualEnd - logicalEnd,
			CutKind:         cutPoints[i+1].kind,
		})

		if cfg.ProgressSink != nil {
			pct := 50 + 50*float64(i+1)/float64(last+1)
			cfg.ProgressSink(pct)
		}
	}

	return chunks, nil
}

// silenceScore scores a candidate silence against the ideal cut point:
// longer silences score higher, penalized by 100x the distance in
// seconds from the ideal.
func silenceScore(s probe.Silence, ideal float64) float64 {
	return s.DurationMs - math.Abs(s.Midpoint-ideal)*100
}
