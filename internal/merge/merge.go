// Package merge resolves the duplicated overlap region between adjacent
// chunk transcripts into one deduplicated stream, using the positional
// centrality of each word within its chunk's logical window to decide
// which side of an overlap is authoritative.
package merge

import (
	"strings"

	"github.com/chunkcast/chunkcast/internal/chunkplan"
	"github.com/chunkcast/chunkcast/internal/transcript"
)

// overlapTolerance widens the boundary a word must fall within to be
// considered part of an overlap's tail/head set.
const overlapTolerance = 0.1

// ScoredWord is a Word lifted to absolute time with its centrality score.
type ScoredWord struct {
	transcript.Word
	AbsStart   float64
	AbsEnd     float64
	Centrality float64
}

// Diagnostics reports how much merging work Step 2 did.
type Diagnostics struct {
	OverlapsMerged int
	WordsDropped   int
}

// Result is the merged transcript plus its diagnostics.
type Result struct {
	Text        string
	Words       []ScoredWord
	Diagnostics Diagnostics
}

// chunkWords holds one surviving chunk's full word list and the
// currently-retained sub-range [startIdx, endIdx) as Step 2 narrows it.
type chunkWords struct {
	chunk    chunkplan.Chunk
	words    []ScoredWord
	startIdx int
	endIdx   int
}

// Merge resolves results against their originating chunks into one
// deduplicated transcript. results need not be sorted; chunks is indexed
// by chunk index.
func Merge(chunks []chunkplan.Chunk, results []transcript.TranscriptionResult) Result {
	surviving := liftSurvivingChunks(chunks, results)
	if len(surviving) == 0 {
		return Result{Text: fallbackMerge(textOnlyResults(results))}
	}

	diag := resolveOverlaps(surviving)

	var words []ScoredWord
	var textParts []string
	for _, cw := range surviving {
		for _, w := range cw.words[cw.startIdx:cw.endIdx] {
			words = append(words, w)
			textParts = append(textParts, w.Text)
		}
	}

	return Result{
		Text:        strings.Join(textParts, " "),
		Words:       words,
		Diagnostics: diag,
	}
}

// liftSurvivingChunks keeps only Success results with a non-empty words
// array, computes absolute times and centrality for every word, and
// orders the result by chunk index.
func liftSurvivingChunks(chunks []chunkplan.Chunk, results []transcript.TranscriptionResult) []*chunkWords {
	byIndex := make(map[int]chunkplan.Chunk, len(chunks))
	for _, c := range chunks {
		byIndex[c.Index] = c
	}

	var out []*chunkWords
	for _, r := range results {
		if r.Kind != transcript.Success || len(r.Words) == 0 {
			continue
		}
		chunk, ok := byIndex[r.ChunkRef]
		if !ok {
			continue
		}

		half := (chunk.LogicalEnd - chunk.LogicalStart) / 2
		words := make([]ScoredWord, len(r.Words))
		for i, w := range r.Words {
			absStart := chunk.ActualStart + w.Start
			absEnd := chunk.ActualStart + w.End
			centrality := 0.0
			if half != 0 {
				centrality = min(absStart-chunk.LogicalStart, chunk.LogicalEnd-absEnd) / half
			}
			words[i] = ScoredWord{Word: w, AbsStart: absStart, AbsEnd: absEnd, Centrality: centrality}
		}

		out = append(out, &chunkWords{chunk: chunk, words: words, startIdx: 0, endIdx: len(words)})
	}

	sortByChunkIndex(out)
	return out
}

func sortByChunkIndex(cws []*chunkWords) {
	for i := 1; i < len(cws); i++ {
		for j := i; j > 0 && cws[j].chunk.Index < cws[j-1].chunk.Index; j-- {
			cws[j], cws[j-1] = cws[j-1], cws[j]
		}
	}
}

// resolveOverlaps walks adjacent pairs in plan order, narrowing whichever
// side's retained range loses the centrality comparison.
func resolveOverlaps(surviving []*chunkWords) Diagnostics {
	var diag Diagnostics

	for i := 1; i < len(surviving); i++ {
		a := surviving[i-1]
		b := surviving[i]

		if a.endIdx <= a.startIdx || b.endIdx <= b.startIdx {
			continue
		}

		ovStart := b.words[b.startIdx].AbsStart
		ovEnd := a.words[a.endIdx-1].AbsEnd
		if ovEnd <= ovStart {
			continue
		}
		diag.OverlapsMerged++

		aTailStart := a.endIdx
		for j := a.startIdx; j < a.endIdx; j++ {
			if a.words[j].AbsStart >= ovStart-overlapTolerance {
				aTailStart = j
				break
			}
		}

		bHeadEnd := b.startIdx
		for j := b.startIdx; j < b.endIdx; j++ {
			if b.words[j].AbsStart <= ovEnd+overlapTolerance {
				bHeadEnd = j + 1
			} else {
				break
			}
		}

		meanA := meanCentrality(a.words[aTailStart:a.endIdx])
		meanB := meanCentrality(b.words[b.startIdx:bHeadEnd])

		if meanA > meanB {
			diag.WordsDropped += bHeadEnd - b.startIdx
			b.startIdx = bHeadEnd
		} else {
			diag.WordsDropped += a.endIdx - aTailStart
			a.endIdx = aTailStart
		}
	}

	return diag
}

func meanCentrality(words []ScoredWord) float64 {
	if len(words) == 0 {
		return 0
	}
	sum := 0.0
	for _, w := range words {
		sum += w.Centrality
	}
	return sum / float64(len(words))
}

func textOnlyResults(results []transcript.TranscriptionResult) []string {
	var texts []string
	for _, r := range results {
		if r.Kind == transcript.Success && strings.TrimSpace(r.Text) != "" {
			texts = append(texts, r.Text)
		}
	}
	return texts
}
