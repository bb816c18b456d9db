package merge

import (
	"testing"

	"github.com/chunkcast/chunkcast/internal/chunkplan"
	"github.com/chunkcast/chunkcast/internal/transcript"
)

func word(text string, start, end float64) transcript.Word {
	return transcript.Word{Text: text, Start: start, End: end}
}

// TestMerge_KeepsCentralWords is seed scenario 4: two chunks whose
// overlap words are more central to chunk B, so B's words win and A's
// tail is dropped.
func TestMerge_KeepsCentralWords(t *testing.T) {
	chunks := []chunkplan.Chunk{
		{Index: 0, LogicalStart: 0, LogicalEnd: 10, ActualStart: 0, ActualEnd: 11},
		{Index: 1, LogicalStart: 10, LogicalEnd: 20, ActualStart: 9, ActualEnd: 20},
	}

	results := []transcript.TranscriptionResult{
		{
			Kind: transcript.Success, ChunkRef: 0,
			Words: []transcript.Word{
				word("alpha", 0, 1),
				word("tailA1", 10.1, 10.4),
				word("tailA2", 10.5, 10.8),
			},
		},
		{
			Kind: transcript.Success, ChunkRef: 1,
			Words: []transcript.Word{
				word("headB1", 1.1, 1.4),
				word("headB2", 1.5, 1.8),
				word("beta", 5, 6),
			},
		},
	}

	result := Merge(chunks, results)

	if result.Diagnostics.OverlapsMerged != 1 {
		t.Fatalf("expected 1 overlap merged, got %d", result.Diagnostics.OverlapsMerged)
	}
	if result.Diagnostics.WordsDropped != 2 {
		t.Fatalf("expected 2 words dropped, got %d", result.Diagnostics.WordsDropped)
	}

	var texts []string
	for _, w := range result.Words {
		texts = append(texts, w.Text)
	}
	want := []string{"alpha", "headB1", "headB2", "beta"}
	if len(texts) != len(want) {
		t.Fatalf("got words %v, want %v", texts, want)
	}
	for i := range want {
		if texts[i] != want[i] {
			t.Fatalf("got words %v, want %v", texts, want)
		}
	}
}

// TestMerge_NoOverlapKeepsAllWords verifies adjacent chunks whose word
// ranges don't actually overlap retain every word from both.
func TestMerge_NoOverlapKeepsAllWords(t *testing.T) {
	chunks := []chunkplan.Chunk{
		{Index: 0, LogicalStart: 0, LogicalEnd: 10, ActualStart: 0, ActualEnd: 10},
		{Index: 1, LogicalStart: 10, LogicalEnd: 20, ActualStart: 10, ActualEnd: 20},
	}
	results := []transcript.TranscriptionResult{
		{Kind: transcript.Success, ChunkRef: 0, Words: []transcript.Word{word("one", 0, 1), word("two", 1, 2)}},
		{Kind: transcript.Success, ChunkRef: 1, Words: []transcript.Word{word("three", 0, 1), word("four", 1, 2)}},
	}

	result := Merge(chunks, results)
	if result.Diagnostics.OverlapsMerged != 0 || result.Diagnostics.WordsDropped != 0 {
		t.Fatalf("expected no overlap work, got %+v", result.Diagnostics)
	}
	if len(result.Words) != 4 {
		t.Fatalf("expected 4 words, got %d", len(result.Words))
	}
}

// TestMerge_NonDuplicationInvariant checks total emitted words equals
// total input words minus words dropped.
func TestMerge_NonDuplicationInvariant(t *testing.T) {
	chunks := []chunkplan.Chunk{
		{Index: 0, LogicalStart: 0, LogicalEnd: 10, ActualStart: 0, ActualEnd: 11},
		{Index: 1, LogicalStart: 10, LogicalEnd: 20, ActualStart: 9, ActualEnd: 20},
	}
	resultsA := []transcript.Word{word("a", 0, 1), word("tail1", 9.5, 9.8), word("tail2", 9.9, 10.2)}
	resultsB := []transcript.Word{word("head1", 0.5, 0.8), word("head2", 0.9, 1.2), word("b", 5, 6)}
	results := []transcript.TranscriptionResult{
		{Kind: transcript.Success, ChunkRef: 0, Words: resultsA},
		{Kind: transcript.Success, ChunkRef: 1, Words: resultsB},
	}

	total := len(resultsA) + len(resultsB)
	result := Merge(chunks, results)
	if len(result.Words)+result.Diagnostics.WordsDropped != total {
		t.Fatalf("invariant violated: emitted %d + dropped %d != total %d", len(result.Words), result.Diagnostics.WordsDropped, total)
	}
}

// TestMerge_FallsBackWhenNoWords verifies a words-free Success result
// falls back to the token-stitching text merge.
func TestMerge_FallsBackWhenNoWords(t *testing.T) {
	chunks := []chunkplan.Chunk{
		{Index: 0, LogicalStart: 0, LogicalEnd: 10},
		{Index: 1, LogicalStart: 10, LogicalEnd: 20},
	}
	results := []transcript.TranscriptionResult{
		{Kind: transcript.Success, ChunkRef: 0, Text: "the quick brown fox jumps"},
		{Kind: transcript.Success, ChunkRef: 1, Text: "fox jumps over the lazy dog"},
	}

	result := Merge(chunks, results)
	want := "the quick brown fox jumps over the lazy dog"
	if result.Text != want {
		t.Fatalf("got %q, want %q", result.Text, want)
	}
}

func TestStitch_ShortOverlapConcatenatesWithoutStripping(t *testing.T) {
	got := stitch("hello world", "unrelated continuation")
	want := "hello world unrelated continuation"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestNormalizeToken_FoldsCaseAndStripsPunctuation(t *testing.T) {
	if normalizeToken("Hello,") != normalizeToken("hello") {
		t.Fatalf("expected punctuation-stripped, case-folded tokens to match")
	}
}
