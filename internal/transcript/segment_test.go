package transcript

import (
	"strings"
	"testing"
)

func TestSplitSentences(t *testing.T) {
	segments := SplitSentences("First. Second! Third? Tail without ender", DefaultSegmentConfig())
	want := []string{"First.", " Second!", " Third?", " Tail without ender"}
	if len(segments) != len(want) {
		t.Fatalf("Expected %d segments, got %d: %v", len(want), len(segments), segments)
	}
	for i, w := range want {
		if segments[i] != w {
			t.Errorf("Expected segment %d %q, got %q", i, w, segments[i])
		}
	}
}

func TestSplitSentencesCJK(t *testing.T) {
	segments := SplitSentences("你好。再见！", DefaultSegmentConfig())
	if len(segments) != 2 || segments[0] != "你好。" || segments[1] != "再见！" {
		t.Errorf("Expected CJK punctuation split, got %v", segments)
	}
}

func TestSplitSentencesJoinIdentity(t *testing.T) {
	inputs := []string{
		"",
		"no punctuation at all just words running on",
		"Mixed。English and 中文! With tails",
		strings.Repeat("long unbroken stretch of text ", 20),
	}
	for _, in := range inputs {
		segments := SplitSentences(in, SegmentConfig{MaxLength: 120, MinChunk: 60, MaxChunk: 100, Seed: 7})
		if got := strings.Join(segments, ""); got != in {
			t.Errorf("Expected segments to rejoin into the input, got %q", got)
		}
	}
}

func TestSplitSentencesChunksLongRuns(t *testing.T) {
	config := SegmentConfig{MaxLength: 120, MinChunk: 60, MaxChunk: 100, Seed: 42}
	in := strings.Repeat("a", 500)

	segments := SplitSentences(in, config)
	if len(segments) < 2 {
		t.Fatalf("Expected long run to be chunked, got %d segments", len(segments))
	}
	for i, s := range segments {
		n := len([]rune(s))
		if n > config.MaxChunk {
			t.Errorf("Expected chunk %d at most %d runes, got %d", i, config.MaxChunk, n)
		}
		// The final two chunks may fall short when the tail is
		// rebalanced; everything before them obeys the band.
		if i < len(segments)-2 && n < config.MinChunk {
			t.Errorf("Expected chunk %d at least %d runes, got %d", i, config.MinChunk, n)
		}
	}
	if got := strings.Join(segments, ""); got != in {
		t.Error("Expected chunked segments to rejoin into the input")
	}
}

func TestSplitSentencesRebalancesTail(t *testing.T) {
	config := SegmentConfig{MaxLength: 100, MinChunk: 60, MaxChunk: 100, Seed: 3}
	in := strings.Repeat("c", 110)

	segments := SplitSentences(in, config)
	if len(segments) != 2 {
		t.Fatalf("Expected 2 even chunks, got %d: %v", len(segments), segments)
	}
	for i, s := range segments {
		if n := len([]rune(s)); n > config.MaxChunk {
			t.Errorf("Expected chunk %d at most %d runes, got %d", i, config.MaxChunk, n)
		}
	}
	if got := strings.Join(segments, ""); got != in {
		t.Error("Expected chunks to rejoin into the input")
	}
}

func TestSplitSentencesDeterministicSeed(t *testing.T) {
	config := SegmentConfig{MaxLength: 120, MinChunk: 60, MaxChunk: 100, Seed: 1}
	in := strings.Repeat("b", 400)

	first := SplitSentences(in, config)
	second := SplitSentences(in, config)
	if len(first) != len(second) {
		t.Fatalf("Expected identical segmentation, got %d vs %d segments", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("Expected segment %d to match across runs", i)
		}
	}
}

func TestJoinResults(t *testing.T) {
	got := JoinResults([]SourceResult{
		{Label: "meeting.wav", Text: "hello"},
		{Label: "call.mp3", Err: "transcription timeout"},
	})
	want := "meeting.wav:\nhello\n\ncall.mp3:\ntranscription timeout"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}

	if got := JoinResults(nil); got != "" {
		t.Errorf("Expected empty string for no results, got %q", got)
	}
}
