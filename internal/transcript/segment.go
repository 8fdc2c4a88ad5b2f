package transcript

import (
	"math/rand"
	"strings"
)

// Sentence enders recognized by the splitter. Covers Latin terminal
// punctuation and the CJK full-width equivalents.
var sentenceEnders = map[rune]bool{
	'.': true, '!': true, '?': true,
	'。': true, '！': true, '？': true,
	'；': true, ';': true,
}

// SegmentConfig bounds display segmentation. Segments longer than
// MaxLength runes are re-chunked at a pseudo-random length between
// MinChunk and MaxChunk so long unpunctuated stretches stay editable.
type SegmentConfig struct {
	MaxLength int
	MinChunk  int
	MaxChunk  int
	Seed      int64
}

// DefaultSegmentConfig returns the segmentation bounds used for
// history display.
func DefaultSegmentConfig() SegmentConfig {
	return SegmentConfig{
		MaxLength: 120,
		MinChunk:  60,
		MaxChunk:  100,
	}
}

// SplitSentences breaks text into display segments on sentence-ending
// punctuation. Segmentation never alters the text: joining the
// returned segments reproduces the input exactly.
func SplitSentences(text string, config SegmentConfig) []string {
	if text == "" {
		return nil
	}
	if config.MaxLength <= 0 {
		config = DefaultSegmentConfig()
	}

	var sentences []string
	var current []rune
	for _, r := range text {
		current = append(current, r)
		if sentenceEnders[r] {
			sentences = append(sentences, string(current))
			current = current[:0]
		}
	}
	if len(current) > 0 {
		sentences = append(sentences, string(current))
	}

	rng := rand.New(rand.NewSource(config.Seed))
	var out []string
	for _, s := range sentences {
		out = append(out, chunkLong(s, config, rng)...)
	}
	return out
}

// chunkLong splits an over-long sentence at pseudo-random rune counts
// within the configured band.
func chunkLong(s string, config SegmentConfig, rng *rand.Rand) []string {
	runes := []rune(s)
	if len(runes) <= config.MaxLength {
		return []string{s}
	}

	minChunk, maxChunk := config.MinChunk, config.MaxChunk
	if minChunk <= 0 || maxChunk < minChunk {
		minChunk, maxChunk = config.MaxLength/2, config.MaxLength
	}

	var out []string
	for len(runes) > 0 {
		if len(runes) <= maxChunk {
			out = append(out, string(runes))
			break
		}
		n := minChunk
		if maxChunk > minChunk {
			n += rng.Intn(maxChunk - minChunk + 1)
		}
		// A cut that would strand a sub-minimum tail is rebalanced into
		// two even pieces so no chunk exceeds the maximum.
		if len(runes)-n < minChunk {
			n = (len(runes) + 1) / 2
		}
		out = append(out, string(runes[:n]))
		runes = runes[n:]
	}
	return out
}

// SourceResult is the final transcript of one queued audio source.
// Queued sources keep independent results so each can be edited on its
// own rather than being merged into one buffer.
type SourceResult struct {
	Label string `json:"label"`
	Text  string `json:"text"`
	Err   string `json:"error,omitempty"`
}

// JoinResults renders labeled results as one display string, each
// source under its own header line.
func JoinResults(results []SourceResult) string {
	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(r.Label)
		sb.WriteString(":\n")
		if r.Err != "" {
			sb.WriteString(r.Err)
		} else {
			sb.WriteString(r.Text)
		}
	}
	return sb.String()
}
