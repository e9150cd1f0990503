package enhancer

import (
	"strings"

	"github.com/neurosnap/sentences"
)

// joiner is built lazily from an optional embedded Punkt training blob
// (set via SetTrainingData, typically at process startup from the same
// config-embedded asset fbc's content/text.NewSplitter loads per-language).
// When no training data has been supplied, sentenceJoin falls back to a
// naive whitespace join — the same "turning off sentence splitting" degrade
// path content/text/sentences.go takes when no model is available for a
// requested language.
var joiner *sentences.DefaultSentenceTokenizer

// SetTrainingData installs a Punkt training blob (the same JSON format
// produced by github.com/neurosnap/sentences' training tools and embedded
// by fbc's content/text package) used to segment OCR word clusters into
// sentence-level runs. Safe to call once at startup; a parse failure
// returns the error and leaves the previously installed tokenizer (none, by
// default) in place.
func SetTrainingData(data []byte) error {
	model, err := sentences.LoadTraining(data)
	if err != nil {
		return err
	}
	joiner = sentences.NewSentenceTokenizer(model)
	return nil
}

// sentenceJoin joins OCR word-cluster fragments into sentence-level runs
// (§7 "OCR text via neurosnap/sentences sentence segmentation"). Word
// clusters arrive as raw OCR tokens with no guaranteed whitespace
// semantics, so fragments are joined with single spaces and, when a
// tokenizer model is installed, resegmented into sentences joined by "\n"
// so a multi-sentence caption remains one string per node.
func sentenceJoin(fragments []string) string {
	text := strings.Join(strings.Fields(strings.Join(fragments, " ")), " ")
	if joiner == nil {
		return text
	}
	sents := joiner.Tokenize(text)
	if len(sents) == 0 {
		return text
	}
	out := make([]string, 0, len(sents))
	for _, s := range sents {
		if t := strings.TrimSpace(s.Text); t != "" {
			out = append(out, t)
		}
	}
	return strings.Join(out, "\n")
}
