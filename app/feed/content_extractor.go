package feed

import (
	"bytes"
	"errors"
	"html"
	"log/slog"
	"strings"
	"unicode/utf8"

	"codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

const (
	MinParagraphChars = 20
	MinContentChars   = 100
)

var ErrNoContent = errors.New("no usable content extracted")

// Strategy pulls readable text out of an HTML page. ok is false when the
// result does not meet the strategy's own acceptance threshold.
type Strategy interface {
	Name() string
	Extract(data []byte) (text string, ok bool)
}

type ContentExtractor struct {
	strategies []Strategy
}

// NewContentExtractor tries strategies in order and keeps the first accepted result.
func NewContentExtractor(strategies ...Strategy) *ContentExtractor {
	return &ContentExtractor{strategies: strategies}
}

// DefaultStrategies returns paragraphs then stripped text, with readability
// first when requested.
func DefaultStrategies(withReadability bool) []Strategy {
	strategies := []Strategy{ParagraphStrategy{}, StrippedTextStrategy{}}
	if withReadability {
		strategies = append([]Strategy{ReadabilityStrategy{}}, strategies...)
	}
	return strategies
}

func (e *ContentExtractor) Run(data []byte) (string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return "", ErrNoContent
	}

	for _, strategy := range e.strategies {
		if text, ok := strategy.Extract(data); ok {
			slog.Debug("Content extracted successfully",
				"strategy", strategy.Name(),
				"content_length", utf8.RuneCountInString(text))
			return text, nil
		}
	}

	return "", ErrNoContent
}

// ParagraphStrategy joins the text of <p> elements, dropping short fragments.
type ParagraphStrategy struct{}

func (ParagraphStrategy) Name() string { return "paragraphs" }

func (ParagraphStrategy) Extract(data []byte) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", false
	}

	var paragraphs []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		text := collapseWhitespace(s.Text())
		if utf8.RuneCountInString(text) >= MinParagraphChars {
			paragraphs = append(paragraphs, text)
		}
	})

	return accept(strings.Join(paragraphs, "\n\n"))
}

// StrippedTextStrategy removes every tag (and script/style bodies) from the page.
type StrippedTextStrategy struct{}

var strictPolicy = bluemonday.StrictPolicy().AddSpaceWhenStrippingTag(true)

func (StrippedTextStrategy) Name() string { return "stripped" }

func (StrippedTextStrategy) Extract(data []byte) (string, bool) {
	return accept(PlainText(string(data)))
}

// ReadabilityStrategy renders the main article text found by readability.
type ReadabilityStrategy struct{}

func (ReadabilityStrategy) Name() string { return "readability" }

func (ReadabilityStrategy) Extract(data []byte) (string, bool) {
	article, err := readability.FromReader(bytes.NewReader(data), nil)
	if err != nil {
		return "", false
	}

	var buf strings.Builder
	if err := article.RenderText(&buf); err != nil {
		return "", false
	}

	return accept(strings.TrimSpace(buf.String()))
}

// PlainText drops markup from an HTML fragment and collapses whitespace.
func PlainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return collapseWhitespace(s)
	}
	return collapseWhitespace(html.UnescapeString(strictPolicy.Sanitize(s)))
}

func accept(text string) (string, bool) {
	if utf8.RuneCountInString(text) <= MinContentChars {
		return "", false
	}
	return text, true
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
