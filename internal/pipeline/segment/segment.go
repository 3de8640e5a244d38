package segment

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vincentdare/auto-extractor/config"
	"github.com/vincentdare/auto-extractor/internal/models"
)

// Chunk is a contiguous substring of a page's recognized text attributed to
// one customer row, anchored on its SBG/Kredit number.
type Chunk struct {
	LoanNumber string
	Text       string
}

var (
	anchorRe = regexp.MustCompile(`\d{15,16}`)
	loanNoRe = regexp.MustCompile(`\b(\d{15,16})\b`)
	wsRe     = regexp.MustCompile(`\s+`)
	dateRe   = regexp.MustCompile(`\b\d{2}-\d{2}-\d{4}\b`)
	capsRe   = regexp.MustCompile(`[A-Z]{3,}`)

	// OCR drops inter-column whitespace unpredictably; re-insert a
	// separator wherever a letter run and a digit run were fused.
	letterDigitRe = regexp.MustCompile(`([A-Za-z])(\d)`)
	digitLetterRe = regexp.MustCompile(`(\d)([A-Za-z])`)
	// The letter o read in place of trailing zeros, e.g. "1,202,0oo".
	trailingOhRe = regexp.MustCompile(`(\d+,\d+)\s*[oO]+\b`)
	disallowedRe = regexp.MustCompile(`[^0-9A-Za-z\s.,\-:/]`)
)

// ExtractLoanNumber returns the first 15-16 digit run in text, or "".
func ExtractLoanNumber(text string) string {
	if m := loanNoRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// Segmenter splits a page's recognized text into validated record chunks.
type Segmenter struct {
	minChunkLen int
	trailers    []*regexp.Regexp
	corrections []correction
}

type correction struct {
	re      *regexp.Regexp
	replace string
}

// New compiles the trailer and correction patterns from settings.
func New(cfg config.SegmentSettings) (*Segmenter, error) {
	s := &Segmenter{minChunkLen: cfg.MinChunkLen}
	for _, p := range cfg.TrailerPatterns {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			return nil, fmt.Errorf("invalid trailer pattern %q: %w", p, err)
		}
		s.trailers = append(s.trailers, re)
	}
	for _, c := range cfg.Corrections {
		re, err := regexp.Compile(c.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid correction pattern %q: %w", c.Pattern, err)
		}
		s.corrections = append(s.corrections, correction{re: re, replace: c.Replace})
	}
	return s, nil
}

// Normalize prepares raw OCR page text for segmentation: whitespace collapse,
// configured misread corrections, separator insertion between fused letter and
// digit runs, and removal of characters outside the allowed set.
func (s *Segmenter) Normalize(text string) string {
	text = wsRe.ReplaceAllString(text, " ")
	for _, c := range s.corrections {
		text = c.re.ReplaceAllString(text, c.replace)
	}
	text = letterDigitRe.ReplaceAllString(text, "$1 $2")
	text = digitLetterRe.ReplaceAllString(text, "$1 $2")
	text = trailingOhRe.ReplaceAllString(text, "$1")
	text = disallowedRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(wsRe.ReplaceAllString(text, " "))
}

// Split locates every loan-number anchor in normalized page text and slices
// one chunk per anchor. Chunk i ends at anchor i+1; the final chunk ends at
// the first trailer keyword (TOTAL line, signature block) or end of text.
// Chunks that fail validation for the class are dropped, not retried.
func (s *Segmenter) Split(text string, class models.DocumentClass) []Chunk {
	anchors := anchorRe.FindAllStringIndex(text, -1)
	if len(anchors) == 0 {
		return nil
	}

	chunks := make([]Chunk, 0, len(anchors))
	for i, loc := range anchors {
		var raw string
		if i+1 < len(anchors) {
			raw = text[loc[0]:anchors[i+1][0]]
		} else {
			tail := text[loc[0]:]
			if cut := s.trailerIndex(tail); cut >= 0 {
				tail = tail[:cut]
			}
			raw = tail
		}

		chunk := Chunk{
			LoanNumber: text[loc[0]:loc[1]],
			Text:       strings.TrimSpace(wsRe.ReplaceAllString(raw, " ")),
		}
		if s.accept(chunk, class) {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

// trailerIndex returns the earliest trailer match position in text, or -1.
func (s *Segmenter) trailerIndex(text string) int {
	cut := -1
	for _, re := range s.trailers {
		if loc := re.FindStringIndex(text); loc != nil {
			if cut < 0 || loc[0] < cut {
				cut = loc[0]
			}
		}
	}
	return cut
}

func (s *Segmenter) matchesTrailer(text string) bool {
	for _, re := range s.trailers {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// accept decides whether a candidate chunk is a genuine customer record.
//
// The due-date layout demands that re-extracting the loan number from the
// chunk yields exactly the anchor that produced it; problem-credit scans are
// cleaner, so a looser rule applies: the identifier plus either a date or a
// name-like run of capitals.
func (s *Segmenter) accept(c Chunk, class models.DocumentClass) bool {
	if class == models.ProblemCredit {
		if ExtractLoanNumber(c.Text) == "" {
			return false
		}
		return dateRe.MatchString(c.Text) || capsRe.MatchString(c.Text)
	}

	if len(c.Text) < s.minChunkLen {
		return false
	}
	if s.matchesTrailer(c.Text) {
		return false
	}
	return ExtractLoanNumber(c.Text) == c.LoanNumber
}
