package clean

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/vincentdare/auto-extractor/config"
)

// Pure normalizers for each record field. Every normalizer is idempotent:
// feeding its own output back in yields the same value.

var (
	nonDigitRe    = regexp.MustCompile(`[^\d]`)
	nonMoneyRe    = regexp.MustCompile(`[^\d.,]`)
	phoneArtifact = regexp.MustCompile(`^\d{1,3},\d{3}$`)
	quotesRe      = regexp.MustCompile("[\"'‘’“”]")
	punctRe       = regexp.MustCompile(`[;:,.\-]+`)
	wsRe          = regexp.MustCompile(`\s+`)

	// Academic and professional title abbreviations that OCR picks up
	// around customer names (dr., S.Kom, Sp.PD, ...).
	titlesRe = regexp.MustCompile(`(?i)\b(` +
		`dr\.?|drs\.?|dr_?|prof\.?|ir\.?|h\.?|kh\.?|tgk\.?|r\.?|hr\.?|se\.?|kt\.?|mm\.?|` +
		`s\.e\.?|m\.m\.?|s\.farm\.?|m\.farm\.?|s\.ked\.?|s\.kom\.?|m\.kom\.?|` +
		`s\.si\.?|m\.si\.?|s\.pd\.?|m\.pd\.?|s\.os\.?|m\.os\.?|s\.gz\.?|s\.t\.?|` +
		`m\.ak\.?|apt\.?|sp\.[a-z]*|spt|spd` +
		`)\b`)

	// Input date layouts tried in order; the first that parses wins. The
	// non-padded tokens accept both "5" and "05".
	dateLayouts = []string{
		"2-1-2006", "2/1/2006", "2.1.2006",
		"2-1-06", "2/1/06", "2006-1-2",
		"2-Jan-2006", "2-Jan-06", "2 January 2006", "2 Jan 2006",
	}
)

const canonicalDate = "02-01-2006"

// Cleaner validates and normalizes raw records per the configured thresholds.
type Cleaner struct {
	cfg config.CleanSettings
}

func New(cfg config.CleanSettings) *Cleaner {
	return &Cleaner{cfg: cfg}
}

// Money normalizes a monetary string to an integer amount in the smallest
// currency unit. It rejects the "1,234"-shaped artifact of a truncated phone
// number and anything below the minimum genuine loan amount; ok is false for
// rejected values.
func (c *Cleaner) Money(value string) (int64, bool) {
	cleaned := nonMoneyRe.ReplaceAllString(strings.TrimSpace(value), "")
	if cleaned == "" {
		return 0, false
	}
	if phoneArtifact.MatchString(cleaned) {
		return 0, false
	}

	digits := nonDigitRe.ReplaceAllString(cleaned, "")
	if digits == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	if v < c.cfg.MinLoanAmount {
		return 0, false
	}
	return v, true
}

// Amount parses a grouped number without the loan-amount validity checks.
// Service fees are an order of magnitude below loans, so the minimum that
// guards Money would wrongly zero them.
func Amount(value string) int64 {
	digits := nonDigitRe.ReplaceAllString(value, "")
	if digits == "" {
		return 0
	}
	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// Date reformats a date string to DD-MM-YYYY, trying each known input layout
// in order. Unparseable input is passed through unchanged; downstream
// consumers tolerate non-canonical date strings.
func Date(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(canonicalDate)
		}
	}
	return value
}

// ParseDate is the best-effort parse used for output ordering. ok is false
// when no layout matches.
func ParseDate(value string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(value)); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Name canonicalizes a customer name: unicode NFKC fold, straight and curly
// quotes dropped, title abbreviations stripped on word boundaries, stray
// punctuation removed, whitespace collapsed, upper-cased.
func Name(value string) string {
	text := norm.NFKC.String(value)
	text = quotesRe.ReplaceAllString(text, " ")
	text = titlesRe.ReplaceAllString(text, "")
	text = punctRe.ReplaceAllString(text, " ")
	text = strings.TrimSpace(wsRe.ReplaceAllString(text, " "))
	return strings.ToUpper(text)
}

// Identifier strips everything but digits.
func Identifier(value string) string {
	return nonDigitRe.ReplaceAllString(value, "")
}

// Phone strips non-digits and rewrites the international 62 prefix to the
// local leading-zero form. Values that fail ValidPhone are kept as-is rather
// than discarded; the caller decides whether a bad number drops the row.
func Phone(value string) string {
	v := nonDigitRe.ReplaceAllString(value, "")
	if strings.HasPrefix(v, "62") {
		v = "0" + v[2:]
	}
	return v
}

// ValidPhone reports whether a normalized phone number is a plausible local
// mobile number.
func (c *Cleaner) ValidPhone(v string) bool {
	return len(v) >= c.cfg.PhoneMinLen && len(v) <= c.cfg.PhoneMaxLen && strings.HasPrefix(v, "0")
}
