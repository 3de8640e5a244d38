package extract

import (
	"regexp"
	"strconv"
)

// The monetary triple (appraisal, loan amount, service fee) occupies the
// trailing columns of a due-date row. Leading noise (page numbers, codes) is
// far more common than trailing noise, so after filtering, the last three
// surviving candidates in left-to-right order are taken as the triple.
//
// Each filter below is a named predicate so heuristic changes stay localized
// and regression-testable.

var (
	amountRe    = regexp.MustCompile(`\d{1,3}(?:[.,]\d{3})+|\d{3,}`)
	totalLineRe = regexp.MustCompile(`(?i)TOTAL.*`)
	nonDigitRe  = regexp.MustCompile(`[^\d]`)
)

// candidate is one digit run considered as a monetary value.
type candidate struct {
	text   string
	value  int64
	digits int // digit count of the source token, separators excluded
}

func digitsValue(s string) int64 {
	clean := nonDigitRe.ReplaceAllString(s, "")
	if clean == "" {
		return 0
	}
	v, err := strconv.ParseInt(clean, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// isLoanNumber: a 16-digit run is the record identifier, never an amount.
func (e *Extractor) isLoanNumber(c candidate) bool {
	return c.digits == 16
}

// isYear: a bare 4-digit run is a year column leak (2024, 2025, ...).
func (e *Extractor) isYear(c candidate) bool {
	return c.digits == 4
}

// isPhoneValue: a local mobile number read as an integer lands between
// 0.8e9 and 9e11; genuine loan amounts never do.
func (e *Extractor) isPhoneValue(c candidate) bool {
	return c.value >= e.cfg.PhoneValueLow && c.value <= e.cfg.PhoneValueHigh
}

// isDeniedTotal: a footer TOTAL value known to bleed into record text on
// specific source pages (configured denylist).
func (e *Extractor) isDeniedTotal(c candidate) bool {
	for _, v := range e.cfg.DenyTotals {
		if c.value == v {
			return true
		}
	}
	return false
}

// inPlausibleRange: small enough to be a fee, large enough to not be a
// column index.
func (e *Extractor) inPlausibleRange(c candidate) bool {
	return c.value >= e.cfg.MoneyMin && c.value < e.cfg.MoneyMax
}

// moneyCandidates collects the surviving monetary candidates of a chunk in
// left-to-right order. Anything after a TOTAL marker is discarded first.
func (e *Extractor) moneyCandidates(text string) []candidate {
	text = totalLineRe.ReplaceAllString(text, "")

	var out []candidate
	for _, tok := range amountRe.FindAllString(text, -1) {
		c := candidate{
			text:   tok,
			value:  digitsValue(tok),
			digits: len(nonDigitRe.ReplaceAllString(tok, "")),
		}
		if e.isLoanNumber(c) || e.isYear(c) || e.isPhoneValue(c) || e.isDeniedTotal(c) {
			continue
		}
		if !e.inPlausibleRange(c) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// MoneyTriple selects (appraisal, loan amount, service fee) from a chunk's
// filtered candidates. With fewer than three survivors the values right-align
// into the triple and the missing leading slots stay zero.
func (e *Extractor) MoneyTriple(text string) (appraisal, loan, fee int64) {
	cands := e.moneyCandidates(text)

	vals := [3]int64{}
	n := len(cands)
	if n > 3 {
		cands = cands[n-3:]
		n = 3
	}
	for i, c := range cands {
		vals[3-n+i] = c.value
	}
	return vals[0], vals[1], vals[2]
}
