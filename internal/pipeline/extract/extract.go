package extract

import (
	"context"
	"image"
	"regexp"
	"sort"
	"strings"

	"github.com/vincentdare/auto-extractor/config"
	"github.com/vincentdare/auto-extractor/internal/models"
	"github.com/vincentdare/auto-extractor/internal/pipeline/segment"
)

// UnknownName is the sentinel a problem-credit record carries when every name
// heuristic failed. Such records are logged to the missing-names audit file
// instead of being dropped silently.
const UnknownName = "UNKNOWN_NASABAH"

var (
	phoneRe      = regexp.MustCompile(`08\d{8,11}`)
	dateRe       = regexp.MustCompile(`\b\d{2}-\d{2}-\d{4}\b`)
	groupedNumRe = regexp.MustCompile(`\d{1,3}[.,]\d{3}`)
	loanNoRe     = regexp.MustCompile(`\d{15,16}`)
	edgePunctRe  = regexp.MustCompile(`^[\W_]+|[\W_]+$`)

	// Problem-credit scans carry separator-laced numbers, and OCR sometimes
	// reads the leading 08 as 02. Matches are digit-stripped before the
	// length check.
	pcPhoneRe  = regexp.MustCompile(`0[82]\d[\d\s\-]{7,15}`)
	phoneSepRe = regexp.MustCompile(`[\s\-]`)

	// Problem-credit rows carry a branch short code and CIF number between
	// the loan number and the customer name; the name runs to the first
	// date column.
	pcNameRe  = regexp.MustCompile(`\d{15,16}\s+\d{6,12}\s+(.*?)\s+\d{2}-\d{2}-\d{4}`)
	capsRunRe = regexp.MustCompile(`[A-Z][A-Z\s.,\-']{2,}`)

	summaryRe = regexp.MustCompile(`(?i)Uang Pinjaman SM(.*)`)
	numRunRe  = regexp.MustCompile(`\d[\d.,]*`)
)

// RegionReader performs a secondary recognition pass over a cropped page
// region, the last-resort fallback for an unreadable problem-credit name.
type RegionReader interface {
	ReadRegion(ctx context.Context, imagePath string, box image.Rectangle) (string, error)
}

// Extractor pulls typed fields out of validated record chunks. Extraction
// relies on the relative order of token types (identifier, name, phone,
// dates, amounts), which OCR preserves even when column spacing is lost.
type Extractor struct {
	cfg     config.ExtractSettings
	regions RegionReader // optional
}

func New(cfg config.ExtractSettings) *Extractor {
	return &Extractor{cfg: cfg}
}

// WithRegionReader enables the cropped-region fallback for problem-credit
// names.
func (e *Extractor) WithRegionReader(r RegionReader) *Extractor {
	e.regions = r
	return e
}

// DueDate extracts a raw record from a due-date report chunk.
func (e *Extractor) DueDate(c segment.Chunk) models.RawRecord {
	rec := models.RawRecord{
		Class:      models.DueDate,
		LoanNumber: segment.ExtractLoanNumber(c.Text),
		RawText:    c.Text,
	}
	rec.Customer = e.dueDateName(c.Text)
	rec.Phone = e.phones(c.Text)
	rec.CreditDate, rec.DueDate = dates(c.Text)
	rec.Appraisal, rec.LoanAmount, rec.ServiceFee = e.MoneyTriple(c.Text)
	return rec
}

// dueDateName takes the substring after the loan number and cuts it at
// whichever terminator appears first: a phone number, a date, or a
// thousands-grouped amount.
func (e *Extractor) dueDateName(text string) string {
	loc := loanNoRe.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	tail := strings.TrimSpace(text[loc[1]:])
	if tail == "" {
		return ""
	}

	cutoff := len(tail)
	for _, re := range []*regexp.Regexp{phoneRe, dateRe, groupedNumRe} {
		if m := re.FindStringIndex(tail); m != nil && m[0] < cutoff {
			cutoff = m[0]
		}
	}
	return strings.TrimSpace(edgePunctRe.ReplaceAllString(tail[:cutoff], ""))
}

// phones collects every local mobile number in the chunk: an 08 prefix
// followed by 8-11 digits, total length 10-13. Duplicates are removed and the
// survivors joined with "; ". International 62-prefixed forms are rewritten
// later, by the cleaner.
func (e *Extractor) phones(text string) string {
	return e.joinPhones(phoneRe.FindAllString(text, -1))
}

// loosePhones is the problem-credit variant: it tolerates spaces and dashes
// inside the number and the 02 misread of the 08 prefix, stripping the
// separators before the length check.
func (e *Extractor) loosePhones(text string) string {
	matches := pcPhoneRe.FindAllString(text, -1)
	for i := range matches {
		matches[i] = phoneSepRe.ReplaceAllString(matches[i], "")
	}
	return e.joinPhones(matches)
}

func (e *Extractor) joinPhones(matches []string) string {
	seen := make(map[string]struct{})
	for _, m := range matches {
		if len(m) >= e.cfg.PhoneMinLen && len(m) <= e.cfg.PhoneMaxLen {
			seen[m] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return ""
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return strings.Join(out, "; ")
}

// dates returns the first two DD-MM-YYYY matches in appearance order:
// credit date, then due date. Absent matches stay empty.
func dates(text string) (credit, due string) {
	ds := dateRe.FindAllString(text, -1)
	if len(ds) > 0 {
		credit = ds[0]
	}
	if len(ds) > 1 {
		due = ds[1]
	}
	return credit, due
}

// ProblemCredit extracts a raw record from a problem-credit report chunk.
// The page image and fragment box, when known, enable the cropped-region
// name fallback.
func (e *Extractor) ProblemCredit(ctx context.Context, c segment.Chunk, page models.PageImage, box *image.Rectangle) models.RawRecord {
	rec := models.RawRecord{
		Class:      models.ProblemCredit,
		LoanNumber: segment.ExtractLoanNumber(c.Text),
		RawText:    c.Text,
	}
	rec.Customer = e.problemCreditName(ctx, c.Text, page, box)
	rec.Phone = e.loosePhones(c.Text)
	rec.CreditDate, rec.DueDate = dates(c.Text)
	rec.Appraisal, rec.LoanAmount, rec.ServiceFee = e.MoneyTriple(c.Text)
	return rec
}

// problemCreditName tries, in order: the column between the CIF prefix and
// the first date, the first name-like run of capitals, a secondary OCR pass
// over the row's cropped region, and finally the UnknownName sentinel.
func (e *Extractor) problemCreditName(ctx context.Context, text string, page models.PageImage, box *image.Rectangle) string {
	if m := pcNameRe.FindStringSubmatch(text); m != nil {
		name := strings.TrimSpace(m[1])
		if name != "" && !dateRe.MatchString(name) {
			return strings.Join(strings.Fields(name), " ")
		}
	}

	if m := capsRunRe.FindString(text); m != "" {
		return strings.TrimSpace(m)
	}

	if e.regions != nil && box != nil && page.Path != "" {
		if got, err := e.regions.ReadRegion(ctx, page.Path, *box); err == nil {
			if name := strings.TrimSpace(got); name != "" {
				return name
			}
		}
	}

	return UnknownName
}

// SummaryAmounts parses the "Uang Pinjaman SM" footer block of a
// problem-credit page, where loan amounts and service fees alternate per row.
// It backfills records whose own chunk carried no readable amounts.
func (e *Extractor) SummaryAmounts(pageText string) (loans, fees []int64) {
	m := summaryRe.FindStringSubmatch(pageText)
	if m == nil {
		return nil, nil
	}
	nums := numRunRe.FindAllString(m[1], -1)
	for i, n := range nums {
		v := digitsValue(n)
		if i%2 == 0 {
			loans = append(loans, v)
		} else {
			fees = append(fees, v)
		}
	}
	return loans, fees
}
