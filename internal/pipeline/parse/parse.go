package parse

import (
	"encoding/csv"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/vincentdare/auto-extractor/config"
	"github.com/vincentdare/auto-extractor/internal/models"
	"github.com/vincentdare/auto-extractor/pkg/logger"
)

// Parser projects cleaned records onto each class's required column set and
// renders the per-customer reminder messages with their WhatsApp links.
type Parser struct {
	logger    logger.Logger
	fields    config.Fields
	templates config.Templates
	outDir    string
}

func New(fields config.Fields, templates config.Templates, outDir string, log logger.Logger) *Parser {
	return &Parser{
		logger:    log.Named("parse"),
		fields:    fields,
		templates: templates,
		outDir:    outDir,
	}
}

// Row is one record keyed by its projected column names.
type Row map[string]string

// Message is the rendered reminder for one record.
type Message struct {
	Text  string
	WaMe  string
	WaWeb string
}

var firstPhoneRe = regexp.MustCompile(`\b08\d{8,13}\b`)

// Project maps records onto the class's declared columns, in declared order.
// Unknown column names project to empty cells rather than failing: the field
// config is user-editable.
func (p *Parser) Project(class models.DocumentClass, recs []models.CleanRecord) ([]string, []Row, error) {
	cols := p.fields[string(class)]
	if len(cols) == 0 {
		return nil, nil, fmt.Errorf("no field structure configured for class %s", class)
	}

	rows := make([]Row, 0, len(recs))
	for _, rec := range recs {
		row := make(Row, len(cols))
		for _, col := range cols {
			row[col] = fieldValue(col, rec)
		}
		rows = append(rows, row)
	}
	return cols, rows, nil
}

func fieldValue(col string, rec models.CleanRecord) string {
	switch col {
	case "NO_SBG", "NO_KREDIT":
		return rec.LoanNumber
	case "NASABAH":
		return rec.Customer
	case "TELP_HP":
		return FirstPhone(rec.Phone)
	case "TGL_JATUH_TEMPO":
		return rec.DueDate
	case "TGL_KREDIT":
		return rec.CreditDate
	case "TAKSIRAN":
		return FormatMoney(rec.Appraisal)
	case "UANG_PINJAMAN":
		return FormatMoney(rec.LoanAmount)
	case "SM":
		return FormatMoney(rec.ServiceFee)
	}
	return ""
}

// FormatMoney renders an amount with dots as thousands separators, the local
// convention ("1.250.000"). Zero renders empty.
func FormatMoney(v int64) string {
	if v == 0 {
		return ""
	}
	s := strconv.FormatInt(v, 10)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FirstPhone picks the first phone number when extraction joined several, and
// guarantees the local leading zero.
func FirstPhone(joined string) string {
	first := joined
	if i := strings.IndexAny(joined, ";,"); i >= 0 {
		first = joined[:i]
	}
	first = strings.TrimSpace(first)
	if m := firstPhoneRe.FindString(first); m != "" {
		return m
	}
	if first != "" && !strings.HasPrefix(first, "0") {
		first = "0" + first
	}
	return first
}

// Messages renders the class template once per row. Placeholders are {COLUMN}
// names; a placeholder with no matching column stays literal so a template
// typo is visible in the output instead of silently blank.
func (p *Parser) Messages(class models.DocumentClass, cols []string, rows []Row) []Message {
	template := p.templates[string(class)]

	msgs := make([]Message, 0, len(rows))
	for _, row := range rows {
		text := template
		for _, col := range cols {
			text = strings.ReplaceAll(text, "{"+col+"}", row[col])
		}
		text = strings.TrimSpace(text)

		msg := Message{Text: text}
		phone := row["TELP_HP"]
		if phone != "" && isDigits(phone) {
			encoded := url.QueryEscape(text)
			msg.WaMe = fmt.Sprintf("https://wa.me/%s?text=%s", phone, encoded)
			msg.WaWeb = fmt.Sprintf("https://web.whatsapp.com/send?phone=%s&text=%s", phone, encoded)
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// Run projects, renders and writes both artifacts for one class. It returns
// the extracted CSV path and the messages workbook path.
func (p *Parser) Run(class models.DocumentClass, recs []models.CleanRecord) (string, string, error) {
	cols, rows, err := p.Project(class, recs)
	if err != nil {
		return "", "", err
	}

	extractedPath := filepath.Join(p.outDir, "parsed_output", fmt.Sprintf("%s_extracted.csv", class))
	if err := writeCSV(extractedPath, cols, rows); err != nil {
		return "", "", err
	}

	msgs := p.Messages(class, cols, rows)
	messagesPath := filepath.Join(p.outDir, "messages", fmt.Sprintf("%s_messages.xlsx", class))
	if err := writeMessagesXLSX(messagesPath, string(class), cols, rows, msgs); err != nil {
		return "", "", err
	}

	p.logger.Info("parsed class output",
		logger.String("class", string(class)),
		logger.Int("records", len(rows)),
		logger.String("extracted", extractedPath),
		logger.String("messages", messagesPath))
	return extractedPath, messagesPath, nil
}

func writeCSV(path string, cols []string, rows []Row) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create extracted csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(cols); err != nil {
		return err
	}
	for _, row := range rows {
		cells := make([]string, len(cols))
		for i, col := range cols {
			cells[i] = row[col]
		}
		if err := w.Write(cells); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
