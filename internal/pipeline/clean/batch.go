package clean

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vincentdare/auto-extractor/internal/models"
)

// Record normalizes every field of a raw record. ok is false when the record
// fails admission: both the loan number and the customer name must survive
// normalization non-empty.
func (c *Cleaner) Record(raw models.RawRecord) (models.CleanRecord, bool) {
	rec := models.CleanRecord{
		Class:      raw.Class,
		LoanNumber: Identifier(raw.LoanNumber),
		Customer:   Name(raw.Customer),
		CreditDate: Date(raw.CreditDate),
		DueDate:    Date(raw.DueDate),
	}
	if rec.LoanNumber == "" || rec.Customer == "" {
		return models.CleanRecord{}, false
	}

	phones := make([]string, 0, 2)
	for _, p := range strings.Split(raw.Phone, ";") {
		if v := Phone(p); v != "" && c.ValidPhone(v) {
			phones = append(phones, v)
		}
	}
	rec.Phone = strings.Join(phones, "; ")

	rec.Appraisal = c.moneyInt(raw.Appraisal)
	rec.LoanAmount = c.moneyInt(raw.LoanAmount)
	rec.ServiceFee = raw.ServiceFee // fees are legitimately small
	return rec, true
}

func (c *Cleaner) moneyInt(v int64) int64 {
	if v < c.cfg.MinLoanAmount {
		return 0
	}
	return v
}

// Records cleans a batch and orders it by the class's primary date, earliest
// first. Records whose date does not parse sort to the end rather than being
// dropped.
func (c *Cleaner) Records(raws []models.RawRecord) []models.CleanRecord {
	out := make([]models.CleanRecord, 0, len(raws))
	for _, raw := range raws {
		if rec, ok := c.Record(raw); ok {
			out = append(out, rec)
		}
	}
	Sort(out)
	return out
}

// Sort orders records by primary date ascending, unparseable dates last.
func Sort(recs []models.CleanRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		ti, oki := ParseDate(recs[i].PrimaryDate())
		tj, okj := ParseDate(recs[j].PrimaryDate())
		if oki != okj {
			return oki
		}
		return ti.Before(tj)
	})
}

// CleanFile re-cleans one staged raw CSV and writes the cleaned CSV next to
// it under outDir, with "_raw_" renamed to "_clean_" in the filename. The
// raw file's columns may be in any order; they are looked up by name.
func (c *Cleaner) CleanFile(class models.DocumentClass, path, outDir string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open raw csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("failed to read raw csv %s: %w", path, err)
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("raw csv %s has no header", path)
	}

	idx := models.HeaderIndex(rows[0])
	cell := func(row []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	raws := make([]models.RawRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		raw := models.RawRecord{
			Class:      class,
			LoanNumber: cell(row, "No_SBG"),
			Customer:   cell(row, "Nasabah"),
			Phone:      cell(row, "Telp_HP"),
			CreditDate: cell(row, "Tgl_Kredit"),
			DueDate:    cell(row, "Tgl_Jatuh_Tempo"),
		}
		raw.Appraisal, _ = c.Money(cell(row, "Taksiran"))
		raw.LoanAmount, _ = c.Money(cell(row, "Uang_Pinjaman"))
		raw.ServiceFee = Amount(cell(row, "SM"))
		raws = append(raws, raw)
	}

	recs := c.Records(raws)

	out := filepath.Join(outDir, strings.Replace(filepath.Base(path), "_raw_", "_clean_", 1))
	if err := WriteCSV(out, recs); err != nil {
		return 0, err
	}
	return len(recs), nil
}

// WriteCSV writes cleaned records with the canonical header.
func WriteCSV(path string, recs []models.CleanRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create clean csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(models.CleanCSVHeader); err != nil {
		return err
	}
	for _, rec := range recs {
		if err := w.Write(rec.CSVRow()); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
