package models

import "strconv"

// CSV column names are kept in the upstream report's Indonesian form so the
// staged files stay drop-in compatible with the spreadsheets the branch
// offices already consume.

// RawCSVHeader is the column order of the per-run raw extraction CSV.
var RawCSVHeader = []string{
	"filename", "No", "No_SBG", "Nasabah", "Telp_HP",
	"Tgl_Kredit", "Tgl_Jatuh_Tempo", "Taksiran", "Uang_Pinjaman", "SM",
}

// CleanCSVHeader is the column order of the cleaned CSV.
var CleanCSVHeader = []string{
	"No_SBG", "Nasabah", "Telp_HP",
	"Tgl_Kredit", "Tgl_Jatuh_Tempo", "Taksiran", "Uang_Pinjaman", "SM",
}

func amountCell(v int64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatInt(v, 10)
}

// CSVRow renders the record in RawCSVHeader order. Zero amounts render as
// empty cells, matching "no value extracted".
func (r RawRecord) CSVRow() []string {
	return []string{
		r.Filename,
		strconv.Itoa(r.Seq),
		r.LoanNumber,
		r.Customer,
		r.Phone,
		r.CreditDate,
		r.DueDate,
		amountCell(r.Appraisal),
		amountCell(r.LoanAmount),
		amountCell(r.ServiceFee),
	}
}

// CSVRow renders the record in CleanCSVHeader order.
func (r CleanRecord) CSVRow() []string {
	return []string{
		r.LoanNumber,
		r.Customer,
		r.Phone,
		r.CreditDate,
		r.DueDate,
		amountCell(r.Appraisal),
		amountCell(r.LoanAmount),
		amountCell(r.ServiceFee),
	}
}

// HeaderIndex maps column name to position for reading staged CSVs whose
// column order may have been rearranged by hand.
func HeaderIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}
	return idx
}
