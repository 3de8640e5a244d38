package parse

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

const messageColumn = "Pesan"

// writeMessagesXLSX writes the projected columns plus the rendered message
// and WhatsApp links as a formatted Excel table: auto-sized columns, a fixed
// wide wrapped column for the message text, striped table style.
func writeMessagesXLSX(path, tableName string, cols []string, rows []Row, msgs []Message) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Sheet1"

	headers := append(append([]string{}, cols...), messageColumn, "WhatsApp_App", "WhatsApp_Web")
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}

	for r, row := range rows {
		write := func(col int, v string) {
			cell, _ := excelize.CoordinatesToCellName(col, r+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
		for i, col := range cols {
			write(i+1, row[col])
		}
		write(len(cols)+1, msgs[r].Text)
		write(len(cols)+2, msgs[r].WaMe)
		write(len(cols)+3, msgs[r].WaWeb)
	}

	if err := sizeColumns(f, sheet, headers, rows, msgs); err != nil {
		return err
	}

	lastCell, _ := excelize.CoordinatesToCellName(len(headers), len(rows)+1)
	showStripes := true
	if err := f.AddTable(sheet, &excelize.Table{
		Range:          "A1:" + lastCell,
		Name:           fmt.Sprintf("%s_messages", tableName),
		StyleName:      "TableStyleMedium9",
		ShowRowStripes: &showStripes,
	}); err != nil {
		return fmt.Errorf("failed to add table: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save messages workbook: %w", err)
	}
	return nil
}

func sizeColumns(f *excelize.File, sheet string, headers []string, rows []Row, msgs []Message) error {
	wrap, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return err
	}

	for i, h := range headers {
		name, _ := excelize.ColumnNumberToName(i + 1)

		if h == messageColumn {
			if err := f.SetColWidth(sheet, name, name, 60); err != nil {
				return err
			}
			if len(rows) > 0 {
				top, _ := excelize.CoordinatesToCellName(i+1, 2)
				bottom, _ := excelize.CoordinatesToCellName(i+1, len(rows)+1)
				if err := f.SetCellStyle(sheet, top, bottom, wrap); err != nil {
					return err
				}
			}
			continue
		}

		width := len(h)
		for r, row := range rows {
			v := row[h]
			switch h {
			case "WhatsApp_App":
				v = msgs[r].WaMe
			case "WhatsApp_Web":
				v = msgs[r].WaWeb
			}
			if len(v) > width {
				width = len(v)
			}
		}
		if width > 80 {
			width = 80
		}
		if err := f.SetColWidth(sheet, name, name, float64(width+2)); err != nil {
			return err
		}
	}
	return nil
}
