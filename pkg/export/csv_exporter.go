package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// formulaPrefixes are leading characters spreadsheet tools evaluate as formulas.
const formulaPrefixes = "=+-@\t\r"

// CSVExporter writes datasets in the dialect Excel opens without an import wizard:
// UTF-8 with BOM, CRLF line endings, formula-looking cells quoted as text.
type CSVExporter struct {
	bom  bool
	crlf bool
}

func NewCSVExporter() *CSVExporter {
	return &CSVExporter{bom: true, crlf: true}
}

// Render encodes data. Missing cells are written empty.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, errors.New("csv requires at least one header")
	}
	var buf bytes.Buffer
	if e.bom {
		buf.Write(utf8BOM)
	}
	w := csv.NewWriter(&buf)
	w.UseCRLF = e.crlf
	if err := w.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	record := make([]string, len(data.Headers))
	for n, row := range data.Rows {
		for i, header := range data.Headers {
			record[i] = neutralizeFormula(row[header])
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row %d: %w", n+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func neutralizeFormula(cell string) string {
	if cell == "" || !strings.ContainsRune(formulaPrefixes, rune(cell[0])) {
		return cell
	}
	return "'" + cell
}
