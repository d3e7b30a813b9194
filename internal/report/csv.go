package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// ByteOrderMark lets spreadsheet tools detect UTF-8.
const ByteOrderMark = "\uFEFF"

// ContentType of the CSV export.
const ContentType = "text/csv; charset=utf-8"

// WriteCSV writes t as comma-separated text with a UTF-8 byte-order mark
// and CRLF line endings.
func WriteCSV(w io.Writer, t Table) error {
	if _, err := io.WriteString(w, ByteOrderMark); err != nil {
		return fmt.Errorf("write byte-order mark: %w", err)
	}
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	if err := cw.WriteAll(t.Records()); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// Filename names the export after the UTC calendar date of now.
func Filename(now time.Time) string {
	return "Bao_cao_thong_ke_" + now.UTC().Format("2006-01-02") + ".csv"
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
