package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"

	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported spreadsheet format, use .csv or .xlsx")
	ErrEmptySheet        = errors.New("spreadsheet has no header row")
)

// FormatFromName picks the format from a file extension.
func FormatFromName(name string) (string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return "", ErrUnsupportedFormat
}

// readRows returns every row of the first sheet, header included.
func readRows(r io.Reader, format string) ([][]string, error) {
	switch format {
	case FormatXLSX:
		f, err := excelize.OpenReader(r)
		if err != nil {
			return nil, fmt.Errorf("open xlsx: %w", err)
		}
		defer f.Close()
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrEmptySheet
		}
		return f.GetRows(sheets[0])
	case FormatCSV:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
		reader := csv.NewReader(bytes.NewReader(data))
		reader.Comma = detectDelimiter(data)
		reader.FieldsPerRecord = -1
		reader.TrimLeadingSpace = true
		return reader.ReadAll()
	}
	return nil, ErrUnsupportedFormat
}

// detectDelimiter prefers ';', the default of French spreadsheet locales,
// when the header line contains more of them than commas.
func detectDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

// Export renders a generic table, for listings that are not part of the
// payroll register.
func Export(format, sheet string, header []string, rows [][]any) ([]byte, error) {
	return writeRows(format, sheet, header, rows)
}

// writeRows renders a header plus rows in the requested format.
func writeRows(format, sheet string, header []string, rows [][]any) ([]byte, error) {
	switch format {
	case FormatXLSX:
		f := excelize.NewFile()
		defer f.Close()
		f.SetSheetName(f.GetSheetName(0), sheet)
		for i, h := range header {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			if err := f.SetCellValue(sheet, cell, h); err != nil {
				return nil, err
			}
		}
		for r, row := range rows {
			for c, value := range row {
				cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
				if err := f.SetCellValue(sheet, cell, value); err != nil {
					return nil, err
				}
			}
		}
		if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
			return nil, err
		}
		buf, err := f.WriteToBuffer()
		if err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatCSV:
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		w.Comma = ';'
		if err := w.Write(header); err != nil {
			return nil, err
		}
		for _, row := range rows {
			record := make([]string, len(row))
			for i, v := range row {
				record[i] = fmt.Sprint(v)
			}
			if err := w.Write(record); err != nil {
				return nil, err
			}
		}
		w.Flush()
		return buf.Bytes(), w.Error()
	}
	return nil, ErrUnsupportedFormat
}

var accentReplacer = strings.NewReplacer(
	"é", "e", "è", "e", "ê", "e", "ë", "e",
	"à", "a", "â", "a", "ç", "c", "î", "i", "ï", "i", "ô", "o", "û", "u", "ù", "u",
	" ", "_", "-", "_", ".", "", "+", "plus",
)

func normalizeHeader(h string) string {
	return accentReplacer.Replace(strings.ToLower(strings.TrimSpace(h)))
}

// headerIndex maps canonical field names to column positions using aliases.
func headerIndex(header []string, aliases map[string][]string) map[string]int {
	positions := map[string]int{}
	for i, h := range header {
		positions[normalizeHeader(h)] = i
	}
	out := map[string]int{}
	for field, names := range aliases {
		for _, name := range names {
			if idx, ok := positions[name]; ok {
				out[field] = idx
				break
			}
		}
	}
	return out
}

func cell(row []string, idx map[string]int, field string) string {
	i, ok := idx[field]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseAmount accepts whole GNF amounts with optional digit grouping.
func parseAmount(raw string) (int64, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u202f', '\u2009', '_':
			return -1
		}
		return r
	}, raw)
	if cleaned == "" {
		return 0, nil
	}
	return strconv.ParseInt(cleaned, 10, 64)
}

// parseHours accepts a decimal comma or point.
func parseHours(raw string) (float64, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if cleaned == "" {
		return 0, nil
	}
	return strconv.ParseFloat(cleaned, 64)
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
