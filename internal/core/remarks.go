package core

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/shiplabel/internal/address"
)

// MaxHeaderSearchRows is how many leading records are searched for the
// header row. Exports often start with a title or a blank line.
const MaxHeaderSearchRows = 20

var (
	// ErrMissingColumn is returned when the remark or handle column cannot be
	// found. Nothing in the file is converted.
	ErrMissingColumn = errors.New("missing required column")

	// ErrEmptyFile is returned for a file with no records at all.
	ErrEmptyFile = errors.New("empty file")
)

// HeaderIndex maps lowercased, cleaned header names to their column position.
type HeaderIndex map[string]int

// MakeHeaderIndex creates a HeaderIndex from a CSV header row. When a name
// repeats, the first occurrence wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(CleanCell(h))
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

// Lookup returns the position of the first alias present in the index.
func (h HeaderIndex) Lookup(aliases []string) (int, string, bool) {
	for _, a := range aliases {
		if i, ok := h[strings.ToLower(CleanCell(a))]; ok {
			return i, a, true
		}
	}
	return -1, "", false
}

// CleanCell removes common spreadsheet artifacts from a header cell:
// surrounding whitespace, an Excel formula wrapper (="...") and quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}
	return strings.TrimSpace(strings.Trim(s, `"'`))
}

// ColumnSet lists the header names accepted for the remark and handle columns.
// Matching is case-insensitive and the first alias found wins.
type ColumnSet struct {
	Remark []string
	Handle []string
}

// DefaultColumns returns the header names used by the shop export.
func DefaultColumns() ColumnSet {
	return ColumnSet{
		Remark: []string{"发货备注", "Remarks", "Remark", "Shipping Remarks", "Shipping Remark"},
		Handle: []string{"Handle", "Customer"},
	}
}

// remarkSheet is the result of reading a remark CSV.
type remarkSheet struct {
	Inputs       []address.RemarkInput
	RemarkColumn string
	HandleColumn string
	HeaderRow    int // 1-based record number of the header
	BlankRows    int
}

// readRemarks reads a remark CSV. The header is the first record within
// MaxHeaderSearchRows that names either column; both columns must then be
// present or ErrMissingColumn is returned before any row is read. Blank
// records are skipped. A short row yields a nil remark, which extracts to
// the default record.
func readRemarks(r io.Reader, cols ColumnSet) (*remarkSheet, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	sheet := &remarkSheet{}
	remarkIdx, handleIdx := -1, -1

	for n := 1; ; n++ {
		record, err := cr.Read()
		if err == io.EOF {
			if n == 1 {
				return nil, ErrEmptyFile
			}
			return nil, missingColumnError(remarkIdx, cols)
		}
		if err != nil {
			return nil, fmt.Errorf("invalid csv: %w", err)
		}

		idx := MakeHeaderIndex(record)
		var remarkOK, handleOK bool
		remarkIdx, sheet.RemarkColumn, remarkOK = idx.Lookup(cols.Remark)
		handleIdx, sheet.HandleColumn, handleOK = idx.Lookup(cols.Handle)

		if remarkOK || handleOK {
			if !remarkOK || !handleOK {
				return nil, missingColumnError(remarkIdx, cols)
			}
			sheet.HeaderRow = n
			break
		}
		if n >= MaxHeaderSearchRows {
			return nil, missingColumnError(-1, cols)
		}
	}

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid csv: %w", err)
		}
		if isEmptyRow(record) {
			sheet.BlankRows++
			continue
		}

		in := address.RemarkInput{}
		if remarkIdx < len(record) {
			in.Text = record[remarkIdx]
		}
		if handleIdx < len(record) {
			in.Handle = strings.TrimSpace(record[handleIdx])
		}
		sheet.Inputs = append(sheet.Inputs, in)
	}

	return sheet, nil
}

// missingColumnError names the remark column when it was not found, else the
// handle column.
func missingColumnError(remarkIdx int, cols ColumnSet) error {
	if remarkIdx < 0 {
		return fmt.Errorf("%w: remark (accepted: %s)", ErrMissingColumn, strings.Join(cols.Remark, ", "))
	}
	return fmt.Errorf("%w: handle (accepted: %s)", ErrMissingColumn, strings.Join(cols.Handle, ", "))
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
