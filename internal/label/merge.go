package label

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/JonMunkholm/shiplabel/internal/address"
)

// Sequence generates paired reference IDs: Prefix+n and SecondaryPrefix+n
// for n = Start, Start+1, ...
type Sequence struct {
	Prefix          string
	SecondaryPrefix string
	Start           int
}

// At returns the reference IDs for the zero-based row i.
func (s Sequence) At(i int) (primary, secondary string) {
	n := strconv.Itoa(s.Start + i)
	return s.Prefix + n, s.SecondaryPrefix + n
}

// Table is a label file: the fixed header and one record per parsed remark.
type Table struct {
	Header []string
	Rows   [][]string
}

// Merge builds one label row per parsed address, in order. Each row starts
// from the profile defaults and is then overwritten with the recipient
// fields, reference IDs and shipDate.
func Merge(parsed []address.ParsedAddress, p Profile, shipDate time.Time) *Table {
	base := p.defaults()
	seq := p.Sequence()
	date := shipDate.Format(ShipDateLayout)

	t := &Table{
		Header: Columns(),
		Rows:   make([][]string, len(parsed)),
	}
	for i, pa := range parsed {
		row := make([]string, len(base))
		copy(row, base)

		ref, ref2 := seq.At(i)
		set(row, ColReferenceID, ref)
		set(row, ColReferenceID2, ref2)
		set(row, ColShippingDate, date)
		set(row, ColRecipientFirstName, pa.FirstName)
		set(row, ColRecipientLastName, pa.LastName)
		set(row, ColRecipientAddress1, pa.AddressLine1)
		set(row, ColRecipientAddress2, pa.AddressLine2)
		set(row, ColRecipientCity, pa.City)
		set(row, ColRecipientState, pa.State)
		set(row, ColRecipientZip, pa.ZipCode)
		set(row, ColRecipientPhone, pa.Phone)
		set(row, ColParseNote, pa.ParseNote)

		t.Rows[i] = row
	}
	return t
}

func set(row []string, col, value string) {
	row[columnIndex[col]] = value
}

// Template returns an empty table holding only the header.
func Template() *Table {
	return &Table{Header: Columns()}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Head returns a table sharing the first n rows.
func (t *Table) Head(n int) *Table {
	if n < 0 {
		n = 0
	}
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	return &Table{Header: t.Header, Rows: t.Rows[:n]}
}

// Value returns the cell at row i in column col, or "" when either is
// out of range.
func (t *Table) Value(i int, col string) string {
	j, ok := ColumnIndex(col)
	if !ok || i < 0 || i >= len(t.Rows) || j >= len(t.Rows[i]) {
		return ""
	}
	return t.Rows[i][j]
}

// Count returns how many rows have a value in col that satisfies pred.
func (t *Table) Count(col string, pred func(string) bool) int {
	j, ok := ColumnIndex(col)
	if !ok {
		return 0
	}
	n := 0
	for _, row := range t.Rows {
		if j < len(row) && pred(row[j]) {
			n++
		}
	}
	return n
}

// WriteCSV writes the header and all rows as CSV.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
