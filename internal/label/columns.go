// Package label builds USPS bulk label import files from parsed addresses.
//
// A label row is the zip of two sources: static defaults taken from a
// [Profile] (sender, item, package and customs fields) and per-row values
// (recipient fields, reference IDs and the shipping date). Per-row values
// always win, including empty ones.
package label

// Column names of the USPS import header that are written per row.
const (
	ColReferenceID        = "Reference ID"
	ColReferenceID2       = "Reference ID 2"
	ColShippingDate       = "Shipping Date"
	ColRecipientCountry   = "Recipient Country"
	ColRecipientFirstName = "Recipient First Name"
	ColRecipientLastName  = "Recipient Last Name"
	ColRecipientAddress1  = "Recipient Address Line 1"
	ColRecipientAddress2  = "Recipient Address Line 2"
	ColRecipientCity      = "Recipient Address Town/City"
	ColRecipientState     = "Recipient State"
	ColRecipientZip       = "Recipient ZIP Code"
	ColRecipientPhone     = "Recipient Phone"
	ColParseNote          = "解析备注"
)

const (
	// DefaultFileName is the name used for downloaded label files.
	DefaultFileName = "usps_output.csv"

	// ShipDateLayout formats the Shipping Date column.
	ShipDateLayout = "2006-01-02"

	// PreviewRows is the number of rows shown before download.
	PreviewRows = 20
)

// columns is the USPS import header in file order.
var columns = []string{
	ColReferenceID,
	ColReferenceID2,
	ColShippingDate,
	"Item Description",
	"Item Quantity",
	"Item Weight (lb)",
	"Item Weight (oz)",
	"Item Value",
	"HS Tariff #",
	"Country of Origin",
	"Sender First Name",
	"Sender Middle Initial",
	"Sender Last Name",
	"Sender Company/Org Name",
	"Sender Address Line 1",
	"Sender Address Line 2",
	"Sender Address Line 3",
	"Sender Address Town/City",
	"Sender State",
	"Sender Country",
	"Sender ZIP Code",
	"Sender Urbanization Code",
	"Ship From Another ZIP Code",
	"Sender Email",
	"Sender Cell Phone",
	ColRecipientCountry,
	ColRecipientFirstName,
	"Recipient Middle Initial",
	ColRecipientLastName,
	"Recipient Company/Org Name",
	ColRecipientAddress1,
	ColRecipientAddress2,
	"Recipient Address Line 3",
	ColRecipientCity,
	"Recipient Province",
	ColRecipientState,
	ColRecipientZip,
	"Recipient Urbanization Code",
	ColRecipientPhone,
	"Recipient Email",
	"Service Type",
	"Package Type",
	"Package Weight (lb)",
	"Package Weight (oz)",
	"Length",
	"Width",
	"Height",
	"Girth",
	"Insured Value",
	"Contents",
	"Contents Description",
	"Package Comments",
	"Customs Form Reference #",
	"License #",
	"Certificate #",
	"Invoice #",
	ColParseNote,
}

var columnIndex = func() map[string]int {
	m := make(map[string]int, len(columns))
	for i, c := range columns {
		m[c] = i
	}
	return m
}()

// Columns returns a copy of the USPS import header.
func Columns() []string {
	out := make([]string, len(columns))
	copy(out, columns)
	return out
}

// ColumnIndex returns the position of name in the header.
func ColumnIndex(name string) (int, bool) {
	i, ok := columnIndex[name]
	return i, ok
}
