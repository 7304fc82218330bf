package address

import "strings"

// RemarkInput is one source row: the raw remark cell and the customer handle.
// Text is usually a string; nil or any non-string value means the cell held
// no text.
type RemarkInput struct {
	Text   any
	Handle string
}

// ParsedAddress is the fixed-shape result of extracting one remark.
// Every field is always set; absence is the empty string.
type ParsedAddress struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2"`
	City         string `json:"city"`
	State        string `json:"state"`
	ZipCode      string `json:"zipCode"`
	Phone        string `json:"phone"`
	ParseNote    string `json:"parseNote"`
}

// Clean reports whether the remark parsed without warnings.
func (p ParsedAddress) Clean() bool {
	return p.ParseNote == ""
}

// Default returns the record produced for a remark with no usable text.
func Default(handle string) ParsedAddress {
	return ParsedAddress{FirstName: handle, LastName: handle}
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithCityScan sets the direction used to search for the city/state/ZIP line.
func WithCityScan(dir ScanDirection) Option {
	return func(e *Extractor) {
		e.cityScan = dir
	}
}

// Extractor turns remark text into a ParsedAddress.
// The zero value is ready to use and scans for city/state/ZIP in reverse.
type Extractor struct {
	cityScan ScanDirection
}

// New creates an Extractor with the given options.
func New(opts ...Option) *Extractor {
	e := &Extractor{cityScan: ScanReverse}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CityScan returns the configured scan direction.
func (e *Extractor) CityScan() ScanDirection {
	return e.cityScan
}

var defaultExtractor = New()

// Extract parses text with the default options.
func Extract(text, handle string) ParsedAddress {
	return defaultExtractor.Extract(text, handle)
}

// ExtractValue parses a remark cell of any type with the default options.
func ExtractValue(v any, handle string) ParsedAddress {
	return defaultExtractor.ExtractInput(RemarkInput{Text: v, Handle: handle})
}

// ExtractInput parses one RemarkInput. Only string and []byte text is
// parsed; any other value yields Default(handle).
func (e *Extractor) ExtractInput(in RemarkInput) ParsedAddress {
	switch t := in.Text.(type) {
	case string:
		return e.Extract(t, in.Handle)
	case []byte:
		return e.Extract(string(t), in.Handle)
	default:
		return Default(in.Handle)
	}
}

// Extract parses one remark. It never panics and always returns a fully
// populated record.
func (e *Extractor) Extract(text, handle string) ParsedAddress {
	lines := SplitLines(text)
	if len(lines) == 0 {
		return Default(handle)
	}

	var out ParsedAddress
	var notes []string

	out.Phone = FindPhone(lines)

	out.FirstName, out.LastName, lines = ExtractName(lines, handle)

	csz, lines, ok := ExtractCityStateZip(lines, e.cityScan)
	if ok {
		out.City, out.State, out.ZipCode = csz.City, csz.State, csz.Zip
	} else {
		notes = append(notes, NoteCityStateZipNotFound)
	}

	out.AddressLine1, out.AddressLine2 = ClassifyStreetLines(lines, out.Phone)
	if out.AddressLine1 == "" {
		notes = append(notes, NoteStreetNotFound)
	}

	out.ParseNote = strings.Join(notes, "; ")
	return out
}
