package label

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile holds the static values written to every label row.
// Values are kept as the exact text written to the CSV.
type Profile struct {
	Sender           Sender    `yaml:"sender"`
	Item             Item      `yaml:"item"`
	Package          Package   `yaml:"package"`
	Customs          Customs   `yaml:"customs"`
	Reference        Reference `yaml:"reference"`
	RecipientCountry string    `yaml:"recipient_country"`
}

// Sender is the return address printed on every label.
type Sender struct {
	FirstName        string `yaml:"first_name"`
	MiddleInitial    string `yaml:"middle_initial"`
	LastName         string `yaml:"last_name"`
	Company          string `yaml:"company"`
	AddressLine1     string `yaml:"address_line1"`
	AddressLine2     string `yaml:"address_line2"`
	AddressLine3     string `yaml:"address_line3"`
	City             string `yaml:"city"`
	State            string `yaml:"state"`
	Country          string `yaml:"country"`
	Zip              string `yaml:"zip"`
	UrbanizationCode string `yaml:"urbanization_code"`
	ShipFromZip      string `yaml:"ship_from_zip"`
	Email            string `yaml:"email"`
	CellPhone        string `yaml:"cell_phone"`
}

// Item describes the single line item declared per package.
type Item struct {
	Description     string `yaml:"description"`
	Quantity        string `yaml:"quantity"`
	WeightLb        string `yaml:"weight_lb"`
	WeightOz        string `yaml:"weight_oz"`
	Value           string `yaml:"value"`
	HSTariff        string `yaml:"hs_tariff"`
	CountryOfOrigin string `yaml:"country_of_origin"`
}

// Package describes the parcel and the mail service.
type Package struct {
	ServiceType         string `yaml:"service_type"`
	Type                string `yaml:"type"`
	WeightLb            string `yaml:"weight_lb"`
	WeightOz            string `yaml:"weight_oz"`
	Length              string `yaml:"length"`
	Width               string `yaml:"width"`
	Height              string `yaml:"height"`
	Girth               string `yaml:"girth"`
	InsuredValue        string `yaml:"insured_value"`
	Contents            string `yaml:"contents"`
	ContentsDescription string `yaml:"contents_description"`
	Comments            string `yaml:"comments"`
}

// Customs holds the optional customs form references.
type Customs struct {
	FormReference string `yaml:"form_reference"`
	License       string `yaml:"license"`
	Certificate   string `yaml:"certificate"`
	Invoice       string `yaml:"invoice"`
}

// Reference configures the reference ID sequence.
type Reference struct {
	Prefix          string `yaml:"prefix"`
	SecondaryPrefix string `yaml:"secondary_prefix"`
	Start           int    `yaml:"start"`
}

// DefaultProfile returns the shipped ColorFour template.
func DefaultProfile() Profile {
	return Profile{
		Sender: Sender{
			FirstName:    "Ava",
			LastName:     "Everly",
			Company:      "ColorFour LLC",
			AddressLine1: "718 S Hill St",
			City:         "Los Angeles",
			State:        "CA",
			Country:      "US",
			Zip:          "90014",
			Email:        "support@colorfour.com",
			CellPhone:    "1234567890",
		},
		Item: Item{
			Description:     "PressOnNails",
			Quantity:        "1",
			WeightLb:        "0.25",
			WeightOz:        "0",
			Value:           "100",
			CountryOfOrigin: "US",
		},
		Package: Package{
			ServiceType:         "First-Class Package International Service",
			Type:                "Package",
			WeightLb:            "0.25",
			WeightOz:            "0",
			Length:              "6",
			Width:               "4",
			Height:              "1.6",
			InsuredValue:        "100",
			Contents:            "Merchandise",
			ContentsDescription: "Press-on nails",
		},
		Reference: Reference{
			Prefix:          "R",
			SecondaryPrefix: "RR",
			Start:           100001,
		},
		RecipientCountry: "US",
	}
}

// LoadProfile reads a YAML profile from path. Keys absent from the file keep
// their DefaultProfile values.
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}
	p, err := ParseProfile(data)
	if err != nil {
		return Profile{}, fmt.Errorf("profile %s: %w", path, err)
	}
	return p, nil
}

// ParseProfile decodes a YAML profile over DefaultProfile and validates it.
func ParseProfile(data []byte) (Profile, error) {
	p := DefaultProfile()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("parse profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Validate checks that the profile can produce importable labels.
// Returns an error describing all validation failures.
func (p Profile) Validate() error {
	var errs []string

	required := []struct {
		name, value string
	}{
		{"sender.last_name", p.Sender.LastName},
		{"sender.address_line1", p.Sender.AddressLine1},
		{"sender.city", p.Sender.City},
		{"sender.state", p.Sender.State},
		{"sender.zip", p.Sender.Zip},
		{"package.service_type", p.Package.ServiceType},
		{"reference.prefix", p.Reference.Prefix},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, r.name+" is required")
		}
	}

	if len(p.Sender.State) != 2 {
		errs = append(errs, fmt.Sprintf("sender.state (%q) must be a two-letter code", p.Sender.State))
	}

	numeric := []struct {
		name, value string
	}{
		{"item.quantity", p.Item.Quantity},
		{"item.weight_lb", p.Item.WeightLb},
		{"item.weight_oz", p.Item.WeightOz},
		{"item.value", p.Item.Value},
		{"package.weight_lb", p.Package.WeightLb},
		{"package.weight_oz", p.Package.WeightOz},
		{"package.length", p.Package.Length},
		{"package.width", p.Package.Width},
		{"package.height", p.Package.Height},
		{"package.girth", p.Package.Girth},
		{"package.insured_value", p.Package.InsuredValue},
	}
	for _, n := range numeric {
		if n.value == "" {
			continue
		}
		f, err := strconv.ParseFloat(n.value, 64)
		if err != nil || f < 0 {
			errs = append(errs, fmt.Sprintf("%s (%q) must be a non-negative number", n.name, n.value))
		}
	}

	if p.Reference.Start < 0 {
		errs = append(errs, "reference.start must be non-negative")
	}
	if p.Reference.Prefix != "" && p.Reference.Prefix == p.Reference.SecondaryPrefix {
		errs = append(errs, "reference.prefix and reference.secondary_prefix must differ")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid profile:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Sequence returns the reference ID sequence configured by the profile.
func (p Profile) Sequence() Sequence {
	return Sequence{
		Prefix:          p.Reference.Prefix,
		SecondaryPrefix: p.Reference.SecondaryPrefix,
		Start:           p.Reference.Start,
	}
}

// defaults returns one row populated with the static values, in header order.
func (p Profile) defaults() []string {
	values := map[string]string{
		"Item Description":           p.Item.Description,
		"Item Quantity":              p.Item.Quantity,
		"Item Weight (lb)":           p.Item.WeightLb,
		"Item Weight (oz)":           p.Item.WeightOz,
		"Item Value":                 p.Item.Value,
		"HS Tariff #":                p.Item.HSTariff,
		"Country of Origin":          p.Item.CountryOfOrigin,
		"Sender First Name":          p.Sender.FirstName,
		"Sender Middle Initial":      p.Sender.MiddleInitial,
		"Sender Last Name":           p.Sender.LastName,
		"Sender Company/Org Name":    p.Sender.Company,
		"Sender Address Line 1":      p.Sender.AddressLine1,
		"Sender Address Line 2":      p.Sender.AddressLine2,
		"Sender Address Line 3":      p.Sender.AddressLine3,
		"Sender Address Town/City":   p.Sender.City,
		"Sender State":               p.Sender.State,
		"Sender Country":             p.Sender.Country,
		"Sender ZIP Code":            p.Sender.Zip,
		"Sender Urbanization Code":   p.Sender.UrbanizationCode,
		"Ship From Another ZIP Code": p.Sender.ShipFromZip,
		"Sender Email":               p.Sender.Email,
		"Sender Cell Phone":          p.Sender.CellPhone,
		ColRecipientCountry:          p.RecipientCountry,
		"Service Type":               p.Package.ServiceType,
		"Package Type":               p.Package.Type,
		"Package Weight (lb)":        p.Package.WeightLb,
		"Package Weight (oz)":        p.Package.WeightOz,
		"Length":                     p.Package.Length,
		"Width":                      p.Package.Width,
		"Height":                     p.Package.Height,
		"Girth":                      p.Package.Girth,
		"Insured Value":              p.Package.InsuredValue,
		"Contents":                   p.Package.Contents,
		"Contents Description":       p.Package.ContentsDescription,
		"Package Comments":           p.Package.Comments,
		"Customs Form Reference #":   p.Customs.FormReference,
		"License #":                  p.Customs.License,
		"Certificate #":              p.Customs.Certificate,
		"Invoice #":                  p.Customs.Invoice,
	}

	row := make([]string, len(columns))
	for i, c := range columns {
		row[i] = values[c]
	}
	return row
}
