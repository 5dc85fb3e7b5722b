// Package calibration holds the coordinates that place receipt fields on
// the DA Form 2062 template.
package calibration

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrConfiguration indicates a profile that cannot drive a layout.
var ErrConfiguration = errors.New("invalid calibration")

// MaxRowsPerPage is the most item rows the form has room for.
const MaxRowsPerPage = 30

// Profile is a complete set of layout parameters. Coordinates are PDF
// points with the origin at the bottom left of the page.
type Profile struct {
	FontName       string  `yaml:"font_name" json:"font_name"`
	FontSize       float64 `yaml:"font_size" json:"font_size"`
	FontSizeHeader float64 `yaml:"font_size_header" json:"font_size_header"`

	FromX         float64 `yaml:"x_from" json:"x_from"`
	FromY         float64 `yaml:"y_from" json:"y_from"`
	ToX           float64 `yaml:"x_to" json:"x_to"`
	ToY           float64 `yaml:"y_to" json:"y_to"`
	ContactOffset float64 `yaml:"to_contact_offset" json:"to_contact_offset"`

	PageCounterX float64 `yaml:"x_page_counter" json:"x_page_counter"`
	PageCounterY float64 `yaml:"y_page_counter" json:"y_page_counter"`

	ItemDescX        float64 `yaml:"item_desc_x" json:"item_desc_x"`
	QtyX             float64 `yaml:"qty_x" json:"qty_x"`
	ItemStartYFirst  float64 `yaml:"item_start_y_first" json:"item_start_y_first"`
	ItemStartYNext   float64 `yaml:"item_start_y_next" json:"item_start_y_next"`
	LineSpacing      float64 `yaml:"line_spacing" json:"line_spacing"`
	SecondLineOffset float64 `yaml:"second_line_offset" json:"second_line_offset"`

	RowsPerPage int `yaml:"rows_per_page" json:"rows_per_page"`
}

// Default returns the built-in profile matching the stock template.
func Default() Profile {
	return Profile{
		FontName:         "Helvetica",
		FontSize:         9,
		FontSizeHeader:   10,
		FromX:            260,
		FromY:            590,
		ToX:              710,
		ToY:              590,
		ContactOffset:    12,
		PageCounterX:     575,
		PageCounterY:     717,
		ItemDescX:        226,
		QtyX:             591,
		ItemStartYFirst:  493,
		ItemStartYNext:   640,
		LineSpacing:      23,
		SecondLineOffset: 11,
		RowsPerPage:      16,
	}
}

// Validate checks that the profile can drive a layout.
func (p Profile) Validate() error {
	switch {
	case p.RowsPerPage <= 0 || p.RowsPerPage > MaxRowsPerPage:
		return fmt.Errorf("%w: rows_per_page must be between 1 and %d, got %d", ErrConfiguration, MaxRowsPerPage, p.RowsPerPage)
	case p.FontSize <= 0 || p.FontSizeHeader <= 0:
		return fmt.Errorf("%w: font sizes must be positive", ErrConfiguration)
	case p.LineSpacing <= 0:
		return fmt.Errorf("%w: line_spacing must be positive", ErrConfiguration)
	case strings.TrimSpace(p.FontName) == "":
		return fmt.Errorf("%w: font_name is required", ErrConfiguration)
	}
	return nil
}

// SettingsPrefix namespaces profile parameters in the settings table.
const SettingsPrefix = "calibration."

func (p *Profile) numbers() map[string]*float64 {
	return map[string]*float64{
		"font_size":          &p.FontSize,
		"font_size_header":   &p.FontSizeHeader,
		"x_from":             &p.FromX,
		"y_from":             &p.FromY,
		"x_to":               &p.ToX,
		"y_to":               &p.ToY,
		"to_contact_offset":  &p.ContactOffset,
		"x_page_counter":     &p.PageCounterX,
		"y_page_counter":     &p.PageCounterY,
		"item_desc_x":        &p.ItemDescX,
		"qty_x":              &p.QtyX,
		"item_start_y_first": &p.ItemStartYFirst,
		"item_start_y_next":  &p.ItemStartYNext,
		"line_spacing":       &p.LineSpacing,
		"second_line_offset": &p.SecondLineOffset,
	}
}

// Keys lists every parameter name.
func Keys() []string {
	p := Default()
	keys := []string{"font_name", "rows_per_page"}
	for k := range p.numbers() {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Param returns one parameter formatted as text.
func (p Profile) Param(key string) (string, error) {
	switch key {
	case "font_name":
		return p.FontName, nil
	case "rows_per_page":
		return strconv.Itoa(p.RowsPerPage), nil
	}
	v, ok := p.numbers()[key]
	if !ok {
		return "", fmt.Errorf("%w: unknown parameter %q", ErrConfiguration, key)
	}
	return strconv.FormatFloat(*v, 'f', -1, 64), nil
}

// SetParam parses value into the named parameter.
func (p *Profile) SetParam(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "font_name":
		p.FontName = value
		return nil
	case "rows_per_page":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: rows_per_page: %v", ErrConfiguration, err)
		}
		p.RowsPerPage = n
		return nil
	}
	v, ok := p.numbers()[key]
	if !ok {
		return fmt.Errorf("%w: unknown parameter %q", ErrConfiguration, key)
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConfiguration, key, err)
	}
	*v = f
	return nil
}

// Params returns the profile as settings rows.
func (p Profile) Params() map[string]string {
	out := make(map[string]string)
	for _, key := range Keys() {
		v, _ := p.Param(key)
		out[SettingsPrefix+key] = v
	}
	return out
}

// FromParams builds a profile from settings rows. Missing keys keep their
// default and unknown keys are ignored.
func FromParams(params map[string]string) (Profile, error) {
	p := Default()
	for _, key := range Keys() {
		v, ok := params[SettingsPrefix+key]
		if !ok {
			continue
		}
		if err := p.SetParam(key, v); err != nil {
			return Profile{}, err
		}
	}
	return p, nil
}

// WriteYAML writes the profile as a YAML document.
func WriteYAML(w io.Writer, p Profile) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	return enc.Close()
}

// ReadYAML reads a profile. Fields absent from the document keep their
// default. The result is validated.
func ReadYAML(r io.Reader) (Profile, error) {
	p := Default()
	if err := yaml.NewDecoder(r).Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return Profile{}, fmt.Errorf("%w: decoding profile: %v", ErrConfiguration, err)
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}
