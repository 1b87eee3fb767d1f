package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// SpectrumCount is the number of trailing response.data rows that hold
// response spectra.
const SpectrumCount = 4

// maxSheetName is Excel's limit on worksheet name length.
const maxSheetName = 31

// invalidSheetChars may not appear in a worksheet name.
const invalidSheetChars = `:\/?*[]`

// SeismicResponse is the raw body returned by the design maps service.
// Shape validation happens in TransformResponse.
type SeismicResponse struct {
	Body []byte
}

// DesignMapsFetcher retrieves design values for a site.
type DesignMapsFetcher interface {
	FetchDesignValues(ctx context.Context, coords Coordinates, rc RiskCategory, sc SiteClass) (SeismicResponse, error)
}

// Row is one named entry of response.data, in response order.
type Row struct {
	Name  string
	Value json.RawMessage
}

// IsNull reports whether the service left the row empty.
func (r Row) IsNull() bool {
	v := bytes.TrimSpace(r.Value)
	return len(v) == 0 || bytes.Equal(v, []byte("null"))
}

// DesignValue is a scalar design parameter. Numeric values are kept as
// numbers so the workbook cell stays numeric; everything else is text.
type DesignValue struct {
	Name    string
	Number  float64
	Text    string
	Numeric bool
}

// String formats the value for console output.
func (v DesignValue) String() string {
	if v.Numeric {
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	}
	return v.Text
}

// SpectrumPoint is one (period, spectral acceleration) ordinate.
type SpectrumPoint struct {
	Period       float64
	Acceleration float64
}

// SpectrumTable is one response spectrum destined for its own sheet.
type SpectrumTable struct {
	SheetName string
	Points    []SpectrumPoint
}

// Report is the transformed design maps response: scalar design values plus
// exactly SpectrumCount spectra.
type Report struct {
	Base    []DesignValue
	Spectra []SpectrumTable
}

// designMapsEnvelope is the typed outer shape of the design maps payload.
// Metadata is decoded only to confirm the envelope and is otherwise dropped.
type designMapsEnvelope struct {
	Response *struct {
		Data     json.RawMessage `json:"data"`
		Metadata json.RawMessage `json:"metadata"`
	} `json:"response"`
}

// parallelSpectrum is the periods/ordinates encoding of a spectrum.
type parallelSpectrum struct {
	Periods   []*float64 `json:"periods"`
	Ordinates []*float64 `json:"ordinates"`
}

// TransformResponse turns a raw design maps response into a Report.
//
// Null rows are dropped, then the last SpectrumCount rows are removed from
// the end one at a time and become the spectra in removal order. The rows
// left over form the base table. Payloads that cannot supply SpectrumCount
// well-formed spectra fail with ErrInsufficientData.
func TransformResponse(resp SeismicResponse) (Report, error) {
	rows, err := ParseRows(resp)
	if err != nil {
		return Report{}, err
	}

	rows = DropNullRows(rows)
	if len(rows) < SpectrumCount {
		return Report{}, fmt.Errorf("%w: %d usable rows, need at least %d", ErrInsufficientData, len(rows), SpectrumCount)
	}

	spectra := make([]SpectrumTable, 0, SpectrumCount)
	for range SpectrumCount {
		last := rows[len(rows)-1]
		rows = rows[:len(rows)-1]

		points, err := parseSpectrum(last.Value)
		if err != nil {
			return Report{}, fmt.Errorf("%w: row %q: %w", ErrInsufficientData, last.Name, err)
		}
		name := sheetName(last.Name)
		if err := checkSheetName(name, spectra); err != nil {
			return Report{}, fmt.Errorf("%w: row %q: %w", ErrInsufficientData, last.Name, err)
		}
		spectra = append(spectra, SpectrumTable{
			SheetName: name,
			Points:    points,
		})
	}

	base := make([]DesignValue, 0, len(rows))
	for _, r := range rows {
		base = append(base, parseScalar(r))
	}

	return Report{Base: base, Spectra: spectra}, nil
}

// ParseRows decodes response.data into rows, preserving the service's key
// order. Metadata is discarded.
func ParseRows(resp SeismicResponse) ([]Row, error) {
	var env designMapsEnvelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return nil, fmt.Errorf("%w: decode design maps response: %w", ErrInsufficientData, err)
	}
	if env.Response == nil || len(env.Response.Data) == 0 {
		return nil, fmt.Errorf("%w: design maps response has no data", ErrInsufficientData)
	}

	rows, err := orderedObject(env.Response.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode response data: %w", ErrInsufficientData, err)
	}
	return rows, nil
}

// DropNullRows returns the rows whose value is present.
func DropNullRows(rows []Row) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if !r.IsNull() {
			out = append(out, r)
		}
	}
	return out
}

// orderedObject walks a JSON object token by token so keys come back in
// document order, which encoding/json maps do not preserve.
func orderedObject(raw json.RawMessage) ([]Row, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("data is not an object")
	}

	var rows []Row
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected key token %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("row %q: %w", name, err)
		}
		rows = append(rows, Row{Name: name, Value: value})
	}
	return rows, nil
}

func parseSpectrum(raw json.RawMessage) ([]SpectrumPoint, error) {
	var pairs [][]*float64
	if err := json.Unmarshal(raw, &pairs); err == nil {
		points := make([]SpectrumPoint, 0, len(pairs))
		for i, p := range pairs {
			if len(p) != 2 {
				return nil, fmt.Errorf("point %d has %d values, want 2", i, len(p))
			}
			if p[0] == nil || p[1] == nil {
				return nil, fmt.Errorf("point %d has a null value", i)
			}
			points = append(points, SpectrumPoint{Period: *p[0], Acceleration: *p[1]})
		}
		if len(points) == 0 {
			return nil, errors.New("spectrum has no points")
		}
		return points, nil
	}

	var par parallelSpectrum
	if err := json.Unmarshal(raw, &par); err != nil || par.Periods == nil {
		return nil, errors.New("not a spectrum")
	}
	if len(par.Periods) != len(par.Ordinates) {
		return nil, fmt.Errorf("%d periods but %d ordinates", len(par.Periods), len(par.Ordinates))
	}
	if len(par.Periods) == 0 {
		return nil, errors.New("spectrum has no points")
	}
	points := make([]SpectrumPoint, len(par.Periods))
	for i := range par.Periods {
		if par.Periods[i] == nil || par.Ordinates[i] == nil {
			return nil, fmt.Errorf("point %d has a null value", i)
		}
		points[i] = SpectrumPoint{Period: *par.Periods[i], Acceleration: *par.Ordinates[i]}
	}
	return points, nil
}

func parseScalar(r Row) DesignValue {
	v := DesignValue{Name: r.Name}

	var num float64
	if err := json.Unmarshal(r.Value, &num); err == nil {
		v.Number = num
		v.Numeric = true
		return v
	}

	var text string
	if err := json.Unmarshal(r.Value, &text); err == nil {
		v.Text = text
		return v
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, r.Value); err == nil {
		v.Text = compact.String()
	} else {
		v.Text = string(r.Value)
	}
	return v
}

// checkSheetName rejects names Excel cannot store and names that, compared
// case-insensitively as Excel does, collide with an earlier spectrum.
func checkSheetName(name string, earlier []SpectrumTable) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("blank sheet name")
	}
	if strings.ContainsAny(name, invalidSheetChars) {
		return fmt.Errorf("sheet name %q contains one of %s", name, invalidSheetChars)
	}
	if strings.HasPrefix(name, "'") || strings.HasSuffix(name, "'") {
		return fmt.Errorf("sheet name %q starts or ends with an apostrophe", name)
	}
	for _, s := range earlier {
		if strings.EqualFold(s.SheetName, name) {
			return fmt.Errorf("sheet name %q is already used", name)
		}
	}
	return nil
}

func sheetName(name string) string {
	runes := []rune(name)
	if len(runes) > maxSheetName {
		return string(runes[:maxSheetName])
	}
	return name
}
