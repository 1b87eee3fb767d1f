package domain

import (
	"context"
	"fmt"
	"strings"
)

// RiskCategory is the ASCE 7 risk category of a structure.
type RiskCategory string

const (
	RiskCategoryI   RiskCategory = "I"
	RiskCategoryII  RiskCategory = "II"
	RiskCategoryIII RiskCategory = "III"
	RiskCategoryIV  RiskCategory = "IV"
)

// RiskCategories lists the accepted risk categories in prompt order.
var RiskCategories = []RiskCategory{RiskCategoryI, RiskCategoryII, RiskCategoryIII, RiskCategoryIV}

// SiteClass is the ASCE 7 site class describing local soil stiffness.
type SiteClass string

const (
	SiteClassA        SiteClass = "A"
	SiteClassB        SiteClass = "B"
	SiteClassC        SiteClass = "C"
	SiteClassD        SiteClass = "D"
	SiteClassDDefault SiteClass = "D-default"
)

// SiteClasses lists the accepted site classes in prompt order.
var SiteClasses = []SiteClass{SiteClassA, SiteClassB, SiteClassC, SiteClassD, SiteClassDDefault}

// ParseRiskCategory accepts exactly one of I, II, III or IV.
// Matching is case-sensitive and whitespace is significant.
func ParseRiskCategory(s string) (RiskCategory, error) {
	for _, rc := range RiskCategories {
		if s == string(rc) {
			return rc, nil
		}
	}
	return "", fmt.Errorf("%w: risk category %q", ErrInvalidInput, s)
}

// ParseSiteClass accepts exactly one of A, B, C, D or D-default.
func ParseSiteClass(s string) (SiteClass, error) {
	for _, sc := range SiteClasses {
		if s == string(sc) {
			return sc, nil
		}
	}
	return "", fmt.Errorf("%w: site class %q", ErrInvalidInput, s)
}

// Coordinates is a WGS-84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lng"`
}

// ProjectInput holds the validated user input for one report.
type ProjectInput struct {
	Address      string
	RiskCategory RiskCategory
	SiteClass    SiteClass
}

// Geocoder resolves a free-text address to coordinates.
type Geocoder interface {
	// Resolve returns the first location of the first result. Failures wrap
	// ErrGeocode.
	Resolve(ctx context.Context, address string) (Coordinates, error)
}

// SanitizeAddress turns an address into a file name stem: spaces become
// underscores and commas are removed. No other character is altered.
func SanitizeAddress(address string) string {
	s := strings.ReplaceAll(address, " ", "_")
	return strings.ReplaceAll(s, ",", "")
}

// OutputName returns the workbook name, without extension, for an address.
func OutputName(address string) string {
	return SanitizeAddress(address) + "_outputData"
}

// quotedList renders values the way the prompts show them: ['I', 'II'].
func quotedList[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = "'" + string(v) + "'"
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// RiskCategoryChoices returns the accepted risk categories formatted for prompts.
func RiskCategoryChoices() string { return quotedList(RiskCategories) }

// SiteClassChoices returns the accepted site classes formatted for prompts.
func SiteClassChoices() string { return quotedList(SiteClasses) }
