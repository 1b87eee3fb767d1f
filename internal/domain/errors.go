package domain

import "errors"

var (
	// ErrInvalidInput marks a rejected address, risk category or site class.
	// The prompt loops recover from it by asking again.
	ErrInvalidInput = errors.New("invalid input")

	// ErrGeocode marks an address the geocoding provider could not resolve
	// to a location, including transport and decoding failures.
	ErrGeocode = errors.New("geocode failed")

	// ErrNetwork marks a transport failure talking to the design maps service.
	ErrNetwork = errors.New("network error")

	// ErrInsufficientData marks a design maps payload that does not yield a
	// base table plus SpectrumCount response spectra.
	ErrInsufficientData = errors.New("insufficient design data")

	// ErrPersistence marks a failure to store the geocoding API key.
	ErrPersistence = errors.New("persist credentials")
)
