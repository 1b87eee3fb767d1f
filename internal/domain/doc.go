// Package domain models USGS seismic design parameter data for a single
// project site.
//
// # Data Source
//
// Design values come from the USGS Seismic Design Web Services, ASCE 7-16
// endpoint (https://earthquake.usgs.gov/ws/designmaps/asce7-16.json). The
// service is queried with a site latitude/longitude, a risk category and a
// site class, and answers with a JSON document of the form:
//
//	{
//	  "request":  {...},
//	  "response": {
//	    "data":     { "pga": 0.5, "fpga": 1.1, ..., "sdc": "D", ... },
//	    "metadata": { ... }
//	  }
//	}
//
// # Row Conventions
//
// Each key of response.data is a named row. Scalar rows hold a number
// (spectral accelerations in g, coefficients, periods in seconds) or a string
// (seismic design category). Rows the service could not compute for the given
// site class are reported as null and are dropped.
//
// The final four rows are the response spectra:
//
//	twoPeriodDesignSpectrum
//	twoPeriodMCErSpectrum
//	verticalDesignSpectrum
//	verticalMCErSpectrum
//
// Spectrum rows are sequences of [period, acceleration] pairs:
//
//	[[0, 0.4], [0.1, 1.0], [0.2, 1.0], ...]
//
// Some service versions encode the same curve as parallel arrays:
//
//	{"periods": [0, 0.1, ...], "ordinates": [0.4, 1.0, ...]}
//
// Both are accepted by [TransformResponse].
//
// # Classification
//
// Risk category (I-IV) and site class (A, B, C, D, D-default) are matched
// exactly, case-sensitively, with no whitespace trimming. See
// [ParseRiskCategory] and [ParseSiteClass].
//
// # Output Naming
//
// Workbooks are named after the project address with spaces replaced by
// underscores and commas removed, see [SanitizeAddress].
package domain
