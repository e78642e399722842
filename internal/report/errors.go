package report

import "errors"

// Error taxonomy for the report engine. Chart-level problems are recovered
// locally (skip plus warning) and never surface through these; everything
// here aborts the operation it belongs to.
var (
	// ErrConfiguration indicates a structurally invalid configuration.
	ErrConfiguration = errors.New("invalid report configuration")

	// ErrRender indicates a failure while producing the binary document.
	ErrRender = errors.New("report generation failed")

	// ErrParse indicates a malformed or unreadable input spreadsheet.
	ErrParse = errors.New("spreadsheet parse failed")
)
