package domain

const (
	DefaultListenAddress = "0.0.0.0:8080"

	DefaultListLimit     = 100
	MaxListPageSize      = 2000
	DefaultSearchResults = 50
	MaxSearchResults     = 1000
	DefaultReadMaxBytes  = 1000000
	DefaultRevisionLimit = 10

	// MaxListPages caps the internal pagination loop of a single listing
	// invocation. Termination is normally guaranteed by the result-count
	// ceiling or backend exhaustion; the cap guards against a backend that
	// keeps handing out cursors.
	MaxListPages = 64
)
