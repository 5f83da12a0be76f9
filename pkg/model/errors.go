package model

import "github.com/m-mizutani/goerr/v2"

var (
	// ErrNotInitialized is returned when the similarity index is searched before any fragment is added
	ErrNotInitialized = goerr.New("similarity index is not initialized")

	// ErrMalformedFragmentMetadata marks fragments that cannot be ranked or cited
	ErrMalformedFragmentMetadata = goerr.New("malformed fragment metadata")

	// ErrUpstreamUnavailable wraps failures of the embedding or generation primitive
	ErrUpstreamUnavailable = goerr.New("upstream unavailable")

	ErrInvalidRequest   = goerr.New("invalid request")
	ErrInvalidLeadState = goerr.New("invalid lead status")
)
