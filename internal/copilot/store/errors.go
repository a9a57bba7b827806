package store

import "errors"

// Sentinel errors returned by store implementations.
var (
	// ErrDimensionMismatch indicates a query embedding whose dimensionality
	// does not match the stored chunk embeddings.
	ErrDimensionMismatch = errors.New("store: embedding dimension mismatch")

	// ErrUnavailable indicates the backing store cannot be reached.
	ErrUnavailable = errors.New("store: unavailable")
)
