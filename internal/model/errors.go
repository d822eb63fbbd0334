package model

import "errors"

var (
	// ErrNoDocument indicates no tree has been loaded yet.
	ErrNoDocument = errors.New("no document loaded")

	// ErrNotFound indicates a node or chapter id does not resolve in the
	// current index.
	ErrNotFound = errors.New("not found")

	// ErrStructuralViolation indicates an edit that would break a tree
	// invariant. The edit is rejected before any mutation takes place.
	ErrStructuralViolation = errors.New("structural violation")

	// ErrImportFormat indicates an imported document has neither a root key
	// nor the bare single-node shape. Nothing is spliced into the live tree.
	ErrImportFormat = errors.New("unrecognized document format")
)
