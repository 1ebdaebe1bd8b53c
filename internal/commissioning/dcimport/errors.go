package dcimport

import "errors"

var (
	// ErrEmptyDocument indicates the project file held no objects at
	// all.
	ErrEmptyDocument = errors.New("dcimport: no objects in project file")

	// ErrMalformedXML indicates the document could not be tokenized.
	ErrMalformedXML = errors.New("dcimport: malformed project file")
)
