// Package vmf runs the full ingestion pipeline: text is tokenized, parsed
// into the generic block tree, mapped to typed records and assembled into a
// MapDocument.
//
// Parse holds no state between calls and may be called concurrently for
// independent inputs.
package vmf

import (
	"io"

	"github.com/cory-johannsen/vmfkit/internal/vmf/document"
	"github.com/cory-johannsen/vmfkit/internal/vmf/keyvalues"
	"github.com/cory-johannsen/vmfkit/internal/vmf/schema"
)

type options struct {
	maxDepth int
}

// Option configures Parse.
type Option func(*options)

// WithMaxDepth bounds block nesting. Values below 1 keep the default.
func WithMaxDepth(n int) Option {
	return func(o *options) {
		if n >= 1 {
			o.maxDepth = n
		}
	}
}

// Parse builds the MapDocument for the complete contents of one VMF file.
//
// Postcondition: exactly one of the document and the error is non-nil; the
// error is a *vmferr.Error carrying its kind and source location.
func Parse(text string, opts ...Option) (*document.MapDocument, error) {
	o := options{maxDepth: keyvalues.DefaultMaxDepth}
	for _, opt := range opts {
		opt(&o)
	}
	root, err := keyvalues.Parse(text, keyvalues.WithMaxDepth(o.maxDepth))
	if err != nil {
		return nil, err
	}
	recs, err := schema.Map(root)
	if err != nil {
		return nil, err
	}
	return document.Assemble(recs)
}

// Encode writes doc to w as canonical VMF text.
func Encode(w io.Writer, doc *document.MapDocument) error {
	return keyvalues.Encode(w, doc.Blocks())
}
