package extension

import (
	"sort"
	"strings"

	"github.com/GriffinCanCode/Canopy/backend/internal/shared/errs"
	"github.com/GriffinCanCode/Canopy/backend/internal/store"
)

// Decoder turns a persisted record into a concrete instance
type Decoder[E any] func(m *store.Meta) (E, error)

// Decoders maps folder tags to decoders. Tags are matched case-insensitively.
type Decoders[E any] struct {
	byFolder map[string]Decoder[E]
	fallback Decoder[E]
}

// NewDecoders creates an empty table
func NewDecoders[E any]() *Decoders[E] {
	return &Decoders[E]{byFolder: make(map[string]Decoder[E])}
}

// Register adds the decoder for folder
func (d *Decoders[E]) Register(folder string, fn Decoder[E]) *Decoders[E] {
	d.byFolder[strings.ToLower(folder)] = fn
	return d
}

// Fallback sets the decoder used for folders with no registered decoder
func (d *Decoders[E]) Fallback(fn Decoder[E]) *Decoders[E] {
	d.fallback = fn
	return d
}

// Has reports whether folder can be decoded
func (d *Decoders[E]) Has(folder string) bool {
	_, ok := d.byFolder[strings.ToLower(folder)]
	return ok || d.fallback != nil
}

// Folders lists the folders with a registered decoder, sorted
func (d *Decoders[E]) Folders() []string {
	out := make([]string, 0, len(d.byFolder))
	for f := range d.byFolder {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Decode resolves m through the decoder for folder. Unknown folders are NotFound.
func (d *Decoders[E]) Decode(folder string, m *store.Meta) (E, error) {
	fn, ok := d.byFolder[strings.ToLower(folder)]
	if !ok {
		fn = d.fallback
	}
	if fn == nil {
		var zero E
		return zero, errs.NotFound("extension.decode", "no extension type for folder %q", folder)
	}
	return fn(m)
}
