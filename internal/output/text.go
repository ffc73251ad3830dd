package output

import (
	"bufio"
	"fmt"
	"io"
)

// TextWriter writes one line per item, using String() when the item
// implements fmt.Stringer.
type TextWriter struct {
	w *bufio.Writer
}

// NewTextWriter creates a text writer.
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{w: bufio.NewWriter(w)}
}

// Write appends item as a line.
func (w *TextWriter) Write(item any) error {
	_, err := fmt.Fprintln(w.w, item)
	return err
}

// Flush flushes the buffer.
func (w *TextWriter) Flush() error {
	return w.w.Flush()
}
