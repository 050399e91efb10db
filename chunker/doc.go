// Package chunker splits source files into overlapping, size-bounded chunks
// that fit a model's context window.
//
// Sizes and offsets are measured in characters (runes), not bytes. A cut
// prefers to land just after a line break near the size limit so that a
// chunk rarely ends mid-line; when no break is close enough the cut is hard.
// Consecutive chunks share exactly the configured overlap, so dropping the
// first overlap characters of every chunk after the first and concatenating
// reproduces the file.
package chunker
