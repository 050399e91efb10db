// Package aggregate merges per-chunk extraction records into a knowledge
// document. Output depends only on the set of records, never on the order
// they arrived in.
package aggregate
