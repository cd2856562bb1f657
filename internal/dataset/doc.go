// Package dataset holds validated conversation samples and their JSONL
// persistence.
//
// A Dataset accepts raw decoded samples, keeps the ones that pass Validate
// in insertion order and diverts the rest to a failed list without
// returning an error. Files are newline-delimited JSON, one compact
// {"messages": [...]} object per line.
package dataset
