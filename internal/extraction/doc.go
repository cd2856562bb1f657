// Package extraction recovers structured values from free-form model output.
//
// Models asked for "a JSON list" or "a JSON object" routinely wrap the answer
// in prose, markdown fences or Python-style literals. ListExtractor walks an
// ordered list of strategies and returns the first list it can recover;
// ExtractObject returns the first balanced {...} object. Neither panics or
// returns an error: failure yields an empty result plus a diagnostic note.
package extraction
