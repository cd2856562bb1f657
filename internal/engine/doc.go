// Package engine generates conversation samples through a completion backend.
//
// CreateData runs a fixed number of steps. Each step sends one batch of
// prompts, optionally bound to topic paths drawn at random from a topic
// tree, and feeds the parsed responses into a dataset. Failed responses
// are classified into a FailureAnalysis registry instead of stopping the
// run.
//
// A run ends in one of three ways:
//
//   - all steps complete: the dataset is returned
//   - the context is cancelled: the dataset is saved to the interruption
//     path and returned without error
//   - anything else escapes the step loop: the dataset is saved to the
//     error path and the error is returned
package engine
