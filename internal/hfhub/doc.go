// Package hfhub uploads datasets to the Hugging Face Hub.
//
// PushToHub commits the dataset file and a generated dataset card in one
// call to the Hub commit API. Failures are reported in the returned Result
// rather than as errors so callers can surface the message unmodified.
package hfhub
