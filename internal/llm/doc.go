// Package llm talks to completion backends.
//
// Every backend implements Client. A Router dispatches requests whose model
// is written as "provider/model" to a lazily constructed backend for that
// provider:
//
//   - anthropic: hand-written client for the Messages API
//   - openai: langchaingo's OpenAI model
//   - ollama: langchaingo's Ollama model
//
// BatchComplete fans a set of requests out concurrently and fails as a whole
// when any request fails.
package llm
