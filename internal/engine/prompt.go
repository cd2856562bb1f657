package engine

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"

	"github.com/fyrsmithlabs/promptwright/internal/dataset"
	"github.com/fyrsmithlabs/promptwright/internal/extraction"
	"github.com/fyrsmithlabs/promptwright/internal/prompts"
)

// buildPrompt renders the sample template for one batch slot. A nil path
// produces a topic-less prompt.
func (e *Engine) buildPrompt(path []string) (string, error) {
	examples, err := e.examples()
	if err != nil {
		return "", err
	}
	return prompts.Render(prompts.SampleGeneration,
		prompts.PlaceholderSystemPrompt, e.generationSystemPrompt,
		prompts.PlaceholderInstructions, prompts.InstructionsBlock(e.cfg.Instructions),
		prompts.PlaceholderExamples, prompts.ExamplesBlock(examples),
		prompts.PlaceholderSubtopics, prompts.SubtopicsBlock(path),
	), nil
}

// examples draws the few-shot demonstrations for one prompt without
// replacement.
func (e *Engine) examples() ([]string, error) {
	n := e.cfg.NumExampleDemonstrations
	pool := e.cfg.ExampleData
	if pool == nil || n <= 0 {
		return nil, nil
	}
	if n > pool.Len() {
		return nil, fmt.Errorf("%w: want %d, have %d", ErrNotEnoughExamples, n, pool.Len())
	}

	out := make([]string, 0, n)
	for _, i := range sampleIndices(e.rand, pool.Len(), n) {
		b, err := json.Marshal(pool.At(i))
		if err != nil {
			return nil, fmt.Errorf("encoding example %d: %w", i, err)
		}
		out = append(out, string(b))
	}
	return out, nil
}

// sampleIndices returns k distinct indices from [0, n) in random order.
func sampleIndices(r *rand.Rand, n, k int) []int {
	return r.Perm(n)[:k]
}

// drawPaths returns k paths chosen uniformly without replacement.
func drawPaths(r *rand.Rand, paths [][]string, k int) [][]string {
	out := make([][]string, k)
	for i, idx := range sampleIndices(r, len(paths), k) {
		out[i] = paths[idx]
	}
	return out
}

// parseSample pulls the first JSON object out of a response. Empty objects
// count as unparsed.
func parseSample(text string) (dataset.RawSample, bool) {
	span, ok := extraction.ExtractObject(text)
	if !ok {
		return nil, false
	}
	var raw dataset.RawSample
	if err := json.Unmarshal([]byte(span), &raw); err != nil || len(raw) == 0 {
		return nil, false
	}
	return raw, true
}

// withSystemMessage puts a system message first unless the sample already
// has one. Samples without a message list are left for validation to reject.
func withSystemMessage(raw dataset.RawSample, content string) dataset.RawSample {
	msgs, ok := raw["messages"].([]any)
	if !ok {
		return raw
	}
	for _, m := range msgs {
		if obj, ok := m.(map[string]any); ok && obj["role"] == string(dataset.RoleSystem) {
			return raw
		}
	}
	withSys := make([]any, 0, len(msgs)+1)
	withSys = append(withSys, map[string]any{
		"role":    string(dataset.RoleSystem),
		"content": content,
	})
	raw["messages"] = append(withSys, msgs...)
	return raw
}
