// Package prompts holds the templates sent to the completion backend.
package prompts

import (
	"fmt"
	"strconv"
	"strings"
)

// Template placeholders.
const (
	PlaceholderSystemPrompt = "{{system_prompt}}"
	PlaceholderInstructions = "{{instructions}}"
	PlaceholderExamples     = "{{examples}}"
	PlaceholderSubtopics    = "{{subtopics}}"
	PlaceholderNodePath     = "{{node_path}}"
	PlaceholderNumSubtopics = "{{num_subtopics}}"
)

// PathSeparator joins topic path segments in prompts and logs.
const PathSeparator = " -> "

// TreeJSONInstructions prefixes the tree builder's system prompt.
const TreeJSONInstructions = `When listing subtopics, answer with a JSON array of strings and nothing else.
Example: ["topic 1", "topic 2", "topic 3"]
1. Use double quotes for every string
2. Wrap the items in square brackets
3. Separate items with commas
4. Do not write any text before or after the array
5. Make sure the JSON is valid
`

// EngineJSONInstructions prefixes the generation-time system prompt.
const EngineJSONInstructions = `You build JSON documents and nothing else.

Your answer must be a single JSON object that a strict JSON parser accepts:

1. Use double quotes around every key and string value.
2. Write no text, markdown or commentary outside the JSON object.
3. Separate keys from values with colons and items with commas.
4. Do not leave trailing commas in objects or arrays.
5. Use lowercase true, false and null.

The object always has this shape:
{
  "messages": [
    {"role": "user", "content": "<user_message>"},
    {"role": "assistant", "content": "<assistant_response>"}
  ]
}

`

// TreeGeneration asks for subtopics of one node of the topic tree.
const TreeGeneration = `We are generating training data for a language model with help from a larger model. Asking the larger model the same question every time produces repetitive data, so we vary the request by topic. Topics are organised as a tree: every node is refined into narrower subtopics, and each path from the root to a leaf steers one generation request.

You receive a path from the root to one node. Reply with a list of new subtopics for that node.

Example:
node path: "News Topics" -> "Sports" -> "Football"
desired number of subtopics: 5
subtopics: ["college football", "football stadiums", "health consequences football", "Seattle Seahawks", "football sponsorships"]

Example:
node path: "Small Talk Topics" -> "Hobbies" -> "Cooking"
desired number of subtopics: 6
subtopics: ["recipes", "asian food", "favourite dishes", "cookbooks", "kitchen gadgets", "vegan cooking"]

This is the system prompt of the model being trained:

<system_prompt>
{{system_prompt}}
</system_prompt>

Keep the subtopics somewhat open; they may relate to the node only loosely and can be read in more than one way, but they should suit the system prompt above.
node path: {{node_path}}
desired number of subtopics: {{num_subtopics}}

Return only the list, on a single line.`

// SampleGeneration asks for one conversation sample.
const SampleGeneration = `We are generating training data for a language model. This is the system prompt that describes what the model must be able to do:

<system_prompt>
{{system_prompt}}
</system_prompt>

Write one training sample: a JSON object with a "messages" field holding a list of messages that alternate between the user and assistant roles. The first message comes from the user and the last from the assistant. Use as many turns as the use case needs. The sample must follow this format exactly:

{
    "messages": [
        {"role": "user", "content": "<user_content>"},
        {"role": "assistant", "content": "<assistant_content>"}
    ]
}

Respond with the JSON object only. Anything outside the JSON counts as an error.

Additional guidance:
{{instructions}}
{{examples}}
{{subtopics}}

Now write the sample. Respond only with valid JSON.`

// Render substitutes placeholder/value pairs into tmpl.
func Render(tmpl string, pairs ...string) string {
	if len(pairs)%2 != 0 {
		panic("prompts: Render needs placeholder/value pairs")
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// JoinPath renders a topic path as "a -> b -> c".
func JoinPath(path []string) string {
	return strings.Join(path, PathSeparator)
}

// Subtopics renders the subtopic request for one node.
func Subtopics(systemPrompt string, path []string, n int) string {
	return Render(TreeGeneration,
		PlaceholderSystemPrompt, systemPrompt,
		PlaceholderNodePath, JoinPath(path),
		PlaceholderNumSubtopics, strconv.Itoa(n),
	)
}

// InstructionsBlock wraps custom instructions. Empty input yields "".
func InstructionsBlock(instructions string) string {
	if instructions == "" {
		return ""
	}
	return "\nHere are additional instructions:\n<instructions>\n" + instructions + "\n</instructions>\n"
}

// ExamplesBlock wraps rendered few-shot examples. No examples yields "".
func ExamplesBlock(examples []string) string {
	if len(examples) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\nHere are output examples:\n<examples>\n")
	for i, ex := range examples {
		fmt.Fprintf(&b, "Example %d:\n\n%s\n\n", i+1, ex)
	}
	b.WriteString("</examples>\n")
	return b.String()
}

// SubtopicsBlock ties the sample to a topic path. A nil path yields "".
func SubtopicsBlock(path []string) string {
	if path == nil {
		return ""
	}
	return "\nLastly, the topic of the training data should be related to the following subtopics: " + JoinPath(path)
}
