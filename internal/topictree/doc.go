// Package topictree expands a root prompt into a bounded tree of topics.
//
// A Builder asks the completion backend for Degree subtopics at every node
// and recurses Depth levels, producing one path per leaf. Nodes whose
// generation keeps failing get placeholder subtopics and a FailedGeneration
// record, so a build always reaches its nominal shape:
//
//	tree, err := topictree.NewBuilder(client).Build(ctx, topictree.Args{
//	    RootPrompt: "Modern history",
//	    Degree:     3,
//	    Depth:      2,
//	    Model:      "ollama/mistral:latest",
//	})
//
// Trees are saved as JSONL, one {"path": [...]} object per line, with failed
// generations in a "_failed" sibling file.
package topictree
