package topictree

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/fyrsmithlabs/promptwright/internal/prompts"
)

const jsonlExt = ".jsonl"

// FailedGeneration records a node whose subtopics had to be synthesized.
type FailedGeneration struct {
	Path      []string `json:"path"`
	Attempts  int      `json:"attempts"`
	LastError string   `json:"last_error"`
}

// Record is one entry of a flat tree listing. Either field may be absent.
type Record struct {
	Path             []string          `json:"path,omitempty"`
	FailedGeneration *FailedGeneration `json:"failed_generation,omitempty"`
}

// Tree holds every root-to-leaf path of a built or loaded topic tree.
type Tree struct {
	Paths  [][]string
	Failed []FailedGeneration
}

// FromRecords builds a tree from a flat listing without any generation.
func FromRecords(records []Record) *Tree {
	t := &Tree{}
	for _, r := range records {
		if r.Path != nil {
			t.Paths = append(t.Paths, r.Path)
		}
		if r.FailedGeneration != nil {
			t.Failed = append(t.Failed, *r.FailedGeneration)
		}
	}
	return t
}

// Len returns the number of paths.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Paths)
}

// FailedPath returns the sibling file holding failed generations for path.
func FailedPath(path string) string {
	return strings.TrimSuffix(path, jsonlExt) + "_failed" + jsonlExt
}

// Save writes the paths to path and, when there are failures, the failure
// records to FailedPath(path).
func (t *Tree) Save(path string) error {
	if err := writeLines(path, len(t.Paths), func(i int) any {
		return Record{Path: t.Paths[i]}
	}); err != nil {
		return fmt.Errorf("saving topic tree: %w", err)
	}
	if len(t.Failed) == 0 {
		return nil
	}
	if err := writeLines(FailedPath(path), len(t.Failed), func(i int) any {
		return t.Failed[i]
	}); err != nil {
		return fmt.Errorf("saving failed generations: %w", err)
	}
	return nil
}

func writeLines(path string, n int, item func(int) any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i := range n {
		if err := enc.Encode(item(i)); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Load reads a tree saved with Save, including its failure sibling when present.
func Load(path string) (*Tree, error) {
	records, err := readRecords(path)
	if err != nil {
		return nil, fmt.Errorf("loading topic tree: %w", err)
	}
	t := FromRecords(records)

	f, err := os.Open(FailedPath(path))
	if errors.Is(err, fs.ErrNotExist) {
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading failed generations: %w", err)
	}
	defer f.Close()

	err = scanJSONL(f, func(line []byte) error {
		var fg FailedGeneration
		if err := json.Unmarshal(line, &fg); err != nil {
			return err
		}
		t.Failed = append(t.Failed, fg)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading failed generations: %w", err)
	}
	return t, nil
}

func readRecords(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []Record
	err = scanJSONL(f, func(line []byte) error {
		var r Record
		if err := json.Unmarshal(line, &r); err != nil {
			return err
		}
		records = append(records, r)
		return nil
	})
	return records, err
}

func scanJSONL(r io.Reader, fn func([]byte) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	n := 0
	for sc.Scan() {
		n++
		line := sc.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
	}
	return sc.Err()
}

// Render writes one "a -> b -> c" line per path.
func (t *Tree) Render(w io.Writer) error {
	for _, p := range t.Paths {
		if _, err := fmt.Fprintln(w, prompts.JoinPath(p)); err != nil {
			return err
		}
	}
	return nil
}
