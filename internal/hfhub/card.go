package hfhub

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// DefaultTags are added to every dataset card.
var DefaultTags = []string{"promptwright", "synthetic"}

type cardMeta struct {
	Tags    []string     `yaml:"tags"`
	Configs []cardConfig `yaml:"configs"`
}

type cardConfig struct {
	ConfigName string         `yaml:"config_name"`
	DataFiles  []cardDataFile `yaml:"data_files"`
}

type cardDataFile struct {
	Split string `yaml:"split"`
	Path  string `yaml:"path"`
}

// Card renders the README.md of a dataset repository.
func Card(repo, dataPath string, tags []string) ([]byte, error) {
	meta := cardMeta{
		Tags: mergeTags(DefaultTags, tags),
		Configs: []cardConfig{{
			ConfigName: "default",
			DataFiles:  []cardDataFile{{Split: "train", Path: dataPath}},
		}},
	}
	front, err := yaml.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encoding card metadata: %w", err)
	}

	var b bytes.Buffer
	b.WriteString("---\n")
	b.Write(front)
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "# %s\n\n", repo)
	b.WriteString("Synthetic conversation dataset generated with promptwright.\n\n")
	b.WriteString("Each line of the data file is one sample of the form\n")
	b.WriteString("`{\"messages\": [{\"role\": ..., \"content\": ...}, ...]}`.\n")
	return b.Bytes(), nil
}

// mergeTags concatenates tag lists, dropping blanks and repeats.
func mergeTags(lists ...[]string) []string {
	seen := map[string]bool{}
	var out []string
	for _, l := range lists {
		for _, t := range l {
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
