package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Maximum JSONL line accepted when reading a dataset.
const maxLineSize = 10 * 1024 * 1024

var whitespaceRe = regexp.MustCompile(`\s+`)

// Dataset is an ordered collection of validated samples plus the raw
// samples that failed validation.
type Dataset struct {
	samples []Sample
	failed  []RawSample
}

// New returns an empty dataset.
func New() *Dataset {
	return &Dataset{}
}

// FromList builds a dataset from raw samples, diverting invalid ones.
func FromList(raws []RawSample) *Dataset {
	d := New()
	d.AddSamples(raws)
	return d
}

// FromJSONL reads a dataset file. Lines that are not JSON objects fail the
// whole read; well-formed lines that fail validation go to Failed.
func FromJSONL(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()

	d, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return d, nil
}

// Read decodes JSONL samples from r.
func Read(r io.Reader) (*Dataset, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	d := New()
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var raw RawSample
		if err := json.Unmarshal(line, &raw); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		d.AddSamples([]RawSample{raw})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return d, nil
}

// AddSamples validates each raw sample independently. Valid samples are
// appended; invalid ones are returned together with a description and also
// kept in Failed.
func (d *Dataset) AddSamples(raws []RawSample) ([]RawSample, []string) {
	var (
		failed       []RawSample
		descriptions []string
	)
	for _, raw := range raws {
		s, err := FromRaw(raw)
		if err != nil {
			failed = append(failed, raw)
			descriptions = append(descriptions, "Invalid sample format: "+describe(raw))
			d.failed = append(d.failed, raw)
			continue
		}
		d.samples = append(d.samples, s)
	}
	return failed, descriptions
}

// Append adds already-typed samples. Samples with invalid roles are rejected.
func (d *Dataset) Append(samples ...Sample) error {
	for i, s := range samples {
		for j, m := range s.Messages {
			if !m.Role.Valid() {
				return fmt.Errorf("sample %d message %d: invalid role %q", i, j, m.Role)
			}
		}
	}
	d.samples = append(d.samples, samples...)
	return nil
}

// Len returns the number of valid samples.
func (d *Dataset) Len() int {
	return len(d.samples)
}

// At returns the i-th sample.
func (d *Dataset) At(i int) Sample {
	return d.samples[i]
}

// Samples returns a copy of the valid samples.
func (d *Dataset) Samples() []Sample {
	out := make([]Sample, len(d.samples))
	copy(out, d.samples)
	return out
}

// Failed returns the raw samples rejected so far.
func (d *Dataset) Failed() []RawSample {
	out := make([]RawSample, len(d.failed))
	copy(out, d.failed)
	return out
}

// FilterByRole returns copies of samples reduced to messages with role r.
// Samples with no such message are omitted.
func (d *Dataset) FilterByRole(r Role) []Sample {
	var out []Sample
	for _, s := range d.samples {
		var msgs []Message
		for _, m := range s.Messages {
			if m.Role == r {
				msgs = append(msgs, m)
			}
		}
		if len(msgs) > 0 {
			out = append(out, Sample{Messages: msgs})
		}
	}
	return out
}

// Stats summarizes a dataset.
type Stats struct {
	// Empty is set when the dataset holds no samples; the other fields are zero.
	Empty                bool             `json:"empty,omitempty"`
	TotalSamples         int              `json:"total_samples"`
	AvgMessagesPerSample float64          `json:"avg_messages_per_sample"`
	RoleDistribution     map[Role]float64 `json:"role_distribution"`
	AvgContentLength     float64          `json:"avg_content_length"`
}

// Statistics computes sample and message statistics. Content length is
// measured in characters, not bytes.
func (d *Dataset) Statistics() Stats {
	if len(d.samples) == 0 {
		return Stats{Empty: true}
	}

	counts := make(map[Role]int, len(Roles))
	totalMessages, totalLen := 0, 0
	for _, s := range d.samples {
		for _, m := range s.Messages {
			counts[m.Role]++
			totalMessages++
			totalLen += utf8.RuneCountInString(m.Content)
		}
	}

	st := Stats{
		TotalSamples:         len(d.samples),
		AvgMessagesPerSample: float64(totalMessages) / float64(len(d.samples)),
		RoleDistribution:     make(map[Role]float64, len(Roles)),
	}
	for _, r := range Roles {
		if totalMessages > 0 {
			st.RoleDistribution[r] = float64(counts[r]) / float64(totalMessages)
		} else {
			st.RoleDistribution[r] = 0
		}
	}
	if totalMessages > 0 {
		st.AvgContentLength = float64(totalLen) / float64(totalMessages)
	}
	return st
}

// Save writes the dataset to path as JSONL, replacing any existing file.
func (d *Dataset) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if _, err := d.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// WriteTo writes one compact JSON object per line. Runs of whitespace in
// the encoded line collapse to a single space.
func (d *Dataset) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	for _, s := range d.samples {
		line, err := encodeLine(s)
		if err != nil {
			return n, err
		}
		m, err := bw.WriteString(line + "\n")
		n += int64(m)
		if err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}

func encodeLine(s Sample) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return "", err
	}
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(buf.String(), " ")), nil
}
