package hfhub

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/promptwright/internal/logging"
)

const (
	DefaultBaseURL  = "https://huggingface.co"
	DefaultBranch   = "main"
	DefaultDataPath = "data/train.jsonl"
	defaultTimeout  = 5 * time.Minute
)

// Status of an upload.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Result is the outcome of PushToHub.
type Result struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
}

// OK reports whether the upload succeeded.
func (r Result) OK() bool { return r.Status == StatusSuccess }

func failure(format string, args ...any) Result {
	return Result{Status: StatusError, Message: fmt.Sprintf(format, args...)}
}

// Uploader pushes dataset files to dataset repositories.
type Uploader struct {
	token      string
	baseURL    string
	branch     string
	dataPath   string
	httpClient *http.Client
	logger     *logging.Logger
}

// Option configures an Uploader.
type Option func(*Uploader)

// WithBaseURL points the uploader at another Hub endpoint.
func WithBaseURL(u string) Option {
	return func(up *Uploader) { up.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the client used for Hub requests.
func WithHTTPClient(c *http.Client) Option {
	return func(up *Uploader) { up.httpClient = c }
}

// WithLogger sets the uploader logger.
func WithLogger(l *logging.Logger) Option {
	return func(up *Uploader) { up.logger = l }
}

// WithBranch sets the revision to commit to. Defaults to main.
func WithBranch(b string) Option {
	return func(up *Uploader) { up.branch = b }
}

// NewUploader creates an uploader authenticated with token.
func NewUploader(token string, opts ...Option) *Uploader {
	u := &Uploader{
		token:      token,
		baseURL:    DefaultBaseURL,
		branch:     DefaultBranch,
		dataPath:   DefaultDataPath,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

type commitLine struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

type commitHeader struct {
	Summary     string `json:"summary"`
	Description string `json:"description"`
}

type commitFile struct {
	Content  string `json:"content"`
	Path     string `json:"path"`
	Encoding string `json:"encoding"`
}

type hubError struct {
	Error string `json:"error"`
}

// PushToHub commits the JSONL file at path to the dataset repository repo
// ("owner/name") together with a dataset card carrying tags.
func (u *Uploader) PushToHub(ctx context.Context, repo, path string, tags []string) Result {
	if u.token == "" {
		return failure("Hugging Face token not provided.")
	}
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return failure("Invalid repository name '%s'. Expected 'username/dataset_name'.", repo)
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return failure("File '%s' not found. Please check your file path.", path)
	}
	if err != nil {
		return failure("An unexpected error occurred: %s", err)
	}

	card, err := Card(repo, u.dataPath, tags)
	if err != nil {
		return failure("An unexpected error occurred: %s", err)
	}

	body, err := u.commitBody(data, card)
	if err != nil {
		return failure("An unexpected error occurred: %s", err)
	}

	endpoint := fmt.Sprintf("%s/api/datasets/%s/%s/commit/%s",
		u.baseURL, url.PathEscape(owner), url.PathEscape(name), url.PathEscape(u.branch))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return failure("An unexpected error occurred: %s", err)
	}
	req.Header.Set("Authorization", "Bearer "+u.token)
	req.Header.Set("Content-Type", "application/x-ndjson")

	u.logger.Info(ctx, "uploading dataset", zap.String("repo", repo), zap.Int("bytes", len(data)))

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return failure("An unexpected error occurred: %s", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return failure("Repository '%s' not found. Please check your repository name.", repo)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		msg := strings.TrimSpace(string(respBody))
		var he hubError
		if json.Unmarshal(respBody, &he) == nil && he.Error != "" {
			msg = he.Error
		}
		return failure("Hugging Face Hub HTTP Error: %d %s", resp.StatusCode, msg)
	}

	u.logger.Info(ctx, "dataset uploaded", zap.String("repo", repo))
	return Result{Status: StatusSuccess, Message: fmt.Sprintf("Dataset pushed successfully to %s.", repo)}
}

// commitBody encodes the NDJSON payload of a commit adding the card and
// the data file.
func (u *Uploader) commitBody(data, card []byte) ([]byte, error) {
	lines := []commitLine{
		{Key: "header", Value: commitHeader{Summary: "Upload dataset with promptwright"}},
		{Key: "file", Value: commitFile{
			Content:  base64.StdEncoding.EncodeToString(card),
			Path:     "README.md",
			Encoding: "base64",
		}},
		{Key: "file", Value: commitFile{
			Content:  base64.StdEncoding.EncodeToString(data),
			Path:     u.dataPath,
			Encoding: "base64",
		}},
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, l := range lines {
		if err := enc.Encode(l); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
