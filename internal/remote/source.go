package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/spf13/afero"

	"taskmanager/internal/tasks"
)

const (
	DefaultBaseURL = "https://jsonplaceholder.typicode.com/"
	DefaultTimeout = 15 * time.Second
	TasksPath      = "todos"
)

// FetchError describes a failed fetch. It matches tasks.ErrNetwork.
type FetchError struct {
	Source     string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("fetch %s: unexpected status %d", e.Source, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
	default:
		return fmt.Sprintf("fetch %s failed", e.Source)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func (e *FetchError) Is(target error) bool {
	return target == tasks.ErrNetwork
}

type HTTPSource struct {
	client   *http.Client
	endpoint string
	logger   *slog.Logger
}

func NewHTTPSource(baseURL string, timeout time.Duration, logger *slog.Logger) (*HTTPSource, error) {
	return NewHTTPSourceWithClient(baseURL, &http.Client{Timeout: timeout}, logger)
}

func NewHTTPSourceWithClient(baseURL string, client *http.Client, logger *slog.Logger) (*HTTPSource, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse remote base url %q: %w", baseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("remote base url %q must be http or https", baseURL)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPSource{
		client:   client,
		endpoint: base.JoinPath(TasksPath).String(),
		logger:   logger.With("component", "remote"),
	}, nil
}

func (s *HTTPSource) Endpoint() string {
	return s.endpoint
}

func (s *HTTPSource) FetchTasks(ctx context.Context) ([]tasks.Task, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return nil, &FetchError{Source: s.endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Debug("remote fetch failed", "url", s.endpoint, "error", err)
		return nil, &FetchError{Source: s.endpoint, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	s.logger.Debug("remote fetch",
		"url", s.endpoint,
		"status", resp.StatusCode,
		"duration", time.Since(started),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &FetchError{Source: s.endpoint, StatusCode: resp.StatusCode}
	}

	fetched, err := decodeTasks(resp.Body)
	if err != nil {
		return nil, &FetchError{Source: s.endpoint, Err: err}
	}
	return fetched, nil
}

// FileSource reads the remote wire format from a file.
type FileSource struct {
	fs   afero.Fs
	path string
}

func NewFileSource(fs afero.Fs, path string) *FileSource {
	return &FileSource{fs: fs, path: path}
}

func (s *FileSource) FetchTasks(ctx context.Context) ([]tasks.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{Source: s.path, Err: err}
	}

	file, err := s.fs.Open(s.path)
	if err != nil {
		return nil, &FetchError{Source: s.path, Err: err}
	}
	defer func() {
		_ = file.Close()
	}()

	fetched, err := decodeTasks(file)
	if err != nil {
		return nil, &FetchError{Source: s.path, Err: err}
	}
	return fetched, nil
}

func decodeTasks(r io.Reader) ([]tasks.Task, error) {
	var fetched []tasks.Task
	if err := json.NewDecoder(r).Decode(&fetched); err != nil {
		if errors.Is(err, io.EOF) {
			return []tasks.Task{}, nil
		}
		return nil, fmt.Errorf("decode tasks json: %w", err)
	}
	if fetched == nil {
		fetched = []tasks.Task{}
	}
	return fetched, nil
}
