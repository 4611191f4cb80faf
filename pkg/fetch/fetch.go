// Package fetch retrieves volume bytes from local files or HTTP endpoints and
// builds the overlay fetch key shared by loading and downloads.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// maxErrorBody bounds how much of a failed response is kept in the error
const maxErrorBody = 512

// Fetcher retrieves the bytes behind a reference
type Fetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// Error is a failed retrieval. Status is 0 for transport or file errors.
type Error struct {
	Ref    string
	Status int
	Body   string
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return strings.TrimSpace(fmt.Sprintf("GET %s → %d %s", e.Ref, e.Status, e.Body))
	}
	return fmt.Sprintf("GET %s: %v", e.Ref, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPFetcher performs GET requests
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher returns a fetcher using a client with the given timeout
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{Timeout: timeout}}
}

// Fetch downloads ref. Non-2xx responses become an *Error carrying the
// status and the start of the body.
func (f *HTTPFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, &Error{Ref: ref, Err: err}
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &Error{Ref: ref, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &Error{Ref: ref, Status: resp.StatusCode, Body: string(body)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Ref: ref, Err: err}
	}
	return data, nil
}

// FileFetcher reads local files, relative references resolved against Root
type FileFetcher struct {
	Root string
}

// Fetch reads the file at ref
func (f *FileFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Ref: ref, Err: err}
	}
	path := strings.TrimPrefix(ref, "file://")
	if f.Root != "" && !filepath.IsAbs(path) {
		path = filepath.Join(f.Root, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Ref: ref, Err: err}
	}
	return data, nil
}

// Router sends http(s) references to HTTP and everything else to Files
type Router struct {
	HTTP  Fetcher
	Files Fetcher
}

// NewRouter builds a router from an HTTP timeout and a file root
func NewRouter(timeout time.Duration, root string) *Router {
	return &Router{
		HTTP:  NewHTTPFetcher(timeout),
		Files: &FileFetcher{Root: root},
	}
}

// Fetch dispatches ref by scheme
func (r *Router) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if IsRemote(ref) {
		return r.HTTP.Fetch(ctx, ref)
	}
	return r.Files.Fetch(ctx, ref)
}

// IsRemote reports whether ref is an http or https URL
func IsRemote(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
