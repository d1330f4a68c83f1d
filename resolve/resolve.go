// Package resolve locates the bytes behind a resource or code reference:
// an `alias://` name, a direct URL, or a filesystem path (§6.3).
package resolve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrUnsupportedScheme is returned for a reference whose scheme this
// Resolver does not (or, for git, deliberately does not yet) support.
var ErrUnsupportedScheme = errors.New("resolve: unsupported reference scheme")

// Resolver turns a reference string into its bytes.
type Resolver interface {
	Resolve(ctx context.Context, ref string) ([]byte, error)
}

// AliasMap resolves `alias://name` references against a table of
// configured aliases (the global config's resource_locations/
// code_locations), delegating the resolved target to an underlying
// Resolver.
type AliasMap struct {
	Aliases map[string]string
	Next    Resolver
}

func (a *AliasMap) Resolve(ctx context.Context, ref string) ([]byte, error) {
	if strings.HasPrefix(ref, "alias://") {
		name := strings.TrimPrefix(ref, "alias://")
		target, ok := a.Aliases[name]
		if !ok {
			return nil, fmt.Errorf("resolve: alias %q is not defined", name)
		}
		ref = target
	}
	return a.Next.Resolve(ctx, ref)
}

// Chain dispatches a reference to the first Resolver in order that does
// not return ErrUnsupportedScheme, trying each in turn.
type Chain []Resolver

func (c Chain) Resolve(ctx context.Context, ref string) ([]byte, error) {
	var lastErr error
	for _, r := range c {
		b, err := r.Resolve(ctx, ref)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, ErrUnsupportedScheme) {
			return nil, err
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = ErrUnsupportedScheme
	}
	return nil, lastErr
}

// FilesystemResolver reads ref as a local filesystem path. It handles any
// reference with no "://" scheme marker, or an explicit "file://" prefix.
type FilesystemResolver struct{}

func (FilesystemResolver) Resolve(_ context.Context, ref string) ([]byte, error) {
	path := ref
	switch {
	case strings.HasPrefix(ref, "file://"):
		path = strings.TrimPrefix(ref, "file://")
	case strings.Contains(ref, "://"):
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, ref)
	}
	return os.ReadFile(filepath.Clean(path))
}

// HTTPResolver fetches ref over http(s).
type HTTPResolver struct {
	Client *http.Client
}

// NewHTTPResolver returns an HTTPResolver with a bounded default timeout.
func NewHTTPResolver() *HTTPResolver {
	return &HTTPResolver{Client: &http.Client{Timeout: 30 * time.Second}}
}

func (h *HTTPResolver) Resolve(ctx context.Context, ref string) ([]byte, error) {
	if !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://") {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, ref)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, err
	}
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("resolve: %s returned status %d", ref, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// GitResolver is the interface shape for `git://`-style clone references.
// Cloning an arbitrary remote repository during resource resolution is a
// real network operation against untrusted input; this exercise leaves it
// unimplemented rather than wiring an unprompted clone, per DESIGN.md.
type GitResolver struct{}

func (GitResolver) Resolve(_ context.Context, ref string) ([]byte, error) {
	if strings.HasPrefix(ref, "git://") || strings.HasPrefix(ref, "git+") {
		return nil, fmt.Errorf("%w: git clone resolution is not implemented (%q)", ErrUnsupportedScheme, ref)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, ref)
}

// Default returns the standard resolver chain: filesystem, then HTTP,
// then the unimplemented git stub, wrapped so `alias://` references
// expand against aliases before falling through.
func Default(aliases map[string]string) Resolver {
	chain := Chain{FilesystemResolver{}, NewHTTPResolver(), GitResolver{}}
	return &AliasMap{Aliases: aliases, Next: chain}
}
