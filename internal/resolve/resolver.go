package resolve

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/dshills/buildmarkers/internal/matcher"
)

var (
	// ErrUnsupportedFileLocation is returned for matchers whose file
	// location cannot be resolved, such as autodetect.
	ErrUnsupportedFileLocation = errors.New("unsupported file location")

	// ErrMissingFilePrefix is returned for relative matchers without a prefix.
	ErrMissingFilePrefix = errors.New("relative file location without prefix")
)

// Resolver maps a captured file name to a resource identifier.
type Resolver interface {
	Resolve(ctx context.Context, m *matcher.ProblemMatcher, filename string) (string, error)
}

// URIProvider maps a normalized path to a resource identifier.
type URIProvider func(ctx context.Context, path string) (string, error)

// FileResolver is the default Resolver.
type FileResolver struct {
	vars     *Variables
	provider URIProvider
}

// Option configures a FileResolver.
type Option func(*FileResolver)

// WithVariables sets the variables used to expand file prefixes.
func WithVariables(v *Variables) Option {
	return func(r *FileResolver) {
		if v != nil {
			r.vars = v
		}
	}
}

// WithWorkspaceFolder sets the folder ${workspaceFolder} expands to.
func WithWorkspaceFolder(dir string) Option {
	return func(r *FileResolver) {
		r.vars = NewVariables(dir)
	}
}

// WithURIProvider replaces the file:// conversion.
func WithURIProvider(p URIProvider) Option {
	return func(r *FileResolver) {
		r.provider = p
	}
}

// NewFileResolver creates a FileResolver.
func NewFileResolver(opts ...Option) *FileResolver {
	r := &FileResolver{vars: NewVariables("")}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve implements Resolver.
func (r *FileResolver) Resolve(ctx context.Context, m *matcher.ProblemMatcher, filename string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p, err := r.Path(m, filename)
	if err != nil {
		return "", err
	}
	if r.provider != nil {
		return r.provider(ctx, p)
	}
	return FileURI(p), nil
}

// Path returns the normalized path for filename: joined onto the matcher's
// prefix when relative, with forward slashes and a leading "/".
func (r *FileResolver) Path(m *matcher.ProblemMatcher, filename string) (string, error) {
	var full string
	switch m.FileLocation {
	case matcher.FileLocationAbsolute:
		full = filename
	case matcher.FileLocationRelative:
		if m.FilePrefix == "" {
			return "", fmt.Errorf("%w: matcher %s", ErrMissingFilePrefix, describe(m))
		}
		full = toSlash(r.vars.Expand(m.FilePrefix)) + "/" + toSlash(filename)
	default:
		return "", fmt.Errorf("%w: %q in matcher %s", ErrUnsupportedFileLocation, m.FileLocation.String(), describe(m))
	}

	full = path.Clean(toSlash(full))
	if !strings.HasPrefix(full, "/") {
		full = "/" + full
	}
	return full, nil
}

// FileURI converts a normalized path to a file:// URI.
func FileURI(p string) string {
	u := url.URL{Scheme: "file", Path: p}
	return u.String()
}

func toSlash(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

func describe(m *matcher.ProblemMatcher) string {
	if m.Name != "" {
		return m.Name
	}
	return m.Owner
}
