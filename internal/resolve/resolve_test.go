package resolve

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/buildmarkers/internal/matcher"
)

func relative(prefix string) *matcher.ProblemMatcher {
	return &matcher.ProblemMatcher{Name: "rel", FileLocation: matcher.FileLocationRelative, FilePrefix: prefix}
}

func TestVariables_Expand(t *testing.T) {
	t.Setenv("BUILDMARKERS_TEST_ROOT", "/from/env")

	v := NewVariables("/work/project")
	v.Set("out", "/build/out")

	tests := []struct {
		input string
		want  string
	}{
		{"plain", "plain"},
		{"${workspaceFolder}/src", "/work/project/src"},
		{"${workspaceRoot}", "/work/project"},
		{"${workspaceFolderBasename}", "project"},
		{"${env:BUILDMARKERS_TEST_ROOT}/x", "/from/env/x"},
		{"${env:BUILDMARKERS_TEST_UNSET}", ""},
		{"${env:BUILDMARKERS_TEST_UNSET:/fallback}", "/fallback"},
		{"${out}", "/build/out"},
		{"${unknown}", "${unknown}"},
		{"${unknown:dflt}", "dflt"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, v.Expand(tt.input), tt.input)
	}

	cwd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, cwd, NewVariables("").Expand("${workspaceFolder}"))
	assert.Equal(t, cwd, v.Expand("${cwd}"))
}

func TestFileResolver_Resolve(t *testing.T) {
	r := NewFileResolver(WithWorkspaceFolder("/work"))
	ctx := context.Background()

	tests := []struct {
		name     string
		matcher  *matcher.ProblemMatcher
		filename string
		want     string
	}{
		{"relative", relative("${workspaceFolder}"), "src/a.go", "file:///work/src/a.go"},
		{"relative dot", relative("${workspaceFolder}"), "./main.go", "file:///work/main.go"},
		{"relative parent", relative("${workspaceFolder}/sub"), "../x.go", "file:///work/x.go"},
		{"relative literal prefix", relative("/srv/app"), "lib\\util.c", "file:///srv/app/lib/util.c"},
		{"absolute", &matcher.ProblemMatcher{FileLocation: matcher.FileLocationAbsolute}, "/abs/b.c", "file:///abs/b.c"},
		{"absolute windows", &matcher.ProblemMatcher{FileLocation: matcher.FileLocationAbsolute}, `C:\src\app.cs`, "file:///C:/src/app.cs"},
		{"escaped", &matcher.ProblemMatcher{FileLocation: matcher.FileLocationAbsolute}, "/a dir/b.c", "file:///a%20dir/b.c"},
		{"absolute without slash", &matcher.ProblemMatcher{FileLocation: matcher.FileLocationAbsolute}, "rel/b.c", "file:///rel/b.c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(ctx, tt.matcher, tt.filename)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFileResolver_Errors(t *testing.T) {
	r := NewFileResolver()
	ctx := context.Background()

	_, err := r.Resolve(ctx, &matcher.ProblemMatcher{FileLocation: matcher.FileLocationAutoDetect, FilePrefix: "/x"}, "a.c")
	assert.ErrorIs(t, err, ErrUnsupportedFileLocation)

	_, err = r.Resolve(ctx, &matcher.ProblemMatcher{}, "a.c")
	assert.ErrorIs(t, err, ErrUnsupportedFileLocation)

	_, err = r.Resolve(ctx, relative(""), "a.c")
	assert.ErrorIs(t, err, ErrMissingFilePrefix)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = r.Resolve(canceled, relative("/x"), "a.c")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileResolver_URIProvider(t *testing.T) {
	var seen []string
	r := NewFileResolver(
		WithVariables(NewVariables("/ws")),
		WithURIProvider(func(_ context.Context, p string) (string, error) {
			seen = append(seen, p)
			if p == "/ws/bad.c" {
				return "", errors.New("rejected")
			}
			return "mem:" + p, nil
		}),
	)

	got, err := r.Resolve(context.Background(), relative("${workspaceFolder}"), "good.c")
	require.NoError(t, err)
	assert.Equal(t, "mem:/ws/good.c", got)

	_, err = r.Resolve(context.Background(), relative("${workspaceFolder}"), "bad.c")
	assert.EqualError(t, err, "rejected")
	assert.Equal(t, []string{"/ws/good.c", "/ws/bad.c"}, seen)
}

func TestLuaProvider(t *testing.T) {
	p, err := NewLuaProvider(`
		function resolve(path)
			if string.find(path, "vendor/", 1, true) then
				return nil
			end
			if string.sub(path, -2) == ".h" then
				return file_uri(path)
			end
			return "git:" .. path
		end
	`)
	require.NoError(t, err)
	defer p.Close()

	ctx := context.Background()

	got, err := p.Resolve(ctx, "/src/a.c")
	require.NoError(t, err)
	assert.Equal(t, "git:/src/a.c", got)

	got, err = p.Resolve(ctx, "/src/a.h")
	require.NoError(t, err)
	assert.Equal(t, "file:///src/a.h", got)

	_, err = p.Resolve(ctx, "/vendor/x.c")
	assert.ErrorIs(t, err, ErrNoResource)

	r := NewFileResolver(WithWorkspaceFolder("/repo"), WithURIProvider(p.Resolve))
	got, err = r.Resolve(ctx, relative("${workspaceFolder}"), "src/b.c")
	require.NoError(t, err)
	assert.Equal(t, "git:/repo/src/b.c", got)

	p.Close()
	_, err = p.Resolve(ctx, "/src/a.c")
	assert.ErrorIs(t, err, ErrProviderClosed)
}

func TestLuaProvider_Errors(t *testing.T) {
	_, err := NewLuaProvider(`x = 1`)
	assert.Error(t, err)

	_, err = NewLuaProvider(`function resolve(`)
	assert.Error(t, err)

	_, err = NewLuaProvider(`local f = loadstring("return 1") function resolve(p) return p end`)
	assert.Error(t, err)

	p, err := NewLuaProvider(`function resolve(p) return 42 end`)
	require.NoError(t, err)
	defer p.Close()
	_, err = p.Resolve(context.Background(), "/a")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoResource)

	p2, err := NewLuaProvider(`function resolve(p) error("boom") end`)
	require.NoError(t, err)
	defer p2.Close()
	_, err = p2.Resolve(context.Background(), "/a")
	assert.ErrorContains(t, err, "boom")

	_, err = p2.Resolve(context.Background(), "/b")
	assert.ErrorContains(t, err, "boom")
}

func TestLoadLuaProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "provider.lua")
	require.NoError(t, os.WriteFile(path, []byte(`function resolve(p) return "x:" .. p end`), 0o600))

	p, err := LoadLuaProvider(path, WithLuaTimeout(0))
	require.NoError(t, err)
	defer p.Close()
	got, err := p.Resolve(context.Background(), "/a")
	require.NoError(t, err)
	assert.Equal(t, "x:/a", got)

	_, err = LoadLuaProvider(filepath.Join(t.TempDir(), "missing.lua"))
	assert.Error(t, err)
}
