package resolve

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// ResolveFunction is the global a provider script must define.
const ResolveFunction = "resolve"

// DefaultLuaTimeout bounds a single resolve call.
const DefaultLuaTimeout = time.Second

var (
	// ErrProviderClosed is returned by a closed LuaProvider.
	ErrProviderClosed = errors.New("lua provider is closed")

	// ErrNoResource is returned when the script declines to resolve a path.
	ErrNoResource = errors.New("lua provider returned no resource")
)

// LuaProvider resolves paths with a Lua script.
//
// The script runs with only the base, table, string and math libraries and
// without load, loadfile, loadstring, dofile and require. It may call
// file_uri(path) to build the default resource. resolve returning nil or
// false rejects the path.
//
// LState is not goroutine-safe; calls are serialized.
type LuaProvider struct {
	mu      sync.Mutex
	L       *lua.LState
	timeout time.Duration
	closed  bool
}

// LuaOption configures a LuaProvider.
type LuaOption func(*LuaProvider)

// WithLuaTimeout sets the per-call timeout.
func WithLuaTimeout(d time.Duration) LuaOption {
	return func(p *LuaProvider) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// NewLuaProvider runs script and returns a provider calling its resolve
// function.
func NewLuaProvider(script string, opts ...LuaOption) (*LuaProvider, error) {
	p := &LuaProvider{timeout: DefaultLuaTimeout}
	for _, opt := range opts {
		opt(p)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	for _, name := range []string{"load", "loadfile", "loadstring", "dofile", "require"} {
		L.SetGlobal(name, lua.LNil)
	}
	L.SetGlobal("file_uri", L.NewFunction(luaFileURI))
	p.L = L

	if err := doWithRecovery(func() error { return L.DoString(script) }); err != nil {
		L.Close()
		return nil, fmt.Errorf("loading lua provider: %w", err)
	}
	if fn := L.GetGlobal(ResolveFunction); fn.Type() != lua.LTFunction {
		L.Close()
		return nil, fmt.Errorf("lua provider must define a global %s function (got %s)", ResolveFunction, fn.Type())
	}
	return p, nil
}

// LoadLuaProvider reads a provider script from path.
func LoadLuaProvider(path string, opts ...LuaOption) (*LuaProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lua provider: %w", err)
	}
	return NewLuaProvider(string(data), opts...)
}

// Resolve calls the script's resolve function. It has the URIProvider
// signature.
func (p *LuaProvider) Resolve(ctx context.Context, path string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return "", ErrProviderClosed
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	p.L.SetContext(ctx)
	defer p.L.RemoveContext()

	top := p.L.GetTop()
	err := doWithRecovery(func() error {
		return p.L.CallByParam(lua.P{
			Fn:      p.L.GetGlobal(ResolveFunction),
			NRet:    1,
			Protect: true,
		}, lua.LString(path))
	})
	if err != nil {
		p.L.SetTop(top)
		return "", fmt.Errorf("lua provider: %w", err)
	}

	ret := p.L.Get(-1)
	p.L.SetTop(top)

	switch v := ret.(type) {
	case lua.LString:
		if v == "" {
			return "", fmt.Errorf("%w: %s", ErrNoResource, path)
		}
		return string(v), nil
	case *lua.LNilType, lua.LBool:
		return "", fmt.Errorf("%w: %s", ErrNoResource, path)
	default:
		return "", fmt.Errorf("lua provider returned %s for %s, want string", ret.Type(), path)
	}
}

// Close releases the Lua state.
func (p *LuaProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		p.L.Close()
	}
}

func luaFileURI(L *lua.LState) int {
	L.Push(lua.LString(FileURI(L.CheckString(1))))
	return 1
}

func doWithRecovery(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}
