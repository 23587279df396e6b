package resolve

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// variablePattern matches ${name} and ${name:default}.
var variablePattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// Variables expands ${...} references in file prefixes.
//
// Supported names are workspaceFolder, workspaceFolderBasename, cwd,
// pathSeparator, env:NAME and any custom variable added with Set. A default
// may follow the name after a colon. Unknown variables are left in place.
type Variables struct {
	mu              sync.RWMutex
	workspaceFolder string
	custom          map[string]string
}

// NewVariables creates a Variables rooted at workspaceFolder. An empty
// workspaceFolder means the current working directory.
func NewVariables(workspaceFolder string) *Variables {
	return &Variables{
		workspaceFolder: workspaceFolder,
		custom:          make(map[string]string),
	}
}

// Set defines a custom variable.
func (v *Variables) Set(name, value string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.custom[name] = value
}

// WorkspaceFolder returns the folder ${workspaceFolder} expands to.
func (v *Variables) WorkspaceFolder() string {
	if v.workspaceFolder != "" {
		return v.workspaceFolder
	}
	cwd, _ := os.Getwd()
	return cwd
}

// Expand replaces the variables in input.
func (v *Variables) Expand(input string) string {
	if !strings.Contains(input, "${") {
		return input
	}
	return variablePattern.ReplaceAllStringFunc(input, func(match string) string {
		inner := match[2 : len(match)-1]

		if envPart, ok := strings.CutPrefix(inner, "env:"); ok {
			name, def, _ := strings.Cut(envPart, ":")
			if val := os.Getenv(name); val != "" {
				return val
			}
			return def
		}

		name, def, hasDefault := strings.Cut(inner, ":")
		if value, ok := v.lookup(name); ok && value != "" {
			return value
		}
		if hasDefault {
			return def
		}
		return match
	})
}

func (v *Variables) lookup(name string) (string, bool) {
	v.mu.RLock()
	value, ok := v.custom[name]
	v.mu.RUnlock()
	if ok {
		return value, true
	}

	switch name {
	case "workspaceFolder", "workspaceRoot":
		return v.WorkspaceFolder(), true
	case "workspaceFolderBasename":
		return filepath.Base(v.WorkspaceFolder()), true
	case "cwd":
		cwd, err := os.Getwd()
		return cwd, err == nil
	case "pathSeparator":
		return string(filepath.Separator), true
	}
	return "", false
}
