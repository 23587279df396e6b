package matcher

import (
	"fmt"
	"time"

	"github.com/dlclark/regexp2"
)

// MatchTimeout bounds a single regular expression evaluation.
const MatchTimeout = 2 * time.Second

// CompileRegexp compiles src with JavaScript-compatible syntax, falling back
// to the default syntax for constructs ECMAScript mode rejects.
func CompileRegexp(src string) (*regexp2.Regexp, error) {
	re, err := regexp2.Compile(src, regexp2.ECMAScript)
	if err != nil {
		re, err = regexp2.Compile(src, regexp2.None)
		if err != nil {
			return nil, fmt.Errorf("compiling %q: %w", src, err)
		}
	}
	re.MatchTimeout = MatchTimeout
	return re, nil
}

// MustCompileRegexp is like CompileRegexp but panics on error.
func MustCompileRegexp(src string) *regexp2.Regexp {
	re, err := CompileRegexp(src)
	if err != nil {
		panic(err)
	}
	return re
}

// captures holds the groups of one match; undefined groups are not ok.
type captures struct {
	values []string
	ok     []bool
}

// exec runs re against line and returns its groups.
func exec(re *regexp2.Regexp, line string) (captures, bool) {
	m, err := re.FindStringMatch(line)
	if err != nil || m == nil {
		return captures{}, false
	}
	groups := m.Groups()
	c := captures{
		values: make([]string, len(groups)),
		ok:     make([]bool, len(groups)),
	}
	for i, g := range groups {
		if len(g.Captures) > 0 {
			c.values[i] = g.String()
			c.ok[i] = true
		}
	}
	return c, true
}

// get returns the value of group g if it is configured, in range and defined.
func (c captures) get(g Group) (string, bool) {
	i, set := g.Index()
	if !set || i < 0 || i >= len(c.values) || !c.ok[i] {
		return "", false
	}
	return c.values[i], true
}
