// Package templates ranks index templates against a target index name.
package templates

import (
	"regexp"
	"strings"
)

// Matches reports whether candidate matches the glob pattern as a whole.
// Only '*' is special and matches any run of characters, including none.
func Matches(pattern, candidate string) bool {
	re, err := compileGlob(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(candidate)
}

func compileGlob(pattern string) (*regexp.Regexp, error) {
	quoted := regexp.QuoteMeta(pattern)
	expr := "^" + strings.ReplaceAll(quoted, `\*`, "(?s:.*)") + "$"
	return regexp.Compile(expr)
}
