package ignore

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

type rule struct {
	pattern  string
	negated  bool
	dirOnly  bool
	anchored bool
}

// Matcher applies gitignore-like exclude rules with "last rule wins" behavior.
// Patterns use doublestar syntax, so ** crosses directory boundaries.
type Matcher struct {
	rules []rule
}

// NewMatcher builds a matcher from user-provided exclude lines. With no lines
// it ignores nothing.
func NewMatcher(userRules []string) *Matcher {
	rules := make([]rule, 0, len(userRules))
	for _, line := range userRules {
		if parsed, ok := parseRule(line); ok {
			rules = append(rules, parsed)
		}
	}

	return &Matcher{rules: rules}
}

// ShouldIgnore returns true when relPath should be excluded.
func (m *Matcher) ShouldIgnore(relPath string, isDir bool) bool {
	relPath = normalizePath(relPath)
	ignored := false
	for _, rule := range m.rules {
		if ruleMatches(rule, relPath, isDir) {
			ignored = !rule.negated
		}
	}
	return ignored
}

func parseRule(line string) (rule, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return rule{}, false
	}

	parsed := rule{}
	if strings.HasPrefix(line, "!") {
		parsed.negated = true
		line = strings.TrimPrefix(line, "!")
	}
	if strings.HasPrefix(line, "/") {
		parsed.anchored = true
		line = strings.TrimPrefix(line, "/")
	}
	if strings.HasSuffix(line, "/") {
		parsed.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}

	line = normalizePath(line)
	if line == "" || !doublestar.ValidatePattern(line) {
		return rule{}, false
	}
	parsed.pattern = line
	return parsed, true
}

func ruleMatches(rule rule, relPath string, isDir bool) bool {
	if rule.dirOnly {
		return matchDirectoryPattern(rule, relPath, isDir)
	}

	if rule.anchored || strings.Contains(rule.pattern, "/") {
		if match(rule.pattern, relPath) {
			return true
		}
		if rule.anchored {
			return false
		}
		parts := strings.Split(relPath, "/")
		for i := 1; i < len(parts); i++ {
			if match(rule.pattern, strings.Join(parts[i:], "/")) {
				return true
			}
		}
		return false
	}

	for _, segment := range strings.Split(relPath, "/") {
		if match(rule.pattern, segment) {
			return true
		}
	}
	return false
}

// matchDirectoryPattern matches a dir-only rule against every directory
// prefix of relPath. The last segment only counts when relPath is itself a
// directory.
func matchDirectoryPattern(rule rule, relPath string, isDir bool) bool {
	parts := strings.Split(relPath, "/")
	limit := len(parts) - 1
	if isDir {
		limit = len(parts)
	}
	for i := 0; i < limit; i++ {
		if rule.anchored || strings.Contains(rule.pattern, "/") {
			if match(rule.pattern, strings.Join(parts[:i+1], "/")) {
				return true
			}
			continue
		}
		if match(rule.pattern, parts[i]) {
			return true
		}
	}
	return false
}

func match(pattern, value string) bool {
	ok, err := doublestar.Match(pattern, value)
	return err == nil && ok
}

func normalizePath(path string) string {
	path = filepath.ToSlash(path)
	path = strings.TrimPrefix(path, "./")
	path = strings.TrimPrefix(path, "/")
	return path
}
