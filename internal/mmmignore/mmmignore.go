// Package mmmignore reads .mmmignore: one glob per line, relative to the
// directory holding the manifest, naming files mmm must not touch or report.
// Lines starting with # are comments and a leading ! re-includes what an
// earlier line ignored. Disabled mods (*.disabled) are always ignored.
package mmmignore

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

const FileName = ".mmmignore"

const disabledPattern = "**/*.disabled"

type rule struct {
	pattern string
	negate  bool
}

type Matcher struct {
	root  string
	rules []rule
}

// Load reads root/.mmmignore. A missing file leaves only the built-in rule.
func Load(fs afero.Fs, root string) (*Matcher, error) {
	path := filepath.Join(root, FileName)
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to check %s: %w", path, err)
	}
	if !exists {
		return New(root), nil
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return New(root, strings.Split(string(data), "\n")...), nil
}

func New(root string, lines ...string) *Matcher {
	matcher := &Matcher{
		root:  filepath.Clean(root),
		rules: []rule{{pattern: disabledPattern}},
	}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		negate := strings.HasPrefix(line, "!")
		line = strings.TrimSpace(strings.TrimPrefix(line, "!"))
		if line == "" {
			continue
		}
		matcher.rules = append(matcher.rules, rule{
			pattern: strings.TrimPrefix(filepath.ToSlash(line), "./"),
			negate:  negate,
		})
	}
	return matcher
}

func (m *Matcher) Patterns() []string {
	patterns := make([]string, 0, len(m.rules))
	for _, r := range m.rules {
		if r.negate {
			patterns = append(patterns, "!"+r.pattern)
			continue
		}
		patterns = append(patterns, r.pattern)
	}
	return patterns
}

// Ignores reports whether path, absolute or relative to the root, is ignored.
// The last matching rule decides. Paths outside the root are never ignored.
func (m *Matcher) Ignores(path string) bool {
	rel, ok := m.relative(path)
	if !ok {
		return false
	}

	ignored := false
	for _, r := range m.rules {
		if match(strings.Split(r.pattern, "/"), strings.Split(rel, "/")) {
			ignored = !r.negate
		}
	}
	return ignored
}

func (m *Matcher) relative(path string) (string, bool) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(m.root, path)
	}
	rel, err := filepath.Rel(m.root, filepath.Clean(path))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// match compares path segments; ** spans any number of them, including none.
func match(pattern []string, target []string) bool {
	if len(pattern) == 0 {
		return len(target) == 0
	}
	if pattern[0] == "**" {
		for skip := 0; skip <= len(target); skip++ {
			if match(pattern[1:], target[skip:]) {
				return true
			}
		}
		return false
	}
	if len(target) == 0 {
		return false
	}
	if ok, err := filepath.Match(pattern[0], target[0]); err != nil || !ok {
		return false
	}
	return match(pattern[1:], target[1:])
}
