package source

import (
	"path"
	"strings"
)

// ExcludeMatcher decides which files found under a directory or s3 prefix
// input stay out of the timeline. Patterns use path.Match syntax and are
// compared against slash-separated paths relative to the input root:
//
//	*.md5        any file or directory whose name matches
//	host1/*.txt  a relative path
//	raw/         a directory and everything below it
//
// Blank patterns, patterns starting with '#' and malformed patterns are
// ignored. A nil matcher excludes nothing.
type ExcludeMatcher struct {
	rules []excludeRule
}

type excludeRule struct {
	glob     string
	anchored bool // contains '/': matched against the whole relative path
	dirOnly  bool // written with a trailing '/'
}

// NewExcludeMatcher parses patterns.
func NewExcludeMatcher(patterns []string) *ExcludeMatcher {
	m := &ExcludeMatcher{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		r := excludeRule{dirOnly: strings.HasSuffix(p, "/")}
		r.glob = strings.TrimRight(p, "/")
		if r.glob == "" {
			continue
		}
		if _, err := path.Match(r.glob, ""); err != nil {
			continue
		}
		r.anchored = strings.Contains(r.glob, "/")
		m.rules = append(m.rules, r)
	}
	return m
}

func (r excludeRule) match(rel string, isDir bool) bool {
	if r.dirOnly && !isDir {
		return false
	}
	target := rel
	if !r.anchored {
		target = path.Base(rel)
	}
	ok, _ := path.Match(r.glob, target)
	return ok
}

func (m *ExcludeMatcher) match(rel string, isDir bool) bool {
	if m == nil || rel == "" || rel == "." {
		return false
	}
	for _, r := range m.rules {
		if r.match(rel, isDir) {
			return true
		}
	}
	return false
}

// SkipDir reports whether the directory rel is excluded together with
// everything below it.
func (m *ExcludeMatcher) SkipDir(rel string) bool {
	return m.match(rel, true)
}

// SkipFile reports whether the file rel is excluded by its own path. Parent
// directories are not consulted; a tree walk prunes them with SkipDir.
func (m *ExcludeMatcher) SkipFile(rel string) bool {
	return m.match(rel, false)
}

// Excluded reports whether the file rel is excluded by its own path or by
// any parent directory. It serves flat listings such as s3 keys.
func (m *ExcludeMatcher) Excluded(rel string) bool {
	if m.SkipFile(rel) {
		return true
	}
	for dir := path.Dir(rel); dir != "." && dir != "/"; dir = path.Dir(dir) {
		if m.SkipDir(dir) {
			return true
		}
	}
	return false
}
