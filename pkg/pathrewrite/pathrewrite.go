// Package pathrewrite applies configured old-prefix -> new-prefix path
// mappings to commits before the pick pipeline consumes them, letting a
// commit be carried across codebases with renamed files (spec §2, §4.2).
package pathrewrite

import (
	"regexp"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"

	"github.com/awslabs/Git-llm-pick/pkg/types"
)

var gitHeaderPathRegex = regexp.MustCompile(`^diff --git a/(\S+) b/(\S+)$`)

// Rewriter applies an ordered list of PathRewrite mappings. The first
// matching OldPrefix wins; rewrites compose left-to-right and never
// touch file contents. An empty Rewriter is the identity (spec §8
// invariant 7).
type Rewriter struct {
	rules []types.PathRewrite
}

// New builds a Rewriter from the configured rules, in order.
func New(rules []types.PathRewrite) *Rewriter {
	return &Rewriter{rules: rules}
}

// RewritePath applies the first matching rule to path, or returns path
// unchanged if no rule matches or the Rewriter has no rules.
func (r *Rewriter) RewritePath(path string) string {
	if path == "" || len(r.rules) == 0 {
		return path
	}
	for _, rule := range r.rules {
		if strings.HasPrefix(path, rule.OldPrefix) {
			return rule.NewPrefix + strings.TrimPrefix(path, rule.OldPrefix)
		}
	}
	return path
}

// RewriteFileChanges rewrites OldPath/NewPath on every FileChange,
// returning a new slice; the input is left untouched.
func (r *Rewriter) RewriteFileChanges(files []types.FileChange) []types.FileChange {
	if len(r.rules) == 0 {
		return files
	}
	out := make([]types.FileChange, len(files))
	for i, f := range files {
		out[i] = f
		out[i].OldPath = r.RewritePath(f.OldPath)
		out[i].NewPath = r.RewritePath(f.NewPath)
	}
	return out
}

// RewriteDiffText rewrites the --- / +++ headers and diff --git lines
// embedded in raw unified diff text, leaving hunk bodies untouched.
func (r *Rewriter) RewriteDiffText(diff []byte) []byte {
	if len(r.rules) == 0 {
		return diff
	}
	lines := strings.Split(string(diff), "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "diff --git "):
			if m := gitHeaderPathRegex.FindStringSubmatch(line); m != nil {
				lines[i] = "diff --git a/" + r.RewritePath(m[1]) + " b/" + r.RewritePath(m[2])
			}
		case strings.HasPrefix(line, "--- a/"):
			lines[i] = "--- a/" + r.RewritePath(strings.TrimPrefix(line, "--- a/"))
		case strings.HasPrefix(line, "+++ b/"):
			lines[i] = "+++ b/" + r.RewritePath(strings.TrimPrefix(line, "+++ b/"))
		case strings.HasPrefix(line, "rename from "):
			lines[i] = "rename from " + r.RewritePath(strings.TrimPrefix(line, "rename from "))
		case strings.HasPrefix(line, "rename to "):
			lines[i] = "rename to " + r.RewritePath(strings.TrimPrefix(line, "rename to "))
		}
	}
	return []byte(strings.Join(lines, "\n"))
}

// JoinSecure resolves a rewritten path beneath root without allowing the
// rewrite to escape the destination working tree.
func JoinSecure(root, path string) (string, error) {
	return securejoin.SecureJoin(root, path)
}
