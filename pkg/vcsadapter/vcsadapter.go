// Package vcsadapter is the VCS Adapter: the sole component that shells
// out to git, wrapping every subprocess call behind a narrow interface
// (spec §4.7). The subprocess idiom — `git -C <repo> <subcommand>` with
// CombinedOutput() and an error classifier for "already applied" noop
// states — is grounded on the teacher's applier.go and on the cherry
// runner pattern in the retrieval pack's cherry-pick proof of concept.
// Read-only blob access additionally goes through go-git/go-git/v5,
// avoiding a subprocess round trip for the common case of reading one
// file at one revision.
package vcsadapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/awslabs/Git-llm-pick/pkg/types"
	"github.com/awslabs/Git-llm-pick/pkg/util/logger"
)

// ErrNoopCherryPick signals that a native cherry-pick produced an empty
// diff: the commit's change is already present on HEAD.
var ErrNoopCherryPick = fmt.Errorf("cherry-pick is a noop: commit already applied")

// Adapter is the VCS Adapter of spec §4.7.
type Adapter struct {
	repoRoot string
	sys      SysCalls
	repo     *git.Repository // lazily opened, for read-only blob access
}

// New builds an Adapter rooted at an existing git working tree.
func New(repoRoot string) *Adapter {
	return &Adapter{repoRoot: repoRoot, sys: NewSysCalls()}
}

// NewWithSysCalls builds an Adapter with an injected SysCalls, for
// testing without a real git binary.
func NewWithSysCalls(repoRoot string, sys SysCalls) *Adapter {
	return &Adapter{repoRoot: repoRoot, sys: sys}
}

func (a *Adapter) run(ctx context.Context, args ...string) (string, error) {
	fullArgs := append([]string{"-C", a.repoRoot}, args...)
	out, err := a.sys.ExecCommand(ctx, "git", fullArgs...)
	output := string(out)
	logger.Info("vcs adapter git call", "args", args, "error", err)
	return output, err
}

// CherryPick attempts a native `git cherry-pick` of commitID. mainline
// is 0 for a non-merge commit, or the 1-based parent number for a merge
// commit (spec §4.1 "merge commit handling").
func (a *Adapter) CherryPick(ctx context.Context, commitID string, mainline int) error {
	args := []string{"cherry-pick", "--allow-empty-message"}
	if mainline > 0 {
		args = append(args, "-m", fmt.Sprint(mainline))
	}
	args = append(args, commitID)

	output, err := a.run(ctx, args...)
	if err == nil {
		return nil
	}
	if isNoopCherryPick(output) {
		_, _ = a.run(ctx, "cherry-pick", "--skip")
		return ErrNoopCherryPick
	}
	return fmt.Errorf("vcsadapter: cherry-pick %s: %w: %s", commitID, err, output)
}

// AbortCherryPick discards an in-progress, conflicted cherry-pick.
func (a *Adapter) AbortCherryPick(ctx context.Context) error {
	if _, err := a.run(ctx, "cherry-pick", "--abort"); err != nil {
		return fmt.Errorf("vcsadapter: aborting cherry-pick: %w", err)
	}
	return nil
}

// ResetHard discards all working-tree and index changes back to ref.
func (a *Adapter) ResetHard(ctx context.Context, ref string) error {
	if _, err := a.run(ctx, "reset", "--hard", ref); err != nil {
		return fmt.Errorf("vcsadapter: reset --hard %s: %w", ref, err)
	}
	return nil
}

// CurrentHead returns the commit ID HEAD points at.
func (a *Adapter) CurrentHead(ctx context.Context) (string, error) {
	out, err := a.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("vcsadapter: rev-parse HEAD: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// IsClean reports whether the working tree has no staged or unstaged
// changes (spec §4.1 "working tree must be clean before a pick starts").
func (a *Adapter) IsClean(ctx context.Context) (bool, error) {
	out, err := a.run(ctx, "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("vcsadapter: status: %w", err)
	}
	return strings.TrimSpace(out) == "", nil
}

// Show returns the raw unified diff of a single commit against its
// first parent.
func (a *Adapter) Show(ctx context.Context, commitID string) ([]byte, error) {
	out, err := a.run(ctx, "show", "--format=", commitID)
	if err != nil {
		return nil, fmt.Errorf("vcsadapter: show %s: %w", commitID, err)
	}
	return []byte(out), nil
}

// CommitMetadata returns the message, author, and parent IDs of a
// commit, without its diff.
func (a *Adapter) CommitMetadata(ctx context.Context, commitID string) (types.Commit, error) {
	out, err := a.run(ctx, "show", "-s", "--format=%H%x00%an <%ae>%x00%P%x00%B%x00", commitID)
	if err != nil {
		return types.Commit{}, fmt.Errorf("vcsadapter: reading metadata for %s: %w", commitID, err)
	}
	fields := strings.SplitN(strings.TrimRight(out, "\x00\n"), "\x00", 4)
	if len(fields) < 4 {
		return types.Commit{}, fmt.Errorf("vcsadapter: unexpected metadata format for %s", commitID)
	}
	var parents []string
	if fields[2] != "" {
		parents = strings.Fields(fields[2])
	}
	return types.Commit{
		ID:      fields[0],
		Author:  fields[1],
		Parents: parents,
		Message: strings.TrimRight(fields[3], "\n"),
	}, nil
}

// CommitterIdentity returns the "Name <email>" identity git would use
// for the current commit, for building a Signed-off-by trailer (spec
// §6 "A sign-off trailer when signoff is set").
func (a *Adapter) CommitterIdentity(ctx context.Context) (string, error) {
	out, err := a.run(ctx, "var", "GIT_COMMITTER_IDENT")
	if err != nil {
		return "", fmt.Errorf("vcsadapter: reading committer identity: %w", err)
	}
	out = strings.TrimSpace(out)
	if idx := strings.LastIndex(out, ">"); idx != -1 {
		return out[:idx+1], nil
	}
	return out, nil
}

// AmendMessage rewrites the message of the current HEAD commit, used to
// attach the "Applied with:" and dependency-pick annotations (spec §6).
func (a *Adapter) AmendMessage(ctx context.Context, message string) error {
	if _, err := a.run(ctx, "commit", "--amend", "-m", message); err != nil {
		return fmt.Errorf("vcsadapter: amending commit message: %w", err)
	}
	return nil
}

// StageAll stages every change in the working tree.
func (a *Adapter) StageAll(ctx context.Context) error {
	if _, err := a.run(ctx, "add", "-A"); err != nil {
		return fmt.Errorf("vcsadapter: staging changes: %w", err)
	}
	return nil
}

// CommitStaged commits the staged tree with message, optionally adding
// a Signed-off-by trailer.
func (a *Adapter) CommitStaged(ctx context.Context, message string, signoff bool) error {
	args := []string{"commit", "-m", message}
	if signoff {
		args = append(args, "--signoff")
	}
	output, err := a.run(ctx, args...)
	if err != nil {
		if strings.Contains(output, "nothing to commit") {
			return ErrNoopCherryPick
		}
		return fmt.Errorf("vcsadapter: commit: %w: %s", err, output)
	}
	return nil
}

// LogBetween lists commit IDs reachable from head but not base, oldest
// first. The Pipeline's dependency search does not call it; it uses
// FindAncestorsByMessage.
func (a *Adapter) LogBetween(ctx context.Context, base, head string) ([]string, error) {
	out, err := a.run(ctx, "log", "--reverse", "--format=%H", base+".."+head)
	if err != nil {
		return nil, fmt.Errorf("vcsadapter: log %s..%s: %w", base, head, err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// FindAncestorsByMessage returns commit IDs in the ancestry of
// commitID whose message contains query, used to locate dependency-pick
// candidates for a symbol the Repair Engine could not resolve locally
// (spec §4.1 transition 4).
func (a *Adapter) FindAncestorsByMessage(ctx context.Context, commitID, query string) ([]string, error) {
	out, err := a.run(ctx, "log", "--format=%H", "--fixed-strings", "--grep="+query, commitID)
	if err != nil {
		return nil, fmt.Errorf("vcsadapter: searching ancestry of %s for %q: %w", commitID, query, err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

func (a *Adapter) openRepo() (*git.Repository, error) {
	if a.repo != nil {
		return a.repo, nil
	}
	repo, err := git.PlainOpen(a.repoRoot)
	if err != nil {
		return nil, fmt.Errorf("vcsadapter: opening repository at %s: %w", a.repoRoot, err)
	}
	a.repo = repo
	return repo, nil
}

// BlobAt reads the content of path as it exists at revision, using
// go-git for a read-only, subprocess-free lookup.
func (a *Adapter) BlobAt(revision, path string) (string, error) {
	repo, err := a.openRepo()
	if err != nil {
		return "", err
	}
	hash, err := repo.ResolveRevision(plumbing.Revision(revision))
	if err != nil {
		return "", fmt.Errorf("vcsadapter: resolving revision %s: %w", revision, err)
	}
	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return "", fmt.Errorf("vcsadapter: loading commit %s: %w", hash, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return "", fmt.Errorf("vcsadapter: loading tree for %s: %w", hash, err)
	}
	file, err := tree.File(path)
	if err != nil {
		if err == object.ErrFileNotFound {
			return "", fmt.Errorf("vcsadapter: %s not found at %s: %w", path, revision, err)
		}
		return "", fmt.Errorf("vcsadapter: looking up %s at %s: %w", path, revision, err)
	}
	return file.Contents()
}

func isNoopCherryPick(output string) bool {
	return strings.Contains(output, "previous cherry-pick is now empty") ||
		strings.Contains(output, "nothing to commit") ||
		strings.Contains(output, "cherry-pick is now empty")
}

// SourceLookup adapts an Adapter plus a commit's revisions into the
// repair.SourceLookup interface, without repair importing vcsadapter.
type SourceLookup struct {
	adapter        *Adapter
	parentRevision string
	commitRevision string
}

// NewSourceLookup builds the repair.SourceLookup implementation the
// Pipeline hands to the Repair Engine for one commit.
func NewSourceLookup(adapter *Adapter, parentRevision, commitRevision string) *SourceLookup {
	return &SourceLookup{adapter: adapter, parentRevision: parentRevision, commitRevision: commitRevision}
}

func (s *SourceLookup) ParentContent(path string) (string, error) {
	return s.adapter.BlobAt(s.parentRevision, path)
}

func (s *SourceLookup) CommitContent(path string) (string, error) {
	return s.adapter.BlobAt(s.commitRevision, path)
}
