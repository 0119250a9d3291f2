// Package pipeline implements the Pipeline: the state machine that
// drives one commit through native cherry-pick, fuzzy patch
// application, and LLM-assisted repair, in that order, stopping at the
// first stage that fully resolves the commit (spec §1, §4.1). The
// fallback-ladder shape — try the cheap, exact tool first, escalate to
// a specialized engine only on failure, and always leave an audit trail
// of which stage actually won — mirrors the teacher's fixpatches
// orchestration loop, generalized from "patch then one LLM call" into
// the three-stage, multi-reject design this system calls for.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/awslabs/Git-llm-pick/pkg/constants"
	"github.com/awslabs/Git-llm-pick/pkg/diffmodel"
	"github.com/awslabs/Git-llm-pick/pkg/llmclient"
	"github.com/awslabs/Git-llm-pick/pkg/pathrewrite"
	"github.com/awslabs/Git-llm-pick/pkg/patchtool"
	"github.com/awslabs/Git-llm-pick/pkg/repair"
	"github.com/awslabs/Git-llm-pick/pkg/types"
	"github.com/awslabs/Git-llm-pick/pkg/util/logger"
	"github.com/awslabs/Git-llm-pick/pkg/validate"
	"github.com/awslabs/Git-llm-pick/pkg/vcsadapter"
)

// state enumerates the Pipeline's states (spec §4.1 "START -> ... ->
// DONE | ROLLBACK").
type state string

const (
	stateStart      state = "START"
	stateNativeTry  state = "NATIVE_TRY"
	statePatchTry   state = "PATCH_TRY"
	stateLLMTry     state = "LLM_TRY"
	stateCommit     state = "COMMIT"
	stateValidate   state = "VALIDATE"
	stateDone       state = "DONE"
	stateRollback   state = "ROLLBACK"
)

// Pipeline is the Pipeline of spec §4.1. One Pipeline owns one working
// tree for the lifetime of a Pick call, guarded by an advisory lock
// file so two picks never run concurrently against the same tree (spec
// §5).
type Pipeline struct {
	vcs      *vcsadapter.Adapter
	rewriter *pathrewrite.Rewriter
	validator *validate.Runner
	llm      *llmclient.Client // nil when LLM repair is disabled
	opts     types.Options
}

// New builds a Pipeline for one working tree and its configured
// options. llm may be nil when opts.LLMEnabled is false.
func New(vcs *vcsadapter.Adapter, llm *llmclient.Client, opts types.Options) *Pipeline {
	return &Pipeline{
		vcs:       vcs,
		rewriter:  pathrewrite.New(opts.PathRewrites),
		validator: validate.New(opts.WorkingTreePath, opts.ValidationTimeout),
		llm:       llm,
		opts:      opts,
	}
}

// Pick drives commitID through the fallback ladder, returning the
// resulting PickOutcome. Any PickError returned is one of the tagged
// kinds in pkg/types (spec §7); the working tree is always left clean
// on error (spec §8 invariant 2).
func (p *Pipeline) Pick(ctx context.Context, commitID string) (types.PickOutcome, error) {
	start := time.Now()
	lockPath := filepath.Join(p.opts.WorkingTreePath, constants.WorkingTreeLockFileName)
	release, err := acquireWorkingTreeLock(lockPath)
	if err != nil {
		return types.PickOutcome{}, err
	}
	defer release()

	clean, err := p.vcs.IsClean(ctx)
	if err != nil {
		return types.PickOutcome{}, fmt.Errorf("pipeline: checking working tree: %w", err)
	}
	if !clean {
		return types.PickOutcome{}, types.NewWorkingTreeDirtyError(p.opts.WorkingTreePath)
	}

	outcome, unresolved, err := p.pick(ctx, commitID, "")
	if err != nil {
		if rollbackErr := p.rollback(ctx); rollbackErr != nil {
			logger.Info("rollback failed", "commit", commitID, "error", rollbackErr)
			return types.PickOutcome{}, types.NewRollbackFailedError(err, rollbackErr)
		}
		return types.PickOutcome{}, err
	}

	if len(unresolved) > 0 && p.opts.DependencyDepth > 0 {
		picked, depErr := p.resolveDependencyQueue(ctx, commitID, unresolved)
		outcome.DependencyPicks = picked
		if depErr != nil {
			if rollbackErr := p.rollback(ctx); rollbackErr != nil {
				logger.Info("rollback failed", "commit", commitID, "error", rollbackErr)
				return types.PickOutcome{}, types.NewRollbackFailedError(depErr, rollbackErr)
			}
			return types.PickOutcome{}, depErr
		}
	}

	outcome.Duration = time.Since(start)
	return outcome, nil
}

// dependencyWork is one queued ancestor-commit candidate, carrying the
// hop count from the commit that first needed it.
type dependencyWork struct {
	commitID string
	depth    int
}

// resolveDependencyQueue walks an explicit, bounded worklist of
// ancestor commits that might define symbols the Repair Engine could
// not resolve locally against target's own working tree, picking each
// one as a preparatory dependency commit annotated against target.
// The worklist is an ordinary slice with a visited set keyed on commit
// ID: depth never grows past opts.DependencyDepth, and a commit is
// never queued or picked twice (spec §4.1 transition 4, §9 "explicit
// bounded queue with cycle detection on commit IDs; never as open
// recursion").
func (p *Pipeline) resolveDependencyQueue(ctx context.Context, target string, symbols []string) ([]string, error) {
	visited := map[string]bool{target: true}
	queued := map[string]bool{}
	var queue []dependencyWork

	enqueue := func(symbols []string, depth int) error {
		for _, sym := range symbols {
			candidates, err := p.vcs.FindAncestorsByMessage(ctx, target, sym)
			if err != nil {
				return fmt.Errorf("pipeline: searching ancestry for dependency %q: %w", sym, err)
			}
			for _, id := range candidates {
				if visited[id] || queued[id] {
					continue
				}
				queued[id] = true
				queue = append(queue, dependencyWork{commitID: id, depth: depth})
			}
		}
		return nil
	}

	if err := enqueue(symbols, 1); err != nil {
		return nil, err
	}

	var picked []string
	for len(queue) > 0 {
		w := queue[0]
		queue = queue[1:]
		if visited[w.commitID] {
			continue
		}
		if w.depth > p.opts.DependencyDepth {
			return picked, types.NewDependencyLimitError(p.opts.DependencyDepth)
		}
		visited[w.commitID] = true

		logger.Info("picking dependency commit", "commit", w.commitID, "depth", w.depth, "for", target)
		_, depUnresolved, err := p.pick(ctx, w.commitID, target)
		if err != nil {
			return picked, fmt.Errorf("pipeline: dependency pick %s failed: %w", w.commitID, err)
		}
		picked = append(picked, w.commitID)

		if err := enqueue(depUnresolved, w.depth+1); err != nil {
			return picked, err
		}
	}
	return picked, nil
}

// pick drives one commit through the fallback ladder and returns its
// outcome plus any symbols the LLM stage referenced but could not find
// in the destination file being repaired. dependencyFor is empty for the
// commit the caller asked to pick, and set to that commit's ID when
// pick is instead resolving one of its dependency picks.
func (p *Pipeline) pick(ctx context.Context, commitID string, dependencyFor string) (types.PickOutcome, []string, error) {
	st := stateStart
	outcome := types.PickOutcome{CommitID: commitID}

	commit, err := p.vcs.CommitMetadata(ctx, commitID)
	if err != nil {
		return outcome, nil, fmt.Errorf("pipeline: reading commit metadata: %w", err)
	}
	rawDiff, err := p.vcs.Show(ctx, commitID)
	if err != nil {
		return outcome, nil, fmt.Errorf("pipeline: reading commit diff: %w", err)
	}
	rawDiff = p.rewriter.RewriteDiffText(rawDiff)

	files, err := diffmodel.Parse(rawDiff)
	if err != nil {
		if err == diffmodel.ErrEmptyDiff {
			return outcome, nil, types.NewEmptyDiffError(commitID)
		}
		return outcome, nil, types.NewPatchUnresolvableError("parsing commit diff", err)
	}
	files = p.rewriter.RewriteFileChanges(files)
	if len(files) == 0 {
		return outcome, nil, types.NewEmptyDiffError(commitID)
	}
	commit.FileChanges = files

	st = stateNativeTry
	mainline := 0
	if len(commit.Parents) > 1 {
		mainline = 1
	}
	if err := ctx.Err(); err != nil {
		return outcome, nil, types.NewCancelledError(err)
	}
	if nativeErr := p.vcs.CherryPick(ctx, commitID, mainline); nativeErr == nil {
		outcome.SucceededVia = types.AttemptNative
		finished, ferr := p.finish(ctx, commit, outcome, dependencyFor)
		return finished, nil, ferr
	} else if nativeErr == vcsadapter.ErrNoopCherryPick {
		outcome.SucceededVia = types.AttemptNative
		finished, ferr := p.finish(ctx, commit, outcome, dependencyFor)
		return finished, nil, ferr
	}
	logger.Info("native cherry-pick failed, falling back to patch tool", "commit", commitID, "state", st)
	if err := p.vcs.AbortCherryPick(ctx); err != nil {
		logger.Info("abort after failed native cherry-pick also failed", "error", err)
	}

	st = statePatchTry
	for _, f := range files {
		if f.IsBinary {
			return outcome, nil, types.NewBinaryConflictError(f.Path(), nil)
		}
	}
	ladder := p.opts.FuzzLadder
	if len(ladder) == 0 {
		ladder = constants.DefaultFuzzLadder
	}
	result, err := patchtool.Apply(p.opts.WorkingTreePath, files, ladder)
	if err != nil {
		var unresolvable *types.PatchUnresolvableError
		if errors.As(err, &unresolvable) {
			// Already a tagged, terminal patch-stage failure (e.g. a
			// deletion-only hunk whose removed lines don't exist in the
			// destination): surface it as-is and skip the LLM stage.
			return outcome, nil, err
		}
		return outcome, nil, types.NewPatchUnresolvableError("patch tool adapter failed", err)
	}
	outcome.FuzzLevel = result.FuzzLevel
	if len(result.RejectedHunks) == 0 {
		outcome.SucceededVia = types.AttemptPatchTool
		finished, ferr := p.finish(ctx, commit, outcome, dependencyFor)
		return finished, nil, ferr
	}

	st = stateLLMTry
	if !p.opts.LLMEnabled || p.llm == nil {
		return outcome, nil, types.NewPatchRejectedError(result.RejectedHunks)
	}
	logger.Info("patch tool left rejects, escalating to LLM repair", "commit", commitID, "rejects", len(result.RejectedHunks))

	sourceLookup := vcsadapter.NewSourceLookup(p.vcs, firstParent(commit), commitID)
	engine := repair.New(p.llm, sourceLookup, p.opts.WorkingTreePath)

	for _, reject := range result.RejectedHunks {
		if err := ctx.Err(); err != nil {
			return outcome, nil, types.NewCancelledError(err)
		}
		if err := engine.Repair(ctx, reject, commit.Message); err != nil {
			return outcome, nil, err
		}
		outcome.RejectsResolved++
		if p.opts.RunValidationAfter == types.ValidateEachFile {
			if out, verr := p.validator.Run(ctx, p.opts.ValidationCommand, []string{reject.FilePath}); verr != nil {
				outcome.ValidationOutput = out
				return outcome, nil, verr
			}
		}
	}
	outcome.SucceededVia = types.AttemptLLMRepair
	finished, ferr := p.finish(ctx, commit, outcome, dependencyFor)
	return finished, engine.Unresolved(), ferr
}

// finish stages and commits any uncommitted patch-tool/LLM changes,
// amends the commit message with the required annotations, runs
// end-of-pick validation if configured, and transitions to DONE.
// dependencyFor carries the commit ID this pick was a preparatory
// dependency pick for, or "" when it was picked directly.
func (p *Pipeline) finish(ctx context.Context, commit types.Commit, outcome types.PickOutcome, dependencyFor string) (types.PickOutcome, error) {
	if outcome.SucceededVia != types.AttemptNative {
		if err := p.vcs.StageAll(ctx); err != nil {
			return outcome, fmt.Errorf("pipeline: staging applied changes: %w", err)
		}
		// The sign-off trailer is added uniformly below, once, on the
		// amended message that every path (native or not) goes through
		// next -- passing --signoff here too would just be overwritten.
		if err := p.vcs.CommitStaged(ctx, commit.Message, false); err != nil && err != vcsadapter.ErrNoopCherryPick {
			return outcome, fmt.Errorf("pipeline: committing applied changes: %w", err)
		}
	}

	var signoffLine string
	if p.opts.Signoff {
		identity, err := p.vcs.CommitterIdentity(ctx)
		if err != nil {
			return outcome, fmt.Errorf("pipeline: resolving sign-off identity: %w", err)
		}
		signoffLine = fmt.Sprintf("%s %s", constants.AnnotationSignedOffBy, identity)
	}

	annotated := annotateMessage(commit.Message, outcome, p.opts, signoffLine, dependencyFor)
	if annotated != commit.Message {
		if err := p.vcs.AmendMessage(ctx, annotated); err != nil {
			return outcome, fmt.Errorf("pipeline: amending commit message: %w", err)
		}
	}
	outcome.Annotations = annotationLines(outcome, p.opts, signoffLine, dependencyFor)

	if p.opts.RunValidationAfter == types.ValidateAll {
		changed := changedPaths(commit.FileChanges)
		out, err := p.validator.Run(ctx, p.opts.ValidationCommand, changed)
		outcome.ValidationOutput = out
		if err != nil {
			return outcome, err
		}
		outcome.ValidationPassed = true
	} else if p.opts.RunValidationAfter == types.ValidateNone {
		outcome.ValidationPassed = true
	}
	return outcome, nil
}

func (p *Pipeline) rollback(ctx context.Context) error {
	if err := p.vcs.AbortCherryPick(ctx); err != nil {
		logger.Info("rollback: cherry-pick --abort failed (likely none in progress)", "error", err)
	}
	head, err := p.vcs.CurrentHead(ctx)
	if err != nil {
		return fmt.Errorf("pipeline: rollback: reading HEAD: %w", err)
	}
	return p.vcs.ResetHard(ctx, head)
}

// appliedWithText renders the "Applied with: ..." trailer body for the
// stage that resolved the pick, matching spec.md §6 exactly: the native
// stage is named alone, the patch-tool stage names the fuzz level, the
// LLM stage names the reject count.
func appliedWithText(outcome types.PickOutcome) string {
	switch outcome.SucceededVia {
	case types.AttemptNative:
		return "native cherry-pick"
	case types.AttemptPatchTool:
		return fmt.Sprintf("patch tool (fuzz=%d)", outcome.FuzzLevel)
	case types.AttemptLLMRepair:
		return fmt.Sprintf("LLM repair (%d hunks)", outcome.RejectsResolved)
	default:
		return string(outcome.SucceededVia)
	}
}

// annotateMessage appends the commit-message trailers spec §6 defines,
// in order: "Applied with: <stage>", then "Cherry-picked as dependency
// for <id>" when this pick was a preparatory dependency pick for id,
// then the "-x" origin trailer, then the sign-off trailer (spec §6
// "annotation ordering"). signoffLine is empty when signoff wasn't
// requested, and dependencyFor is empty for a directly-requested pick.
func annotateMessage(message string, outcome types.PickOutcome, opts types.Options, signoffLine, dependencyFor string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(message, "\n"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%s %s\n", constants.AnnotationAppliedWith, appliedWithText(outcome))
	if dependencyFor != "" {
		fmt.Fprintf(&b, "%s %s\n", constants.AnnotationDependencyPrefix, dependencyFor)
	}
	if opts.RecordOrigin {
		fmt.Fprintf(&b, "%s %s)\n", constants.AnnotationOriginPrefix, outcome.CommitID)
	}
	if signoffLine != "" {
		fmt.Fprintf(&b, "%s\n", signoffLine)
	}
	return strings.TrimRight(b.String(), "\n")
}

func annotationLines(outcome types.PickOutcome, opts types.Options, signoffLine, dependencyFor string) []string {
	lines := []string{fmt.Sprintf("%s %s", constants.AnnotationAppliedWith, appliedWithText(outcome))}
	if dependencyFor != "" {
		lines = append(lines, fmt.Sprintf("%s %s", constants.AnnotationDependencyPrefix, dependencyFor))
	}
	if opts.RecordOrigin {
		lines = append(lines, fmt.Sprintf("%s %s)", constants.AnnotationOriginPrefix, outcome.CommitID))
	}
	if signoffLine != "" {
		lines = append(lines, signoffLine)
	}
	return lines
}

func changedPaths(files []types.FileChange) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Path())
	}
	return out
}

func firstParent(c types.Commit) string {
	if len(c.Parents) == 0 {
		return c.ID + "^"
	}
	return c.Parents[0]
}

// acquireWorkingTreeLock creates lockPath exclusively, refusing to
// proceed if another pick already owns this working tree (spec §5
// "one Pipeline owns one working tree").
func acquireWorkingTreeLock(lockPath string) (release func(), err error) {
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, types.NewWorkingTreeDirtyError(filepath.Dir(lockPath))
		}
		return nil, fmt.Errorf("pipeline: creating working tree lock: %w", err)
	}
	f.Close()
	return func() { os.Remove(lockPath) }, nil
}
