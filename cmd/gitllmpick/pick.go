package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"dario.cat/mergo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/awslabs/Git-llm-pick/pkg/constants"
	"github.com/awslabs/Git-llm-pick/pkg/llmclient"
	"github.com/awslabs/Git-llm-pick/pkg/pipeline"
	"github.com/awslabs/Git-llm-pick/pkg/report"
	"github.com/awslabs/Git-llm-pick/pkg/types"
	"github.com/awslabs/Git-llm-pick/pkg/vcsadapter"
)

func defaultOptions() types.Options {
	return types.Options{
		LLMCachePath:      ".gitllmpick/cache",
		FuzzLadder:        constants.DefaultFuzzLadder,
		RunValidationAfter: types.ValidateNone,
		DependencyDepth:   0,
		VCSTimeout:        constants.DefaultVCSTimeout,
		PatchToolTimeout:  constants.DefaultPatchToolTimeout,
		LLMTimeout:        constants.DefaultLLMTimeout,
		ValidationTimeout: constants.DefaultValidationTimeout,
		WorkingTreePath:   ".",
	}
}

func newPickCmd() *cobra.Command {
	var (
		llmEnabled        bool
		llmModel          string
		llmRegion         string
		llmCachePath      string
		pathRewrites      []string
		validationCommand string
		runValidationAfter string
		signoff           bool
		recordOrigin      bool
		dependencyDepth   int
		outputFormat      string
		workingTreePath   string
	)

	cmd := &cobra.Command{
		Use:   "pick <commit>",
		Short: "Cherry-pick one commit, falling back to fuzzy patch and LLM repair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			commitID := args[0]

			opts := defaultOptions()
			flagOpts := types.Options{
				LLMEnabled:        llmEnabled,
				LLMModel:          llmModel,
				LLMRegion:         llmRegion,
				LLMCachePath:      llmCachePath,
				PathRewrites:      parsePathRewrites(pathRewrites),
				ValidationCommand: splitCommand(validationCommand),
				RunValidationAfter: types.ValidationTiming(strings.ToUpper(runValidationAfter)),
				Signoff:           signoff,
				RecordOrigin:      recordOrigin,
				DependencyDepth:   dependencyDepth,
				WorkingTreePath:   workingTreePath,
			}
			if err := mergo.Merge(&opts, flagOpts, mergo.WithOverride); err != nil {
				return fmt.Errorf("merging flag options into defaults: %w", err)
			}
			if viper.ConfigFileUsed() != "" {
				var configOpts types.Options
				if err := viper.Unmarshal(&configOpts); err == nil {
					if err := mergo.Merge(&opts, configOpts); err != nil {
						return fmt.Errorf("merging config file options: %w", err)
					}
				}
			}

			ctx := context.Background()
			vcs := vcsadapter.New(opts.WorkingTreePath)

			var llm *llmclient.Client
			if opts.LLMEnabled {
				// llmclient.New loads the ambient AWS config, so the
				// configured region reaches it through AWS_REGION.
				if opts.LLMRegion != "" {
					if err := os.Setenv("AWS_REGION", opts.LLMRegion); err != nil {
						return fmt.Errorf("setting AWS region: %w", err)
					}
				}
				client, err := llmclient.New(ctx, opts.LLMModel, opts.LLMCachePath)
				if err != nil {
					return fmt.Errorf("initializing LLM client: %w", err)
				}
				llm = client
			}

			p := pipeline.New(vcs, llm, opts)
			outcome, err := p.Pick(ctx, commitID)
			if err != nil {
				return err
			}
			return report.Write(os.Stdout, outcome, report.Format(outputFormat))
		},
	}

	cmd.Flags().BoolVar(&llmEnabled, "llm-enabled", true, "enable the LLM repair fallback stage")
	cmd.Flags().StringVar(&llmModel, "llm-model", "anthropic.claude-sonnet-4-5-20250929-v1:0", "Bedrock model ID for hunk repair")
	cmd.Flags().StringVar(&llmRegion, "llm-region", "us-east-1", "AWS region for Bedrock calls")
	cmd.Flags().StringVar(&llmCachePath, "llm-cache-path", "", "directory for the LLM response cache")
	cmd.Flags().StringArrayVar(&pathRewrites, "path-rewrite", nil, "old=new path rewrite rule, repeatable")
	cmd.Flags().StringVar(&validationCommand, "validation-command", "", "validation command, split on whitespace (quotes are not interpreted)")
	cmd.Flags().StringVar(&runValidationAfter, "run-validation-after", "NONE", "NONE|EACH_FILE|ALL")
	cmd.Flags().BoolVar(&signoff, "signoff", false, "add a Signed-off-by trailer")
	cmd.Flags().BoolVar(&recordOrigin, "record-origin", false, "record the source commit's origin trailer")
	cmd.Flags().IntVar(&dependencyDepth, "dependency-depth", 0, "maximum recursive dependency-pick depth")
	cmd.Flags().StringVar(&outputFormat, "output", "table", "table|json|yaml")
	cmd.Flags().StringVar(&workingTreePath, "working-tree", ".", "path to the destination git working tree")

	return cmd
}

func parsePathRewrites(raw []string) []types.PathRewrite {
	var out []types.PathRewrite
	for _, r := range raw {
		parts := strings.SplitN(r, "=", 2)
		if len(parts) != 2 {
			continue
		}
		out = append(out, types.PathRewrite{OldPrefix: parts[0], NewPrefix: parts[1]})
	}
	return out
}

func splitCommand(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strings.Fields(raw)
}
