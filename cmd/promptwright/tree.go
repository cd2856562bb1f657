package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/promptwright/internal/config"
	"github.com/fyrsmithlabs/promptwright/internal/topictree"
)

var (
	treeFlags runFlags
	treePrint bool
)

var treeCmd = &cobra.Command{
	Use:   "tree <config>",
	Short: "Build and save a topic tree without generating samples",
	Long: `Build the topic tree described by the config and save it as JSONL.
The saved file can be passed to "start --tree-file" later.

Examples:
  promptwright tree config.yaml
  promptwright tree config.yaml --tree-degree 4 --tree-depth 3 --print`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, ctx, err := newApp(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		defer a.close()

		tree, err := a.loadOrBuildTree(ctx, treeFlags.overrides(), "", treeFlags.treeSaveAs)
		if err != nil {
			return err
		}
		if treePrint {
			return tree.Render(cmd.OutOrStdout())
		}
		return nil
	},
}

func init() {
	treeCmd.Flags().StringVar(&treeFlags.treeSaveAs, "topic-tree-save-as", "", "override topic_tree.save_as")
	treeCmd.Flags().BoolVar(&treePrint, "print", false, "print the tree after saving it")
	addModelFlags(treeCmd, &treeFlags)
	treeCmd.Flags().IntVar(&treeFlags.treeDegree, "tree-degree", 0, "override topic_tree.args.tree_degree")
	treeCmd.Flags().IntVar(&treeFlags.treeDepth, "tree-depth", 0, "override topic_tree.args.tree_depth")
}

// loadOrBuildTree loads treeFile when set, otherwise builds a tree and
// saves it to saveAs or topic_tree.save_as. A tree aborted mid-build is
// not saved to the final location.
func (a *app) loadOrBuildTree(ctx context.Context, o config.Overrides, treeFile, saveAs string) (*topictree.Tree, error) {
	if treeFile != "" {
		tree, err := topictree.Load(treeFile)
		if err != nil {
			return nil, fmt.Errorf("loading topic tree: %w", err)
		}
		a.logger.Info(ctx, "topic tree loaded", zap.String("path", treeFile), zap.Int("paths", tree.Len()))
		return tree, nil
	}

	s := a.cfg.Tree(o)
	b := topictree.NewBuilder(a.client,
		topictree.WithLogger(a.logger.Named("topictree")),
		topictree.WithObserver(nodeLogger{ctx: ctx, logger: a.logger}),
		topictree.WithTelemetry(a.tel.Tracer("topictree"), a.tel.Metrics()),
	)
	tree, err := b.Build(ctx, topictree.Args{
		RootPrompt:   s.RootPrompt,
		SystemPrompt: s.SystemPrompt,
		Degree:       s.Degree,
		Depth:        s.Depth,
		Model:        s.Model,
		Temperature:  s.Temperature,
	})
	if err != nil {
		if topictree.IsAborted(err) {
			return nil, fmt.Errorf("topic tree build aborted after %d paths: %w", tree.Len(), err)
		}
		return nil, err
	}

	out := pickString(saveAs, a.cfg.TopicTree.SaveAs)
	if err := tree.Save(out); err != nil {
		return nil, fmt.Errorf("saving topic tree: %w", err)
	}
	a.logger.Info(ctx, "topic tree saved", zap.String("path", out), zap.Int("paths", tree.Len()))
	return tree, nil
}
