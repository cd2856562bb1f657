package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/promptwright/internal/config"
	"github.com/fyrsmithlabs/promptwright/internal/engine"
	"github.com/fyrsmithlabs/promptwright/internal/hfhub"
)

// runFlags holds the overrides shared by start, tree and validate.
type runFlags struct {
	treeSaveAs    string
	datasetSaveAs string
	treeFile      string
	provider      string
	model         string
	temperature   float64
	treeDegree    int
	treeDepth     int
	numSteps      int
	batchSize     int
	hfRepo        string
	hfToken       string
	hfTags        []string
}

func (f *runFlags) overrides() config.Overrides {
	return config.Overrides{
		Provider:    f.provider,
		Model:       f.model,
		Temperature: f.temperature,
		TreeDegree:  f.treeDegree,
		TreeDepth:   f.treeDepth,
		NumSteps:    f.numSteps,
		BatchSize:   f.batchSize,
	}
}

var startFlags runFlags

var startCmd = &cobra.Command{
	Use:   "start <config>",
	Short: "Build a topic tree and generate a dataset",
	Long: `Build a topic tree from the config's root prompt, generate
num_steps * batch_size samples over its paths and save both as JSONL.

When a Hugging Face repository is configured the dataset is pushed
after it is saved. The token is taken from --hf-token, then HF_TOKEN,
then the config file.

Examples:
  promptwright start config.yaml
  promptwright start config.yaml --provider openai --model gpt-4o-mini
  promptwright start config.yaml --tree-file topic_tree.jsonl --num-steps 20
  promptwright start config.yaml --hf-repo me/my-dataset --hf-tags qa --hf-tags python`,
	Args: cobra.ExactArgs(1),
	RunE: runStart,
}

func init() {
	f := startCmd.Flags()
	f.StringVar(&startFlags.treeSaveAs, "topic-tree-save-as", "", "override topic_tree.save_as")
	f.StringVar(&startFlags.datasetSaveAs, "dataset-save-as", "", "override dataset.save_as")
	f.StringVar(&startFlags.treeFile, "tree-file", "", "load an existing topic tree instead of building one")
	addModelFlags(startCmd, &startFlags)
	addShapeFlags(startCmd, &startFlags)
	f.StringVar(&startFlags.hfRepo, "hf-repo", "", "Hugging Face repository (owner/name)")
	f.StringVar(&startFlags.hfToken, "hf-token", "", "Hugging Face token")
	f.StringArrayVar(&startFlags.hfTags, "hf-tags", nil, "extra dataset tags (repeatable)")
}

func addModelFlags(cmd *cobra.Command, rf *runFlags) {
	f := cmd.Flags()
	f.StringVar(&rf.provider, "provider", "", "override the provider")
	f.StringVar(&rf.model, "model", "", "override the model name")
	f.Float64Var(&rf.temperature, "temperature", 0, "override the sampling temperature")
}

func addShapeFlags(cmd *cobra.Command, rf *runFlags) {
	f := cmd.Flags()
	f.IntVar(&rf.treeDegree, "tree-degree", 0, "override topic_tree.args.tree_degree")
	f.IntVar(&rf.treeDepth, "tree-depth", 0, "override topic_tree.args.tree_depth")
	f.IntVar(&rf.numSteps, "num-steps", 0, "override dataset.creation.num_steps")
	f.IntVar(&rf.batchSize, "batch-size", 0, "override dataset.creation.batch_size")
}

func runStart(cmd *cobra.Command, args []string) error {
	a, ctx, err := newApp(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer a.close()

	o := startFlags.overrides()
	tree, err := a.loadOrBuildTree(ctx, o, startFlags.treeFile, startFlags.treeSaveAs)
	if err != nil {
		return err
	}

	creation := a.cfg.Creation(o)
	if v := tree.Check(creation.NumSteps, creation.BatchSize); !v.Valid {
		renderValidation(cmd.ErrOrStderr(), v)
	}

	obs := newProgressObserver(ctx, cmd.ErrOrStderr(), a.logger)
	eng, err := engine.New(a.client, engine.ConfigFromSettings(a.cfg.Engine(o)),
		engine.WithLogger(a.logger.Named("engine")),
		engine.WithObserver(obs),
		engine.WithTelemetry(a.tel.Tracer("engine"), a.tel.Metrics()),
	)
	if err != nil {
		return err
	}

	ds, err := eng.CreateData(ctx, engine.CreateOptions{
		NumSteps:  creation.NumSteps,
		BatchSize: creation.BatchSize,
		Tree:      tree,
		Model:     creation.Model,
	})
	obs.finish()
	if ds != nil {
		renderSummary(cmd.OutOrStdout(), eng.Summary())
	}
	if err != nil {
		return err
	}

	out := pickString(startFlags.datasetSaveAs, a.cfg.Dataset.SaveAs)
	if err := ds.Save(out); err != nil {
		return fmt.Errorf("saving dataset: %w", err)
	}
	cmd.Printf("Dataset saved to %s (%d samples)\n", out, ds.Len())

	if ctx.Err() != nil {
		a.logger.Warn(ctx, "run interrupted, skipping upload")
		return nil
	}
	repo := pickString(startFlags.hfRepo, a.cfg.HuggingFace.Repository)
	if repo == "" {
		return nil
	}
	return a.upload(cmd, repo, out, startFlags.hfToken, startFlags.hfTags)
}

// upload pushes path to repo and prints the result message.
func (a *app) upload(cmd *cobra.Command, repo, path, flagToken string, flagTags []string) error {
	token := resolveToken(flagToken, os.Getenv("HF_TOKEN"), a.cfg.HuggingFace.Token.Value())
	if token == "" {
		return errors.New("Hugging Face token not provided. Set via --hf-token, HF_TOKEN env var, or config file.")
	}
	if repo == "" {
		return errors.New("Hugging Face repository not provided. Set via --hf-repo or config file.")
	}

	a.logger.Debug(cmd.Context(), "hub upload", zap.String("repo", repo), zap.String("hf_key", config.Secret(token).Mask()))
	opts := []hfhub.Option{hfhub.WithLogger(a.logger.Named("hfhub"))}
	if ep := a.cfg.HuggingFace.Endpoint; ep != "" {
		opts = append(opts, hfhub.WithBaseURL(ep))
	}
	up := hfhub.NewUploader(token, opts...)
	res := up.PushToHub(cmd.Context(), repo, path, mergeTags(flagTags, a.cfg.HuggingFace.Tags))
	if !res.OK() {
		a.logger.Error(cmd.Context(), "upload failed", zap.String("repo", repo), zap.String("message", res.Message))
		return errors.New(res.Message)
	}
	cmd.Println(successStyle.Render(res.Message))
	return nil
}

// resolveToken returns the first non-empty token in precedence order.
func resolveToken(candidates ...string) string {
	for _, t := range candidates {
		if t != "" {
			return t
		}
	}
	return ""
}

// mergeTags puts command-line tags before configured ones.
func mergeTags(cli, cfg []string) []string {
	tags := make([]string, 0, len(cli)+len(cfg))
	tags = append(tags, cli...)
	return append(tags, cfg...)
}

func pickString(override, fallback string) string {
	if override != "" {
		return override
	}
	return fallback
}
