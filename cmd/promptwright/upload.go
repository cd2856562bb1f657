package main

import (
	"github.com/spf13/cobra"
)

var uploadFlags struct {
	config string
	repo   string
	token  string
	tags   []string
}

var uploadCmd = &cobra.Command{
	Use:   "upload <dataset.jsonl>",
	Short: "Push a saved dataset to the Hugging Face Hub",
	Long: `Push a dataset file and a generated dataset card to a Hugging Face
dataset repository. Repository, token and tags fall back to the
huggingface block of --config when not given as flags.

Examples:
  promptwright upload dataset.jsonl --hf-repo me/my-dataset
  HF_TOKEN=hf_xxx promptwright upload dataset.jsonl --config config.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, ctx, err := newApp(cmd.Context(), uploadFlags.config)
		if err != nil {
			return err
		}
		defer a.close()
		cmd.SetContext(ctx)

		repo := pickString(uploadFlags.repo, a.cfg.HuggingFace.Repository)
		return a.upload(cmd, repo, args[0], uploadFlags.token, uploadFlags.tags)
	},
}

func init() {
	f := uploadCmd.Flags()
	f.StringVarP(&uploadFlags.config, "config", "c", "", "config file with a huggingface block")
	f.StringVar(&uploadFlags.repo, "hf-repo", "", "Hugging Face repository (owner/name)")
	f.StringVar(&uploadFlags.token, "hf-token", "", "Hugging Face token")
	f.StringArrayVar(&uploadFlags.tags, "hf-tags", nil, "extra dataset tags (repeatable)")
}
