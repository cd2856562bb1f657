package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/promptwright/internal/config"
	"github.com/fyrsmithlabs/promptwright/internal/topictree"
)

var (
	validateFlags runFlags
	validateJSON  bool
)

var errOverCapacity = errors.New("requested samples exceed the available tree paths")

var validateCmd = &cobra.Command{
	Use:   "validate <config>",
	Short: "Check that a config's sample budget fits its topic tree",
	Long: `Compare num_steps * batch_size against tree_degree ^ tree_depth
without calling any model. Exits non-zero when the budget does not fit,
printing suggested values.

Examples:
  promptwright validate config.yaml
  promptwright validate config.yaml --num-steps 50 --batch-size 2 --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(args[0])
		if err != nil {
			return err
		}
		o := validateFlags.overrides()
		tree, creation := cfg.Tree(o), cfg.Creation(o)
		v := topictree.Check(creation.NumSteps, creation.BatchSize, tree.Degree, tree.Depth)

		if validateJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(v); err != nil {
				return err
			}
		} else {
			renderValidation(cmd.OutOrStdout(), v)
		}
		if !v.Valid {
			return errOverCapacity
		}
		return nil
	},
}

func init() {
	addShapeFlags(validateCmd, &validateFlags)
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "print the result as JSON")
}
