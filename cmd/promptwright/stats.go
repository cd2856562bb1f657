package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/promptwright/internal/dataset"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats <dataset.jsonl>",
	Short: "Print statistics of a saved dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := dataset.FromJSONL(args[0])
		if err != nil {
			return err
		}
		st := ds.Statistics()
		if statsJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		}
		renderStats(cmd.OutOrStdout(), st)
		if n := len(ds.Failed()); n > 0 {
			cmd.Println(warningStyle.Render("Skipped invalid lines:"), n)
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print statistics as JSON")
}
