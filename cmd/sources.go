package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured layer sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := initRegistry()
		if err != nil {
			return err
		}

		for _, ls := range reg.Layers() {
			sc, err := reg.Config(ls.SourceID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-15s %-8s color=%s default_visible=%t\n",
				sc.ID, sc.Kind, ls.Status(), sc.Color, sc.DefaultVisible)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
