package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var verifyLimit int

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the place store and list a sample of its contents",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		count, err := st.CountPlaces(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d places stored\n", count)

		places, err := st.ListPlaces(cmd.Context(), verifyLimit, 0)
		if err != nil {
			return err
		}
		for _, p := range places {
			fmt.Fprintf(cmd.OutOrStdout(), "%-36s %-30s %9.4f %9.4f %s\n",
				p.ID, p.Name, p.Latitude, p.Longitude, p.SourceID)
		}
		return nil
	},
}

func init() {
	verifyCmd.Flags().IntVar(&verifyLimit, "limit", 20, "number of places to list")
	rootCmd.AddCommand(verifyCmd)
}
