// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete seeds whose citing-paper metadata is missing or empty",
	Long: `Cleanup removes every seed directory whose publish_info.json is missing,
unreadable or an empty list, including any files downloaded into it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		removed, err := corpus().Cleanup(logger)
		if err != nil {
			return err
		}
		fmt.Printf("removed %d seed(s)\n", len(removed))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}
