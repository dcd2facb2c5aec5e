package main

import (
	"github.com/spf13/cobra"
)

var descriptorCmd = &cobra.Command{
	Use:   "descriptor",
	Short: "Manage maturity descriptors",
}

var descriptorRestoreCmd = &cobra.Command{
	Use:   "restore <original-id>",
	Short: "Restore a deleted descriptor by its original id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var d map[string]interface{}
		if err := doRequest("POST", "/api/v1/descriptors/"+args[0]+"/restore", nil, &d); err != nil {
			return err
		}
		return printJSON(d)
	},
}

var descriptorListCmd = &cobra.Command{
	Use:   "list <sector-id>",
	Short: "List a sector's active descriptors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var descriptors []map[string]interface{}
		if err := doRequest("GET", "/api/v1/sectors/"+args[0]+"/descriptors", nil, &descriptors); err != nil {
			return err
		}
		return printJSON(descriptors)
	},
}

func init() {
	descriptorCmd.AddCommand(descriptorRestoreCmd, descriptorListCmd)
	rootCmd.AddCommand(descriptorCmd)
}
