package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var schemeCmd = &cobra.Command{
	Use:   "scheme",
	Short: "Manage weighting schemes",
}

var schemeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List weighting schemes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var schemes []map[string]interface{}
		if err := doRequest("GET", "/api/v1/schemes", nil, &schemes); err != nil {
			return err
		}
		return printJSON(schemes)
	},
}

var (
	schemeDescription string
	schemeDefault     bool
)

var schemeCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a weighting scheme with equal weights",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body := map[string]interface{}{
			"name":        args[0],
			"description": schemeDescription,
			"is_default":  schemeDefault,
		}
		var scheme map[string]interface{}
		if err := doRequest("POST", "/api/v1/schemes", body, &scheme); err != nil {
			return err
		}
		return printJSON(scheme)
	},
}

var schemeSetDefaultCmd = &cobra.Command{
	Use:   "set-default <scheme-id>",
	Short: "Mark a scheme as the default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return doRequest("POST", "/api/v1/schemes/"+args[0]+"/default", nil, nil)
	},
}

type weightsFile struct {
	Weights map[string]struct {
		Weight     float64            `yaml:"weight" json:"weight"`
		Dimensions map[string]float64 `yaml:"dimensions" json:"dimensions,omitempty"`
	} `yaml:"weights" json:"weights"`
}

var weightsPath string

var schemeApplyWeightsCmd = &cobra.Command{
	Use:   "apply-weights <scheme-id>",
	Short: "Replace a scheme's weights from a YAML file",
	Long: `Replaces all category and dimension weights of a scheme from a YAML
file. Category weights must sum to 1, as must the dimension weights
within each category that carries them.

File format:

  weights:
    <category-id>:
      weight: 0.6
      dimensions:
        <dimension-id>: 0.7
        <dimension-id>: 0.3
    <category-id>:
      weight: 0.4`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(weightsPath)
		if err != nil {
			return err
		}
		var wf weightsFile
		if err := yaml.Unmarshal(data, &wf); err != nil {
			return fmt.Errorf("parse weights file: %w", err)
		}
		if len(wf.Weights) == 0 {
			return fmt.Errorf("weights file %s has no weights", weightsPath)
		}

		var scheme map[string]interface{}
		if err := doRequest("PUT", "/api/v1/schemes/"+args[0]+"/weights", wf, &scheme); err != nil {
			return err
		}
		return printJSON(scheme)
	},
}

var mismatchSectorID string

var schemeMismatchesCmd = &cobra.Command{
	Use:   "mismatches <scheme-id>",
	Short: "Report scheme weight entries absent from a sector's template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var mismatches []map[string]interface{}
		path := "/api/v1/schemes/" + args[0] + "/mismatches?sector_id=" + mismatchSectorID
		if err := doRequest("GET", path, nil, &mismatches); err != nil {
			return err
		}
		if len(mismatches) == 0 {
			fmt.Println("no mismatches")
			return nil
		}
		return printJSON(mismatches)
	},
}

func init() {
	schemeCreateCmd.Flags().StringVar(&schemeDescription, "description", "", "scheme description")
	schemeCreateCmd.Flags().BoolVar(&schemeDefault, "default", false, "mark as default scheme")

	schemeApplyWeightsCmd.Flags().StringVarP(&weightsPath, "file", "f", "", "path to weights YAML file")
	_ = schemeApplyWeightsCmd.MarkFlagRequired("file")

	schemeMismatchesCmd.Flags().StringVar(&mismatchSectorID, "sector", "", "sector id to check against")
	_ = schemeMismatchesCmd.MarkFlagRequired("sector")

	schemeCmd.AddCommand(schemeListCmd, schemeCreateCmd, schemeSetDefaultCmd, schemeApplyWeightsCmd, schemeMismatchesCmd)
	rootCmd.AddCommand(schemeCmd)
}
