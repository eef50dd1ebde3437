package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hooksink/hooksink/pkg/config"
)

var validateConfigFile string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate an endpoint configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadFromFile(validateConfigFile)
		if err != nil {
			return fmt.Errorf("%s: %w", validateConfigFile, err)
		}

		manual := 0
		sequenced := 0
		for _, rule := range cfg.Endpoints {
			if rule.Type == "manual_calling" {
				manual++
			}
			if len(rule.Sequence) > 0 {
				sequenced++
			}
		}

		fmt.Printf("%s is valid: %d endpoints (%d with sequences, %d manual calling)\n",
			validateConfigFile, len(cfg.Endpoints), sequenced, manual)
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVarP(&validateConfigFile, "config", "f", "endpoints.yaml", "Endpoint configuration file (YAML or JSON)")
	rootCmd.AddCommand(validateCmd)
}
