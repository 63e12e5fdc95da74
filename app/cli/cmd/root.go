package cmd

import (
	"log"

	"regatta/pkg/util/config"

	"github.com/spf13/cobra"
)

// NewRootCommand returns a new instance of a regatta command
func NewRootCommand() *cobra.Command {
	var configFile string
	rootCmd := &cobra.Command{
		Use:   "regatta",
		Short: "regatta runs CI pipelines described in YAML",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if configFile == "" {
				return
			}
			config.SetConfigFile(configFile)
			if err := config.ReadInConfig(); err != nil {
				log.Fatal(err)
			}
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "runner configuration file")

	rootCmd.AddCommand(NewRunCommand())
	rootCmd.AddCommand(NewValidateCommand())
	return rootCmd
}
