package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/restq/restq/pkg/config"
)

// version is stamped at release time with -ldflags "-X main.version=...".
var version = "dev"

var (
	cfgFile  string
	logLevel string
	cfg      *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "restq",
	Short: "restq serves PostgreSQL tables as a REST API",
	Long:  `restq generates CRUD endpoints with filtering, sorting, pagination and schema introspection from declarative entity configuration`,
	Run: func(cmd *cobra.Command, args []string) {
		versionFlag, _ := cmd.Flags().GetBool("version")
		if versionFlag {
			fmt.Println(version)
			return
		}

		// If no subcommand is provided, print help
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/restq.yaml)")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "L", "info", "log requests at this level (debug, info, warn, error, none)")
	rootCmd.PersistentFlags().BoolP("version", "v", false, "print the version number")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}
}
