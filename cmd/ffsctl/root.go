// Command ffsctl is a small operator CLI around package ffs: load a
// dataset definition and key set from a local JSON file and run
// encrypt/decrypt/search operations against it. Modeled on the
// cobra+viper root/subcommand layout in go-fdo-server's cmd package:
// persistent flags bound once in init, then loaded into package vars
// in each subcommand's PreRunE hook.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	definitionPath string
	tweakHex       string
)

var rootCmd = &cobra.Command{
	Use:   "ffsctl",
	Short: "Operate a format-preserving-encryption dataset from the command line",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("dataset", "", "path to a JSON dataset definition + key set file")
	rootCmd.PersistentFlags().String("tweak", "", "hex-encoded tweak override")

	_ = viper.BindPFlag("dataset", rootCmd.PersistentFlags().Lookup("dataset"))
	_ = viper.BindPFlag("tweak", rootCmd.PersistentFlags().Lookup("tweak"))
	viper.AutomaticEnv()
}

func loadGlobalFlags() error {
	definitionPath = viper.GetString("dataset")
	tweakHex = viper.GetString("tweak")
	if definitionPath == "" {
		return errRequiredFlag("--dataset")
	}
	return nil
}

type flagError string

func (e flagError) Error() string { return "missing required flag: " + string(e) }

func errRequiredFlag(name string) error { return flagError(name) }
