package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vdparikh/ffs/ffs"
)

var searchCmd = &cobra.Command{
	Use:   "search <plaintext>",
	Short: "Encrypt a plaintext under every cached key, for building a search index",
	Args:  cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return loadGlobalFlags()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		def, keys, err := loadDatasetFile(definitionPath)
		if err != nil {
			return err
		}
		ctx, err := ffs.NewContext(def, keys)
		if err != nil {
			return err
		}
		defer ctx.Destroy()

		tweak, err := overrideTweak(tweakHex)
		if err != nil {
			return fmt.Errorf("tweak: %w", err)
		}
		results, err := ctx.EncryptForSearch(args[0], tweak)
		if err != nil {
			return err
		}
		for _, ct := range results {
			fmt.Println(ct)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
}
