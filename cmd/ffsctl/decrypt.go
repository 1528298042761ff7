package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vdparikh/ffs/ffs"
)

var decryptCmd = &cobra.Command{
	Use:   "decrypt <ciphertext>",
	Short: "Decrypt a ciphertext, inferring the key number it was produced under",
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
		pt, err := ctx.Decrypt(args[0], tweak)
		if err != nil {
			return err
		}
		fmt.Println(pt)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(decryptCmd)
}
