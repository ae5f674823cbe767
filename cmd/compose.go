package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"tileCaptcha/internal/imageio"
	"tileCaptcha/internal/render"
)

type composeOptions struct {
	Object     string
	Background string
	Output     string
}

var composeOpts composeOptions

var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Paste an object (black = transparent) onto a background to author a challenge image",
	RunE: func(cmd *cobra.Command, args []string) error {
		obj, err := imageio.Load(composeOpts.Object)
		if err != nil {
			return err
		}
		bg, err := imageio.Load(composeOpts.Background)
		if err != nil {
			return err
		}
		if err := imageio.Save(composeOpts.Output, render.Composite(obj, bg)); err != nil {
			return err
		}
		log.Info().Str("out", composeOpts.Output).Msg("composite written")
		return nil
	},
}

func init() {
	f := composeCmd.Flags()
	f.StringVar(&composeOpts.Object, "object", "", "Object image on a black background")
	f.StringVar(&composeOpts.Background, "background", "", "Background image; the output takes its size")
	f.StringVarP(&composeOpts.Output, "output", "o", "", "Output path (.jpg or .png)")
	composeCmd.MarkFlagRequired("object")
	composeCmd.MarkFlagRequired("background")
	composeCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(composeCmd)
}
