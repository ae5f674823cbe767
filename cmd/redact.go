package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"tileCaptcha/internal/imageio"
	"tileCaptcha/internal/render"
	"tileCaptcha/internal/vision"
)

type redactOptions struct {
	Input  string
	Output string
}

var redactOpts redactOptions

var redactCmd = &cobra.Command{
	Use:   "redact",
	Short: "Black out every pixel matching the color ranges",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRedact(redactOpts)
	},
}

func init() {
	f := redactCmd.Flags()
	f.StringVarP(&redactOpts.Input, "input", "i", "", "Path to the input image")
	f.StringVarP(&redactOpts.Output, "output", "o", "", "Output path (.jpg or .png)")
	redactCmd.MarkFlagRequired("input")
	redactCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(redactCmd)
}

func runRedact(opts redactOptions) error {
	seg, err := vision.NewSegmenter(cfg.Ranges, cfg.Invert)
	if err != nil {
		return err
	}
	img, mask, err := seg.SegmentFile(opts.Input)
	if err != nil {
		return err
	}
	if err := imageio.Save(opts.Output, render.Redact(img, mask)); err != nil {
		return err
	}
	log.Info().Str("in", opts.Input).Str("out", opts.Output).Msg("redacted image written")
	return nil
}
