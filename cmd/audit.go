package cmd

import (
	"fmt"
	"os"
	"runtime"
	"sort"
	"sync"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"tileCaptcha/internal/challenge"
	"tileCaptcha/internal/pool"
)

type auditOptions struct {
	ImageDir string
	Workers  int
	Band     float64
}

var auditOpts auditOptions

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Score every pool image and flag ones that make poor challenges",
	Long: `Audit scores every image in the pool with the current configuration.
An image is flagged when it yields too few correct cells, all cells, or any
cell whose coverage sits within --band of the threshold: such a cell can
flip between correct and incorrect with a little JPEG noise, and verification
allows no tolerance for it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAudit(cmd, auditOpts)
	},
}

func init() {
	f := auditCmd.Flags()
	f.StringVarP(&auditOpts.ImageDir, "images", "i", "images", "Directory of source challenge images")
	f.IntVarP(&auditOpts.Workers, "workers", "w", runtime.NumCPU(), "Number of parallel scoring workers")
	f.Float64Var(&auditOpts.Band, "band", 0.02, "Coverage distance from the threshold considered ambiguous")
	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, opts auditOptions) error {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	paths, err := pool.New(opts.ImageDir).List()
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return pool.ErrEmpty
	}

	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetDescription("auditing"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)

	tasks := make(chan string)
	results := make(chan challenge.Report, opts.Workers)
	var wg sync.WaitGroup

	for i := 0; i < opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range tasks {
				r, err := challenge.Inspect(cfg, p, opts.Band)
				if err != nil {
					log.Warn().Err(err).Str("source", p).Msg("audit image")
					r = challenge.Report{Source: p, Err: err}
				}
				results <- r
			}
		}()
	}
	go func() {
		defer close(tasks)
		for _, p := range paths {
			select {
			case tasks <- p:
			case <-cmd.Context().Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	var reports []challenge.Report
	for r := range results {
		reports = append(reports, r)
		bar.Add(1)
	}
	bar.Finish()
	fmt.Fprintln(os.Stderr)

	sort.Slice(reports, func(i, j int) bool { return reports[i].Source < reports[j].Source })

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "IMAGE\tCORRECT\tMARGIN\tUNSTABLE\tUSABLE")
	for _, r := range reports {
		if r.Err != nil {
			fmt.Fprintf(tw, "%s\t-\t-\t-\terror\n", r.Source)
			continue
		}
		fmt.Fprintf(tw, "%s\t%v\t%.3f\t%v\t%v\n", r.Source, r.Correct.Ints(), r.Margin, r.Unstable, r.Usable)
	}
	tw.Flush()

	s := challenge.Summarize(reports)
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d/%d usable (%d unreadable), mean correct cells %.2f, margin %.3f ± %.3f\n",
		s.Usable, s.Images, s.Failed, s.MeanCorrect, s.MeanMargin, s.StdDevMargin)
	return cmd.Context().Err()
}
