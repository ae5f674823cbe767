package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"tileCaptcha/internal/store"
)

type resetOptions struct {
	DBURL  string
	Tables bool
	Files  bool
	Yes    bool
}

var resetOpts resetOptions

// errNoDatabase is returned when a table reset is requested without a database.
var errNoDatabase = errors.New("no database configured (use --db or POSTGRES_*)")

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop the session table and delete rendered challenge artifacts",
	Long: `Reset clears server state. By default it drops the PostgreSQL session
table (when a database is configured) and deletes every file in the artifact
directory. Use --tables or --files to clear only one of them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReset(cmd, resetOpts)
	},
}

func init() {
	f := resetCmd.Flags()
	f.StringVar(&resetOpts.DBURL, "db", "", "PostgreSQL connection string (default: POSTGRES_* env)")
	f.BoolVar(&resetOpts.Tables, "tables", false, "Drop the session table only")
	f.BoolVar(&resetOpts.Files, "files", false, "Delete rendered artifacts only")
	f.BoolVarP(&resetOpts.Yes, "yes", "y", false, "Do not ask for confirmation")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, opts resetOptions) error {
	explicit := opts.Tables || opts.Files
	if !explicit {
		opts.Tables, opts.Files = true, true
	}
	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	if opts.Tables {
		dbURL := databaseURL(opts.DBURL)
		switch {
		case dbURL == "" && explicit:
			return errNoDatabase
		case dbURL == "":
			log.Info().Msg("no database configured, skipping session table")
		case opts.Yes || confirm(in, out, "Drop the captcha_sessions table?"):
			s, err := store.New(cmd.Context(), dbURL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			err = s.Reset(cmd.Context())
			s.Close()
			if err != nil {
				return fmt.Errorf("reset database: %w", err)
			}
			log.Info().Msg("session table dropped")
		}
	}

	if opts.Files && (opts.Yes || confirm(in, out, fmt.Sprintf("Delete every file in %s?", cfg.OutputDir))) {
		n, err := clearDir(cfg.OutputDir)
		if err != nil {
			return err
		}
		log.Info().Int("files", n).Str("dir", cfg.OutputDir).Msg("artifacts removed")
	}
	return nil
}

func confirm(r *bufio.Reader, w io.Writer, prompt string) bool {
	fmt.Fprintf(w, "%s [y/N]: ", prompt)
	res, _ := r.ReadString('\n')
	res = strings.TrimSpace(strings.ToLower(res))
	return res == "y" || res == "yes"
}

// clearDir removes the regular files directly inside dir. A missing dir is
// already clear.
func clearDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read artifact dir: %w", err)
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return n, fmt.Errorf("remove artifact: %w", err)
		}
		n++
	}
	return n, nil
}
