package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"tileCaptcha/internal/challenge"
	"tileCaptcha/internal/pool"
	"tileCaptcha/internal/server"
	"tileCaptcha/internal/session"
	"tileCaptcha/internal/store"
)

type serveOptions struct {
	Addr         string
	ImageDir     string
	StaticDir    string
	DBURL        string
	ReapInterval time.Duration
	Debug        bool
	SecureCookie bool
}

var serveOpts serveOptions

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the challenge API over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context(), serveOpts)
	},
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveOpts.Addr, "addr", ":28416", "Listen address")
	f.StringVarP(&serveOpts.ImageDir, "images", "i", "images", "Directory of source challenge images")
	f.StringVar(&serveOpts.StaticDir, "static", "", "Optional front-end directory served under /static")
	f.StringVar(&serveOpts.DBURL, "db", "", "PostgreSQL connection string for shared sessions (default: in-memory, or POSTGRES_* env)")
	f.DurationVar(&cfg.TTL, "ttl", cfg.TTL, "How long an unanswered challenge stays valid")
	f.DurationVar(&serveOpts.ReapInterval, "reap-interval", time.Minute, "How often expired sessions are swept")
	f.BoolVar(&serveOpts.Debug, "debug", false, "Echo the correct set in verify responses")
	f.BoolVar(&serveOpts.SecureCookie, "secure-cookie", false, "Mark the session cookie Secure (HTTPS only)")
	rootCmd.AddCommand(serveCmd)
}

// databaseURL returns dbURL, or one built from POSTGRES_* when dbURL is empty.
// An empty result means no database is configured.
func databaseURL(dbURL string) string {
	if dbURL != "" {
		return dbURL
	}
	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		return ""
	}
	port := os.Getenv("POSTGRES_PORT")
	if port == "" {
		port = "5432"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		os.Getenv("POSTGRES_USER"), os.Getenv("POSTGRES_PASSWORD"), host, port, os.Getenv("POSTGRES_DB"))
}

// sessionStore picks Postgres when a connection string is given or can be
// built from the environment, and the in-memory store otherwise.
func sessionStore(ctx context.Context, dbURL string) (session.Store, func(), error) {
	dbURL = databaseURL(dbURL)
	if dbURL == "" {
		log.Info().Msg("using in-memory session store")
		return session.NewMemoryStore(), func() {}, nil
	}
	s, err := store.New(ctx, dbURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info().Msg("using PostgreSQL session store")
	return s, s.Close, nil
}

func runServe(ctx context.Context, opts serveOptions) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := os.Stat(opts.ImageDir); err != nil {
		return fmt.Errorf("image directory: %w", err)
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	sessions, closeStore, err := sessionStore(ctx, opts.DBURL)
	if err != nil {
		return err
	}
	defer closeStore()

	mgr, err := challenge.NewManager(cfg, sessions, pool.New(opts.ImageDir))
	if err != nil {
		return err
	}
	go mgr.Reap(ctx, opts.ReapInterval)

	if !opts.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	h := server.NewHandler(mgr, challenge.NewVerifier(mgr), server.Options{
		ImageDir:     opts.ImageDir,
		OutputDir:    cfg.OutputDir,
		StaticDir:    opts.StaticDir,
		Debug:        opts.Debug,
		SecureCookie: opts.SecureCookie,
	})
	srv := &http.Server{
		Addr:              opts.Addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", opts.Addr).Int("grid", cfg.GridSize).Float64("threshold", cfg.Threshold).Msg("server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("run server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
