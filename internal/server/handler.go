// Package server exposes challenge issuance and verification over HTTP.
package server

import (
	"context"
	"net/http"
	"path"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"tileCaptcha/internal/challenge"
)

// SessionCookie carries the session id between start and verify.
const SessionCookie = "captcha_session"

// Issuer creates challenges.
type Issuer interface {
	Issue(ctx context.Context) (*challenge.Challenge, error)
}

// Checker decides a submission against a session.
type Checker interface {
	Verify(ctx context.Context, id string, submission []int) challenge.Result
}

// Options configures routing and response details.
type Options struct {
	ImageDir     string // served under /images
	OutputDir    string // served under /challenges
	StaticDir    string // optional front-end, served under /static
	Debug        bool   // echo the correct set in verify responses
	SecureCookie bool
}

// Handler serves the challenge API.
type Handler struct {
	issuer  Issuer
	checker Checker
	opts    Options
}

// NewHandler wires an issuer and a checker into a Handler.
func NewHandler(issuer Issuer, checker Checker, opts Options) *Handler {
	return &Handler{issuer: issuer, checker: checker, opts: opts}
}

// Router builds the gin engine with every route registered.
func (h *Handler) Router() *gin.Engine {
	e := gin.New()
	e.Use(gin.Recovery(), requestLogger())

	api := e.Group("/api").Group("/challenge")
	api.GET("/start", h.Start)
	api.POST("/verify", h.Verify)

	if h.opts.ImageDir != "" {
		e.Static("/images", h.opts.ImageDir)
	}
	if h.opts.OutputDir != "" {
		e.Static("/challenges", h.opts.OutputDir)
	}
	if h.opts.StaticDir != "" {
		e.Static("/static", h.opts.StaticDir)
	}
	return e
}

// Start issues a new challenge and binds it to the caller with a cookie.
func (h *Handler) Start(c *gin.Context) {
	ch, err := h.issuer.Issue(c.Request.Context())
	if err != nil {
		// the cause stays in the log; callers only learn that no challenge is available
		log.Err(err).Msg("issue challenge")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "challenge unavailable"})
		return
	}

	maxAge := int(time.Until(ch.ExpiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(SessionCookie, ch.ID, maxAge, "/", "", h.opts.SecureCookie, true)

	c.JSON(http.StatusOK, StartResponse{
		SessionID: ch.ID,
		GridSize:  ch.GridSize,
		Original:  h.imageURL(ch.Artifacts.Original),
		Segmented: artifactURL(ch.Artifacts.Segmented),
		Mask:      artifactURL(ch.Artifacts.Mask),
		Grid:      artifactURL(ch.Artifacts.Grid),
		ExpiresAt: ch.ExpiresAt,
	})
}

// Verify checks the submitted tiles. Every well-formed request gets a 200;
// unknown and replayed sessions look exactly like a wrong answer.
func (h *Handler) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return
	}
	id := req.SessionID
	if id == "" {
		id, _ = c.Cookie(SessionCookie)
	}

	res := h.checker.Verify(c.Request.Context(), id, req.Selections)
	c.SetCookie(SessionCookie, "", -1, "/", "", h.opts.SecureCookie, true)

	rsp := VerifyResponse{
		Success:    res.Pass,
		Message:    "verification failed",
		Selections: res.Submitted.Ints(),
	}
	if res.Pass {
		rsp.Message = "verification passed"
	}
	if h.opts.Debug {
		rsp.Correct = res.Correct.Ints()
	}
	log.Info().Bool("pass", res.Pass).Ints("selections", rsp.Selections).Msg("challenge verified")
	c.JSON(http.StatusOK, rsp)
}

func (h *Handler) imageURL(p string) string {
	rel, err := filepath.Rel(h.opts.ImageDir, p)
	if err != nil || h.opts.ImageDir == "" {
		rel = filepath.Base(p)
	}
	return path.Join("/images", filepath.ToSlash(rel))
}

func artifactURL(p string) string {
	return path.Join("/challenges", filepath.Base(p))
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
