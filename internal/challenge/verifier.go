package challenge

import (
	"context"

	"github.com/rs/zerolog/log"

	"tileCaptcha/internal/grid"
)

// Consumer hands out a session's correct set exactly once.
type Consumer interface {
	Consume(ctx context.Context, id string) (grid.CorrectSet, error)
}

// Result is the outcome of one verification attempt.
type Result struct {
	Pass      bool
	Submitted grid.CorrectSet
	Correct   grid.CorrectSet // empty when the session was not found
}

// Verifier compares a submission with the stored answer.
type Verifier struct {
	sessions Consumer
}

// NewVerifier returns a Verifier that reads answers from sessions.
func NewVerifier(sessions Consumer) *Verifier {
	return &Verifier{sessions: sessions}
}

// Verify passes only when submission equals the correct set exactly. Unknown,
// replayed and expired sessions, and store failures, all come back as a plain
// Fail so a caller cannot tell them apart from a wrong answer.
func (v *Verifier) Verify(ctx context.Context, id string, submission []int) Result {
	sub := grid.NewCorrectSet(submission...)
	correct, err := v.sessions.Consume(ctx, id)
	if err != nil {
		log.Debug().Err(err).Str("session", id).Msg("verification failed closed")
		return Result{Pass: false, Submitted: sub, Correct: grid.CorrectSet{}}
	}
	return Result{Pass: sub.Equal(correct), Submitted: sub, Correct: correct}
}
