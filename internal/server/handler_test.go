package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"tileCaptcha/internal/challenge"
	"tileCaptcha/internal/grid"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubIssuer struct {
	ch  *challenge.Challenge
	err error
}

func (s stubIssuer) Issue(context.Context) (*challenge.Challenge, error) { return s.ch, s.err }

// stubChecker keeps one answer per session and forgets it on first use.
type stubChecker struct {
	answers map[string]grid.CorrectSet
	gotID   string
}

func (s *stubChecker) Verify(_ context.Context, id string, submission []int) challenge.Result {
	s.gotID = id
	sub := grid.NewCorrectSet(submission...)
	correct, ok := s.answers[id]
	delete(s.answers, id)
	if !ok {
		return challenge.Result{Submitted: sub, Correct: grid.CorrectSet{}}
	}
	return challenge.Result{Pass: sub.Equal(correct), Submitted: sub, Correct: correct}
}

func newChallenge() *challenge.Challenge {
	return &challenge.Challenge{
		ID:       "sid1",
		GridSize: 3,
		Correct:  grid.NewCorrectSet(0),
		Artifacts: challenge.Artifacts{
			Original:  "/srv/images/bear.jpg",
			Segmented: "/srv/out/bear_sid1_segmented.jpg",
			Mask:      "/srv/out/bear_sid1_mask.jpg",
			Grid:      "/srv/out/bear_sid1_grid.png",
		},
		ExpiresAt: time.Now().Add(time.Minute),
	}
}

func TestStart(t *testing.T) {
	h := NewHandler(stubIssuer{ch: newChallenge()}, &stubChecker{}, Options{ImageDir: "/srv/images"})
	w := httptest.NewRecorder()
	h.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/challenge/start", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var rsp StartResponse
	if err := json.Unmarshal(w.Body.Bytes(), &rsp); err != nil {
		t.Fatal(err)
	}
	if rsp.SessionID != "sid1" || rsp.GridSize != 3 {
		t.Errorf("Unexpected response %+v", rsp)
	}
	if rsp.Original != "/images/bear.jpg" || rsp.Mask != "/challenges/bear_sid1_mask.jpg" {
		t.Errorf("Unexpected URLs %+v", rsp)
	}
	if strings.Contains(w.Body.String(), "correct") {
		t.Error("Start must never expose the correct set")
	}

	var found bool
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookie && c.Value == "sid1" && c.HttpOnly {
			found = true
		}
	}
	if !found {
		t.Error("Session cookie not set")
	}
}

func TestStartUnavailable(t *testing.T) {
	h := NewHandler(stubIssuer{err: errors.New("open images/bear.jpg: no such file")}, &stubChecker{}, Options{})
	w := httptest.NewRecorder()
	h.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/challenge/start", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "bear") {
		t.Errorf("Error detail leaked: %s", w.Body.String())
	}
}

func TestVerifyJSON(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{name: "exact", body: `{"session_id":"sid1","selections":[0]}`, want: true},
		{name: "superset", body: `{"session_id":"sid1","selections":[0,1]}`, want: false},
		{name: "unknown session", body: `{"session_id":"forged","selections":[0]}`, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := &stubChecker{answers: map[string]grid.CorrectSet{"sid1": grid.NewCorrectSet(0)}}
			h := NewHandler(stubIssuer{}, checker, Options{Debug: true})
			req := httptest.NewRequest(http.MethodPost, "/api/challenge/verify", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			h.Router().ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("Expected 200 for every well-formed submission, got %d", w.Code)
			}
			var rsp VerifyResponse
			if err := json.Unmarshal(w.Body.Bytes(), &rsp); err != nil {
				t.Fatal(err)
			}
			if rsp.Success != tt.want {
				t.Errorf("Success = %v, want %v", rsp.Success, tt.want)
			}
			if rsp.Selections == nil {
				t.Error("Selections should be echoed")
			}
		})
	}
}

func TestVerifyFormWithCookie(t *testing.T) {
	checker := &stubChecker{answers: map[string]grid.CorrectSet{"sid1": grid.NewCorrectSet(0, 4)}}
	h := NewHandler(stubIssuer{}, checker, Options{})

	form := url.Values{"selected_tiles": {"4", "0"}}
	req := httptest.NewRequest(http.MethodPost, "/api/challenge/verify", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "sid1"})
	w := httptest.NewRecorder()
	h.Router().ServeHTTP(w, req)

	var rsp VerifyResponse
	if err := json.Unmarshal(w.Body.Bytes(), &rsp); err != nil {
		t.Fatal(err)
	}
	if checker.gotID != "sid1" {
		t.Errorf("Session id not taken from cookie, got %q", checker.gotID)
	}
	if !rsp.Success {
		t.Errorf("Expected pass, got %+v", rsp)
	}
	if rsp.Correct != nil {
		t.Error("Correct set must be hidden outside debug mode")
	}
}

func TestVerifyMalformed(t *testing.T) {
	h := NewHandler(stubIssuer{}, &stubChecker{}, Options{})
	req := httptest.NewRequest(http.MethodPost, "/api/challenge/verify", strings.NewReader(`{"selections":"zero"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.Router().ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}
