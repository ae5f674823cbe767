package server

import "time"

// StartResponse is returned by /api/challenge/start
type StartResponse struct {
	SessionID string    `json:"session_id"`
	GridSize  int       `json:"grid_size"`
	Original  string    `json:"original"`  // URL of the challenge image
	Segmented string    `json:"segmented"` // URL of the color-segmented image
	Mask      string    `json:"mask"`      // URL of the silhouette
	Grid      string    `json:"grid"`      // URL of the image with the numbered grid
	ExpiresAt time.Time `json:"expires_at"`
}

// VerifyRequest is the JSON body for /api/challenge/verify. SessionID may be
// omitted when the session cookie is present.
type VerifyRequest struct {
	SessionID  string `json:"session_id" form:"session_id"`
	Selections []int  `json:"selections" form:"selected_tiles"`
}

// VerifyResponse is returned by /api/challenge/verify
type VerifyResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Selections []int  `json:"selections"`
	Correct    []int  `json:"correct,omitempty"` // debug mode only
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}
