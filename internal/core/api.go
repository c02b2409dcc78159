package core

// Request types

type CreateSessionRequest struct {
	Level   int  `json:"level" validate:"min=0,max=6"`
	Layout  int  `json:"layout" validate:"min=0,max=3"`
	Flipped bool `json:"flipped"`
}

type TapRequest struct {
	Col *int `json:"col" validate:"required,min=0,max=8"`
	Row *int `json:"row" validate:"required,min=0,max=9"`
}

// Response types

type SessionResponse struct {
	SessionID string   `json:"sessionId"`
	FEN       string   `json:"fen"`
	Turn      string   `json:"turn"`  // "red" or "black"
	Human     string   `json:"human"` // side the seat holder plays
	Selected  string   `json:"selected,omitempty"`
	LastMove  string   `json:"lastMove,omitempty"`
	Moves     []string `json:"moves"`
	Thinking  bool     `json:"thinking"`
	History   int      `json:"history"`
	Outcome   string   `json:"outcome"` // "ongoing", "checkmate", "repetition"
	Level     int      `json:"level"`
	Layout    string   `json:"layout"`
	Flipped   bool     `json:"flipped"`
	Version   uint64   `json:"version"`
}

type CreateSessionResponse struct {
	SessionID string          `json:"sessionId"`
	Token     string          `json:"token"`
	State     SessionResponse `json:"state"`
}

type ActionResponse struct {
	Accepted bool            `json:"accepted"`
	State    SessionResponse `json:"state"`
}

type BoardResponse struct {
	FEN   string `json:"fen"`
	Board string `json:"board"` // ASCII representation
}

type HealthResponse struct {
	Status   string `json:"status"`
	Time     int64  `json:"time"`
	Storage  string `json:"storage,omitempty"` // "ok", "degraded" or "disabled"
	Sessions int    `json:"sessions"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}
