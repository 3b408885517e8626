package models

// Client→server frame types on the live interview websocket.
const (
	FrameAudio   = "audio"
	FrameVideo   = "video"
	FrameText    = "text"
	FrameProctor = "proctor"
	FrameEnd     = "end"
)

// Server→client frame types.
const (
	FrameReady        = "ready"
	FrameWarning      = "warning"
	FrameTurnComplete = "turn_complete"
	FrameInterrupted  = "interrupted"
	FrameTimeout      = "timeout"
	FrameError        = "error"
)

// Proctor event names reported by the browser's anti-cheat listeners.
const (
	ProctorTabHidden      = "tab_hidden"
	ProctorFullscreenExit = "fullscreen_exit"
	ProctorFaceAway       = "face_away"
	ProctorNoFace         = "no_face"
	ProctorMultipleFaces  = "multiple_faces"
)

// LiveFrame is the single JSON envelope exchanged with the browser during a
// live session. Exactly the fields for the given Type are set.
type LiveFrame struct {
	Type string `json:"type"`

	// audio/video payloads are base64; Mime qualifies video frames.
	Data string `json:"data,omitempty"`
	Mime string `json:"mime,omitempty"`

	// text in either direction.
	Text string `json:"text,omitempty"`

	// proctor reports and warning echoes.
	Event  string `json:"event,omitempty"`
	Count  int    `json:"count,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Reason string `json:"reason,omitempty"`
}
