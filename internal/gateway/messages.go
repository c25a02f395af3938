// ABOUTME: Message types for the µ-law push gateway protocol
// ABOUTME: JSON control messages wrap a typed payload; audio travels in binary frames
package gateway

import (
	"errors"
	"fmt"
)

const (
	// Path is the WebSocket endpoint
	Path = "/fifoplay"

	// ProtocolVersion is reported in server/hello
	ProtocolVersion = 1

	// MaxFrame is the largest binary frame in µ-law bytes. One full frame
	// expands to a 2048 byte stereo FIFO.
	MaxFrame = 512

	// CodecULaw is the only accepted stream codec
	CodecULaw = "ulaw"
)

// Message types
const (
	TypeServerHello    = "server/hello"
	TypeStreamStart    = "stream/start"
	TypeStreamAccepted = "stream/accepted"
	TypeStreamEnd      = "stream/end"
	TypeStreamAck      = "stream/ack"
	TypeError          = "error"
)

// Error codes carried in error messages
const (
	CodeBusy             = "busy"
	CodeUnsupportedCodec = "unsupported_codec"
	CodeUnsupportedRate  = "unsupported_rate"
	CodeNoStream         = "no_stream"
	CodeAlreadyStreaming = "already_streaming"
	CodeFrameTooLarge    = "frame_too_large"
	CodeSpeakerFailed    = "speaker_failed"
	CodeBadMessage       = "bad_message"
)

// ErrBusy is matched by errors for a rejected concurrent stream
var ErrBusy = errors.New("gateway busy")

// Message is the top-level wrapper for all control messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// ServerHello is sent once a connection is upgraded
type ServerHello struct {
	ServerID string   `json:"server_id"`
	Name     string   `json:"name"`
	Product  string   `json:"product"`
	Software string   `json:"software_version"`
	Version  int      `json:"version"`
	MaxFrame int      `json:"max_frame"`
	Codecs   []string `json:"codecs"`
}

// StreamStart opens a stream
type StreamStart struct {
	Codec      string `json:"codec"`
	SampleRate int    `json:"sample_rate"`
	TotalBytes int64  `json:"total_bytes"`
	Name       string `json:"name,omitempty"`
}

// StreamAccepted confirms a stream and names its session
type StreamAccepted struct {
	Session  string `json:"session"`
	MaxFrame int    `json:"max_frame"`
}

// StreamAck reports a finished stream
type StreamAck struct {
	Session       string `json:"session"`
	BytesReceived int64  `json:"bytes_received"`
	BytesPlayed   int64  `json:"bytes_played"`
	Frames        int    `json:"frames"`
	DurationMs    int64  `json:"duration_ms"`
}

// ErrorPayload describes a rejected request
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RemoteError is an error reported by the gateway
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("gateway error %s: %s", e.Code, e.Message)
}

// Is matches ErrBusy for busy rejections
func (e *RemoteError) Is(target error) bool {
	return target == ErrBusy && e.Code == CodeBusy
}
