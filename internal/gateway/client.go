// ABOUTME: WebSocket client that pushes µ-law streams to a gateway
// ABOUTME: Handles the hello, start, frame, end and ack exchange
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/Resonate-Protocol/fifoplay/pkg/asset"
	"github.com/Resonate-Protocol/fifoplay/pkg/audio"
	"github.com/Resonate-Protocol/fifoplay/pkg/audio/ulaw"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const defaultReplyTimeout = 10 * time.Second

// Client is a connection to one gateway
type Client struct {
	conn  *websocket.Conn
	hello ServerHello

	mu     sync.Mutex
	closed bool
}

// Dial connects to the gateway at addr (host:port) and reads its hello
func Dial(ctx context.Context, addr string) (*Client, error) {
	u := url.URL{Scheme: "ws", Host: addr, Path: Path}
	log.Printf("Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	c := &Client{conn: conn}
	if err := c.readReply(ctx, TypeServerHello, &c.hello); err != nil {
		c.Close()
		return nil, fmt.Errorf("handshake failed: %w", err)
	}

	log.Printf("Connected to gateway %s (%s %s)", c.hello.Name, c.hello.Product, c.hello.Software)
	return c, nil
}

// Hello returns the gateway's greeting
func (c *Client) Hello() ServerHello {
	return c.hello
}

// Start opens a stream. A gateway that is already playing answers with an
// error matching ErrBusy.
func (c *Client) Start(ctx context.Context, start StreamStart) (StreamAccepted, error) {
	var accepted StreamAccepted
	if start.Codec == "" {
		start.Codec = CodecULaw
	}
	if err := c.sendJSON(Message{Type: TypeStreamStart, Payload: start}); err != nil {
		return accepted, fmt.Errorf("failed to send stream/start: %w", err)
	}
	if err := c.readReply(ctx, TypeStreamAccepted, &accepted); err != nil {
		return accepted, err
	}
	return accepted, nil
}

// SendFrame sends one binary frame of at most MaxFrame µ-law bytes
func (c *Client) SendFrame(frame []byte) error {
	if len(frame) > MaxFrame {
		return fmt.Errorf("frame of %d bytes exceeds %d", len(frame), MaxFrame)
	}
	return c.conn.WriteMessage(websocket.BinaryMessage, frame)
}

// End closes the stream and waits for the gateway's ack
func (c *Client) End(ctx context.Context) (StreamAck, error) {
	var ack StreamAck
	if err := c.sendJSON(Message{Type: TypeStreamEnd}); err != nil {
		return ack, fmt.Errorf("failed to send stream/end: %w", err)
	}
	if err := c.readReply(ctx, TypeStreamAck, &ack); err != nil {
		return ack, err
	}
	return ack, nil
}

// Stream sends µ-law codes as one complete stream
func (c *Client) Stream(ctx context.Context, name string, rate audio.SampleRate, codes []byte) (StreamAck, error) {
	accepted, err := c.Start(ctx, StreamStart{
		Codec:      CodecULaw,
		SampleRate: rate.Hz(),
		TotalBytes: int64(len(codes)),
		Name:       name,
	})
	if err != nil {
		return StreamAck{}, err
	}

	frame := accepted.MaxFrame
	if frame <= 0 || frame > MaxFrame {
		frame = MaxFrame
	}

	log.Printf("Streaming %q as session %s: %d bytes in %d byte frames", name, accepted.Session, len(codes), frame)

	for off := 0; off < len(codes); off += frame {
		if err := ctx.Err(); err != nil {
			return StreamAck{}, err
		}
		end := min(off+frame, len(codes))
		if err := c.SendFrame(codes[off:end]); err != nil {
			return StreamAck{}, fmt.Errorf("failed to send frame at %d: %w", off, err)
		}
	}

	return c.End(ctx)
}

// Close closes the connection
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return c.conn.Close()
}

func (c *Client) sendJSON(msg Message) error {
	return c.conn.WriteJSON(msg)
}

// readReply reads control messages until one of type want arrives.
// Gateway errors are returned as *RemoteError.
func (c *Client) readReply(ctx context.Context, want string, out interface{}) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultReplyTimeout)
	}
	c.conn.SetReadDeadline(deadline)
	defer c.conn.SetReadDeadline(time.Time{})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", want, err)
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var env struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			return fmt.Errorf("failed to parse %s: %w", want, err)
		}

		switch env.Type {
		case want:
			if err := json.Unmarshal(env.Payload, out); err != nil {
				return fmt.Errorf("failed to parse %s payload: %w", want, err)
			}
			return nil
		case TypeError:
			var e ErrorPayload
			if err := json.Unmarshal(env.Payload, &e); err != nil {
				return fmt.Errorf("failed to parse error payload: %w", err)
			}
			return &RemoteError{Code: e.Code, Message: e.Message}
		default:
			log.Printf("Ignoring %s while waiting for %s", env.Type, want)
		}
	}
}

// Push loads an audio file, encodes it as µ-law at rate and streams it to
// the gateway at addr
func Push(ctx context.Context, addr, path string, rate audio.SampleRate) (StreamAck, error) {
	a, err := asset.Load(path, rate)
	if err != nil {
		return StreamAck{}, err
	}

	pcm := make([]byte, a.Size())
	if _, err := a.ReadAt(pcm, 0); err != nil {
		return StreamAck{}, fmt.Errorf("failed to read asset: %w", err)
	}
	codes := make([]byte, len(pcm)/audio.BytesPerSample)
	ulaw.EncodePCM16(codes, pcm)

	c, err := Dial(ctx, addr)
	if err != nil {
		return StreamAck{}, err
	}
	defer c.Close()

	return c.Stream(ctx, a.Title, rate, codes)
}
