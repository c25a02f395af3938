// ABOUTME: WebSocket gateway that plays pushed µ-law streams on the speaker
// ABOUTME: One stream at a time; each frame waits for the transmit FIFO to drain
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/fifoplay/internal/discovery"
	"github.com/Resonate-Protocol/fifoplay/internal/version"
	"github.com/Resonate-Protocol/fifoplay/pkg/audio"
	"github.com/Resonate-Protocol/fifoplay/pkg/audio/ulaw"
	"github.com/Resonate-Protocol/fifoplay/pkg/irq"
	"github.com/Resonate-Protocol/fifoplay/pkg/peripheral"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	readyPoll     = 5 * time.Millisecond
	writeDeadline = 10 * time.Second
	pingInterval  = 30 * time.Second
)

var (
	errReadyTimeout = errors.New("speaker did not become ready")
	errShutdown     = errors.New("gateway shutting down")
)

// Config holds gateway configuration
type Config struct {
	Port       int
	Name       string
	EnableMDNS bool

	// ReadyTimeout bounds the wait for the speaker FIFO to drain
	ReadyTimeout time.Duration
}

// Stats holds gateway counters
type Stats struct {
	Sessions    uint64
	Rejected    uint64
	BytesPlayed uint64
	Active      string
}

// Server accepts pushed streams and plays them
type Server struct {
	config   Config
	serverID string

	upgrader   websocket.Upgrader
	httpServer *http.Server
	mux        *http.ServeMux

	speaker peripheral.Speaker
	line    *irq.Line
	ready   chan struct{}

	mu     sync.Mutex
	active *session

	sessions atomic.Uint64
	rejected atomic.Uint64
	played   atomic.Uint64

	mdnsManager *discovery.Manager

	stopChan   chan struct{}
	stopOnce   sync.Once
	closeOnce  sync.Once
	shutdownMu sync.RWMutex
	isShutdown bool
	wg         sync.WaitGroup
}

type session struct {
	id       string
	start    StreamStart
	rate     audio.SampleRate
	began    time.Time
	received int64
	played   int64
	frames   int
	buf      []byte
}

type conn struct {
	ws       *websocket.Conn
	remote   string
	sendChan chan interface{}
	session  *session
}

// New creates a gateway playing on speaker. When line is set it must be the
// speaker's transmit interrupt; the gateway attaches to it to wake on drain.
func New(config Config, speaker peripheral.Speaker, line *irq.Line) (*Server, error) {
	if config.ReadyTimeout <= 0 {
		config.ReadyTimeout = 2 * time.Second
	}

	s := &Server{
		config:   config,
		serverID: uuid.New().String(),
		mux:      http.NewServeMux(),
		upgrader: websocket.Upgrader{
			// gateways run on trusted local networks
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		speaker:  speaker,
		line:     line,
		ready:    make(chan struct{}, 1),
		stopChan: make(chan struct{}),
	}

	if line != nil {
		if err := line.Attach(s.signalReady); err != nil {
			return nil, fmt.Errorf("failed to attach speaker line: %w", err)
		}
		if err := line.Enable(); err != nil {
			line.Detach()
			return nil, fmt.Errorf("failed to enable speaker line: %w", err)
		}
	}

	s.mux.HandleFunc(Path, s.handleWebSocket)
	return s, nil
}

// Handler returns the HTTP handler serving the gateway endpoint
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start listens on the configured port and serves until Stop
func (s *Server) Start() error {
	log.Printf("Gateway starting: %s (ID: %s)", s.config.Name, s.serverID)

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		s.Close()
		return fmt.Errorf("failed to listen: %w", err)
	}

	if s.config.EnableMDNS {
		port := listener.Addr().(*net.TCPAddr).Port
		s.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        port,
			TXT:         txtRecords(),
		})
		if err := s.mdnsManager.Advertise(); err != nil {
			log.Printf("Failed to start mDNS advertisement: %v", err)
		} else {
			log.Printf("mDNS advertisement started")
		}
	}

	log.Printf("Gateway listening on %s%s", listener.Addr(), Path)

	s.httpServer = &http.Server{Handler: s.mux}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(listener); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case <-s.stopChan:
		log.Printf("Gateway shutting down...")
	case err := <-errChan:
		log.Printf("HTTP server error: %v", err)
		serverErr = err
	}

	s.shutdownMu.Lock()
	s.isShutdown = true
	s.shutdownMu.Unlock()
	s.Stop()

	if s.mdnsManager != nil {
		s.mdnsManager.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	s.wg.Wait()
	s.Close()
	log.Printf("Gateway stopped cleanly")

	if serverErr != nil {
		return fmt.Errorf("HTTP server failed: %w", serverErr)
	}
	return nil
}

// Stop signals Start to return and aborts waits on the speaker
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// Close releases the interrupt line and stops the speaker
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		s.Stop()
		if s.line != nil {
			s.line.Disable()
			s.line.Detach()
		}
		s.speaker.End()
	})
}

// Stats returns a snapshot of the counters
func (s *Server) Stats() Stats {
	st := Stats{
		Sessions:    s.sessions.Load(),
		Rejected:    s.rejected.Load(),
		BytesPlayed: s.played.Load(),
	}
	s.mu.Lock()
	if s.active != nil {
		st.Active = s.active.id
	}
	s.mu.Unlock()
	return st
}

func (s *Server) signalReady() {
	select {
	case s.ready <- struct{}{}:
	default:
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	log.Printf("New WebSocket connection from %s", r.RemoteAddr)
	s.handleConnection(ws, r.RemoteAddr)
}

func (s *Server) handleConnection(ws *websocket.Conn, remote string) {
	defer ws.Close()

	s.shutdownMu.RLock()
	if s.isShutdown {
		s.shutdownMu.RUnlock()
		log.Printf("Rejecting connection during shutdown")
		return
	}
	s.shutdownMu.RUnlock()

	c := &conn{
		ws:       ws,
		remote:   remote,
		sendChan: make(chan interface{}, 16),
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.connWriter(c)
	}()

	defer func() {
		if c.session != nil {
			log.Printf("Stream %s aborted: connection from %s closed", c.session.id, remote)
			s.finish(c)
		}
		close(c.sendChan)
		log.Printf("Connection closed: %s", remote)
	}()

	hello := ServerHello{
		ServerID: s.serverID,
		Name:     s.config.Name,
		Product:  version.Product,
		Software: version.Version,
		Version:  ProtocolVersion,
		MaxFrame: MaxFrame,
		Codecs:   []string{CodecULaw},
	}
	if err := s.sendMessage(c, TypeServerHello, hello); err != nil {
		log.Printf("Error sending server hello: %v", err)
		return
	}

	for {
		messageType, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			s.handleFrame(c, data)
		case websocket.TextMessage:
			s.handleControl(c, data)
		}
	}
}

// connWriter owns all writes to the socket
func (s *Server) connWriter(c *conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.sendChan:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				log.Printf("Error marshaling message: %v", err)
				continue
			}
			c.ws.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("Error writing message: %v", err)
				return
			}

		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleControl(c *conn, data []byte) {
	var env struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		s.sendError(c, CodeBadMessage, fmt.Sprintf("invalid message: %v", err))
		return
	}

	switch env.Type {
	case TypeStreamStart:
		var start StreamStart
		if err := json.Unmarshal(env.Payload, &start); err != nil {
			s.sendError(c, CodeBadMessage, fmt.Sprintf("invalid stream/start: %v", err))
			return
		}
		s.handleStreamStart(c, start)

	case TypeStreamEnd:
		s.handleStreamEnd(c)

	default:
		log.Printf("Unknown message type: %s", env.Type)
		s.sendError(c, CodeBadMessage, "unknown message type "+env.Type)
	}
}

func (s *Server) handleStreamStart(c *conn, start StreamStart) {
	if c.session != nil {
		s.sendError(c, CodeAlreadyStreaming, "stream "+c.session.id+" is still open")
		return
	}
	if start.Codec != CodecULaw {
		s.sendError(c, CodeUnsupportedCodec, fmt.Sprintf("codec %q not supported, use %s", start.Codec, CodecULaw))
		return
	}
	rate := audio.SampleRate(start.SampleRate)
	if !rate.Valid() {
		s.sendError(c, CodeUnsupportedRate, fmt.Sprintf("sample rate %d not supported", start.SampleRate))
		return
	}

	sess := &session{
		id:    uuid.New().String(),
		start: start,
		rate:  rate,
		began: time.Now(),
		buf:   make([]byte, MaxFrame*audio.FrameSizeStereo),
	}

	s.mu.Lock()
	if s.active != nil {
		busy := s.active.id
		s.mu.Unlock()
		s.rejected.Add(1)
		log.Printf("Rejecting stream from %s: session %s is playing", c.remote, busy)
		s.sendError(c, CodeBusy, "another stream is playing")
		return
	}
	s.active = sess
	s.mu.Unlock()

	if err := s.speaker.Configure(rate); err != nil {
		s.release(sess)
		s.sendError(c, CodeSpeakerFailed, err.Error())
		return
	}
	if err := s.speaker.Begin(); err != nil {
		s.release(sess)
		s.sendError(c, CodeSpeakerFailed, err.Error())
		return
	}

	c.session = sess
	s.sessions.Add(1)

	log.Printf("Stream %s started from %s: %q %s, %d bytes", sess.id, c.remote, start.Name, rate, start.TotalBytes)

	if err := s.sendMessage(c, TypeStreamAccepted, StreamAccepted{Session: sess.id, MaxFrame: MaxFrame}); err != nil {
		log.Printf("Error sending stream/accepted: %v", err)
	}
}

func (s *Server) handleFrame(c *conn, frame []byte) {
	sess := c.session
	if sess == nil {
		s.sendError(c, CodeNoStream, "audio frame before stream/start")
		return
	}
	if len(frame) > MaxFrame {
		s.sendError(c, CodeFrameTooLarge, fmt.Sprintf("frame of %d bytes exceeds %d", len(frame), MaxFrame))
		return
	}

	sess.received += int64(len(frame))
	sess.frames++

	ulaw.DecodePCM16Stereo(sess.buf, frame)
	if err := s.play(sess.buf[:len(frame)*audio.FrameSizeStereo]); err != nil {
		log.Printf("Stream %s: dropping frame %d: %v", sess.id, sess.frames, err)
		s.sendError(c, CodeSpeakerFailed, err.Error())
		return
	}

	sess.played += int64(len(frame))
	s.played.Add(uint64(len(frame)))
}

func (s *Server) handleStreamEnd(c *conn) {
	sess := c.session
	if sess == nil {
		s.sendError(c, CodeNoStream, "stream/end without stream/start")
		return
	}

	// let the last frame play out
	if err := s.waitReady(); err != nil {
		log.Printf("Stream %s: final drain: %v", sess.id, err)
	}

	if sess.start.TotalBytes > 0 && sess.received != sess.start.TotalBytes {
		log.Printf("Warning: stream %s announced %d bytes, received %d", sess.id, sess.start.TotalBytes, sess.received)
	}

	ack := StreamAck{
		Session:       sess.id,
		BytesReceived: sess.received,
		BytesPlayed:   sess.played,
		Frames:        sess.frames,
		DurationMs:    time.Since(sess.began).Milliseconds(),
	}

	s.finish(c)

	log.Printf("Stream %s finished: %d frames, %d/%d bytes played in %dms",
		ack.Session, ack.Frames, ack.BytesPlayed, ack.BytesReceived, ack.DurationMs)

	if err := s.sendMessage(c, TypeStreamAck, ack); err != nil {
		log.Printf("Error sending stream/ack: %v", err)
	}
}

// play submits stereo bytes chunk by chunk as the FIFO drains
func (s *Server) play(p []byte) error {
	for len(p) > 0 {
		if err := s.waitReady(); err != nil {
			return err
		}
		// acknowledge before refilling so a drain during Submit latches again
		s.speaker.Clear()
		n := s.speaker.Submit(p)
		p = p[n:]
	}
	return nil
}

func (s *Server) waitReady() error {
	if s.speaker.Ready() {
		return nil
	}

	timeout := time.NewTimer(s.config.ReadyTimeout)
	defer timeout.Stop()
	poll := time.NewTicker(readyPoll)
	defer poll.Stop()

	for {
		select {
		case <-s.ready:
		case <-poll.C:
		case <-timeout.C:
			return errReadyTimeout
		case <-s.stopChan:
			return errShutdown
		}
		if s.speaker.Ready() {
			return nil
		}
	}
}

func (s *Server) finish(c *conn) {
	s.speaker.End()
	s.release(c.session)
	c.session = nil
}

func (s *Server) release(sess *session) {
	s.mu.Lock()
	if s.active == sess {
		s.active = nil
	}
	s.mu.Unlock()
}

func (s *Server) sendMessage(c *conn, msgType string, payload interface{}) error {
	msg := Message{Type: msgType, Payload: payload}

	select {
	case c.sendChan <- msg:
		return nil
	default:
		return fmt.Errorf("connection send buffer full")
	}
}

func (s *Server) sendError(c *conn, code, message string) {
	if err := s.sendMessage(c, TypeError, ErrorPayload{Code: code, Message: message}); err != nil {
		log.Printf("Error sending %s error: %v", code, err)
	}
}

// txtRecords is what the mDNS advertisement carries besides the port
func txtRecords() []string {
	return []string{
		"path=" + Path,
		"codec=" + CodecULaw,
		"version=" + version.Version,
	}
}
