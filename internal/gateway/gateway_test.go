// ABOUTME: Tests for the push gateway server and client
// ABOUTME: Runs the WebSocket endpoint over httptest with fake and simulated speakers
package gateway

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Resonate-Protocol/fifoplay/internal/version"
	"github.com/Resonate-Protocol/fifoplay/pkg/audio"
	"github.com/Resonate-Protocol/fifoplay/pkg/audio/ulaw"
	"github.com/Resonate-Protocol/fifoplay/pkg/irq"
	"github.com/Resonate-Protocol/fifoplay/pkg/peripheral"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSpeaker struct {
	mu       sync.Mutex
	rate     audio.SampleRate
	began    int
	ended    int
	cleared  int
	received []byte
}

func (s *fakeSpeaker) Configure(rate audio.SampleRate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rate = rate
	return nil
}

func (s *fakeSpeaker) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.began++
	return nil
}

func (s *fakeSpeaker) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ended++
}

func (s *fakeSpeaker) Ready() bool { return true }

func (s *fakeSpeaker) Submit(p []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received = append(s.received, p...)
	return len(p)
}

func (s *fakeSpeaker) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared++
}

func (s *fakeSpeaker) snapshot() (audio.SampleRate, []byte, int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rate, append([]byte(nil), s.received...), s.began, s.cleared
}

// lockedBuffer is a monitor safe to read while the simulated clock writes
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

func startGateway(t *testing.T, sp peripheral.Speaker, line *irq.Line) (*Server, string) {
	t.Helper()
	srv, err := New(Config{Name: "test-gateway"}, sp, line)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})
	return srv, strings.TrimPrefix(ts.URL, "http://")
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestStreamPlaysDecodedStereo(t *testing.T) {
	sp := &fakeSpeaker{}
	srv, addr := startGateway(t, sp, nil)
	ctx := testContext(t)

	c, err := Dial(ctx, addr)
	require.NoError(t, err)
	defer c.Close()

	hello := c.Hello()
	assert.Equal(t, "test-gateway", hello.Name)
	assert.Equal(t, MaxFrame, hello.MaxFrame)
	assert.Equal(t, []string{CodecULaw}, hello.Codecs)
	assert.Equal(t, version.Product, hello.Product)
	assert.Equal(t, version.Version, hello.Software)

	codes := make([]byte, 1200)
	for i := range codes {
		codes[i] = byte(i)
	}

	ack, err := c.Stream(ctx, "ramp", audio.Rate8000, codes)
	require.NoError(t, err)

	assert.NotEmpty(t, ack.Session)
	assert.Equal(t, int64(1200), ack.BytesReceived)
	assert.Equal(t, int64(1200), ack.BytesPlayed)
	assert.Equal(t, 3, ack.Frames, "512 + 512 + 176")

	expected := make([]byte, len(codes)*audio.FrameSizeStereo)
	ulaw.DecodePCM16Stereo(expected, codes)

	rate, received, began, cleared := sp.snapshot()
	assert.Equal(t, audio.Rate8000, rate)
	assert.Equal(t, expected, received)
	assert.Equal(t, 1, began)
	assert.Equal(t, 3, cleared)

	stats := srv.Stats()
	assert.Equal(t, uint64(1), stats.Sessions)
	assert.Equal(t, uint64(1200), stats.BytesPlayed)
	assert.Empty(t, stats.Active)
}

func TestSecondStreamIsBusy(t *testing.T) {
	srv, addr := startGateway(t, &fakeSpeaker{}, nil)
	ctx := testContext(t)

	first, err := Dial(ctx, addr)
	require.NoError(t, err)
	defer first.Close()

	accepted, err := first.Start(ctx, StreamStart{SampleRate: 16000, TotalBytes: 10})
	require.NoError(t, err)
	assert.Equal(t, accepted.Session, srv.Stats().Active)

	second, err := Dial(ctx, addr)
	require.NoError(t, err)
	defer second.Close()

	_, err = second.Start(ctx, StreamStart{SampleRate: 16000})
	require.ErrorIs(t, err, ErrBusy)

	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, CodeBusy, remote.Code)
	assert.Equal(t, uint64(1), srv.Stats().Rejected)

	require.NoError(t, first.SendFrame(make([]byte, 10)))
	_, err = first.End(ctx)
	require.NoError(t, err)

	// the gateway is free again
	_, err = second.Start(ctx, StreamStart{SampleRate: 16000})
	require.NoError(t, err)
}

func TestStreamStartValidation(t *testing.T) {
	_, addr := startGateway(t, &fakeSpeaker{}, nil)
	ctx := testContext(t)

	c, err := Dial(ctx, addr)
	require.NoError(t, err)
	defer c.Close()

	tests := []struct {
		name  string
		start StreamStart
		code  string
	}{
		{"opus rejected", StreamStart{Codec: "opus", SampleRate: 16000}, CodeUnsupportedCodec},
		{"odd rate", StreamStart{Codec: CodecULaw, SampleRate: 11025}, CodeUnsupportedRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Start(ctx, tt.start)
			var remote *RemoteError
			require.ErrorAs(t, err, &remote)
			assert.Equal(t, tt.code, remote.Code)
		})
	}
}

func TestProtocolErrors(t *testing.T) {
	_, addr := startGateway(t, &fakeSpeaker{}, nil)
	ctx := testContext(t)

	c, err := Dial(ctx, addr)
	require.NoError(t, err)
	defer c.Close()

	// audio before stream/start
	require.NoError(t, c.conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3}))
	err = c.readReply(ctx, TypeStreamAck, &StreamAck{})
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, CodeNoStream, remote.Code)

	_, err = c.Start(ctx, StreamStart{SampleRate: 16000})
	require.NoError(t, err)

	// oversized frames are refused by the gateway
	require.NoError(t, c.conn.WriteMessage(websocket.BinaryMessage, make([]byte, MaxFrame+1)))
	err = c.readReply(ctx, TypeStreamAck, &StreamAck{})
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, CodeFrameTooLarge, remote.Code)

	_, err = c.Start(ctx, StreamStart{SampleRate: 16000})
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, CodeAlreadyStreaming, remote.Code)

	ack, err := c.End(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), ack.BytesPlayed)

	assert.Error(t, c.SendFrame(make([]byte, MaxFrame+1)))
}

func TestDisconnectReleasesStream(t *testing.T) {
	sp := &fakeSpeaker{}
	srv, addr := startGateway(t, sp, nil)
	ctx := testContext(t)

	c, err := Dial(ctx, addr)
	require.NoError(t, err)
	_, err = c.Start(ctx, StreamStart{SampleRate: 16000})
	require.NoError(t, err)
	require.NoError(t, c.Close())

	require.Eventually(t, func() bool { return srv.Stats().Active == "" }, 2*time.Second, 5*time.Millisecond)
}

func TestGatewayOnSimulatedSpeaker(t *testing.T) {
	line := irq.New("i2s-tx")
	monitor := &lockedBuffer{}
	dev := peripheral.NewSim(peripheral.Options{SpeakerLine: line, Monitor: monitor})
	defer dev.Close()

	_, addr := startGateway(t, dev.Speaker, line)
	assert.True(t, line.Attached())
	assert.True(t, line.Enabled())

	codes := bytes.Repeat([]byte{0x80}, 2*MaxFrame)
	ctx := testContext(t)

	c, err := Dial(ctx, addr)
	require.NoError(t, err)
	defer c.Close()

	ack, err := c.Stream(ctx, "loud", audio.Rate48000, codes)
	require.NoError(t, err)
	assert.Equal(t, int64(len(codes)), ack.BytesPlayed)

	want := ulaw.ULawToLinear(0x80)
	var loud int
	for _, s := range audio.BytesToSamples(monitor.Bytes()) {
		if s == want {
			loud++
		}
	}
	assert.Equal(t, 2*len(codes), loud, "every code played on both channels")
	assert.False(t, dev.Speaker.Running(), "speaker stops with the stream")
}

func TestPush(t *testing.T) {
	sp := &fakeSpeaker{}
	_, addr := startGateway(t, sp, nil)

	path := filepath.Join(t.TempDir(), "chime.ul")
	codes := []byte{0x00, 0x10, 0x20, 0x30, 0x90, 0xA0}
	require.NoError(t, os.WriteFile(path, codes, 0o644))

	ack, err := Push(testContext(t), addr, path, audio.Rate16000)
	require.NoError(t, err)
	assert.Equal(t, int64(len(codes)), ack.BytesPlayed)

	// µ-law input round-trips in the code domain
	_, received, _, _ := sp.snapshot()
	expected := make([]byte, len(codes)*audio.FrameSizeStereo)
	ulaw.DecodePCM16Stereo(expected, codes)
	assert.Equal(t, expected, received)
}

func TestRemoteErrorIs(t *testing.T) {
	assert.ErrorIs(t, &RemoteError{Code: CodeBusy}, ErrBusy)
	assert.NotErrorIs(t, &RemoteError{Code: CodeNoStream}, ErrBusy)
}

func TestTXTRecords(t *testing.T) {
	txt := txtRecords()
	assert.Contains(t, txt, "path=/fifoplay")
	assert.Contains(t, txt, "codec=ulaw")
	assert.Contains(t, txt, "version="+version.Version)
}
