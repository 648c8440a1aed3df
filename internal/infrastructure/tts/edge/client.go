// Package edge implements the speech.Synthesizer interface against the Edge
// readaloud websocket endpoint. One connection is dialed per utterance; the
// server streams binary audio fragments which are concatenated into a single
// MP3 clip.
package edge

import (
	"context"
	"encoding/binary"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"tutor-server/services/chat-api/internal/domain/speech"
)

const outputFormat = "audio-24khz-48kbitrate-mono-mp3"

// Config holds the endpoint settings for the synthesis service.
type Config struct {
	Endpoint     string
	TrustedToken string
}

// Client dials the readaloud websocket per synthesis request.
type Client struct {
	cfg Config
	log zerolog.Logger
}

var _ speech.Synthesizer = (*Client)(nil)

// NewClient returns a Client for the given endpoint.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	return &Client{cfg: cfg, log: log}
}

type fragment struct {
	data []byte
	err  error
	done bool
}

// Synthesize speaks text with the given voice and rate and returns the
// concatenated audio. Zero received fragments is reported as ErrNoAudio.
func (c *Client) Synthesize(ctx context.Context, text, voiceID, rate string) ([]byte, error) {
	u, err := url.Parse(c.cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("edge: parse endpoint: %w", err)
	}
	q := u.Query()
	if c.cfg.TrustedToken != "" {
		q.Set("TrustedClientToken", c.cfg.TrustedToken)
	}
	q.Set("ConnectionId", connectionID())
	u.RawQuery = q.Encode()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), http.Header{
		"Origin": []string{"chrome-extension://jdiccldimpdaibmpdkjnbmckianbfold"},
	})
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("edge: dial synthesis websocket: %w (status %s)", err, resp.Status)
		}
		return nil, fmt.Errorf("edge: dial synthesis websocket: %w", err)
	}

	s := &session{conn: conn, fragments: make(chan fragment, 256), done: make(chan struct{})}
	defer s.close()
	go s.readLoop()

	if err := s.writeText(speechConfigMessage()); err != nil {
		return nil, fmt.Errorf("edge: send speech config: %w", err)
	}
	if err := s.writeText(ssmlMessage(text, voiceID, rate)); err != nil {
		return nil, fmt.Errorf("edge: send ssml: %w", err)
	}

	var audio []byte
	for {
		select {
		case frag := <-s.fragments:
			if frag.err != nil {
				return nil, frag.err
			}
			if frag.done {
				if len(audio) == 0 {
					return nil, speech.ErrNoAudio
				}
				return audio, nil
			}
			audio = append(audio, frag.data...)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

type session struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
	fragments chan fragment
	done      chan struct{}
}

func (s *session) writeText(msg string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, []byte(msg))
}

// deliver hands frag to the reader, or gives up once the session is
// closed. Closing conn alone cannot unblock a full fragments channel, so
// every send races against done to keep readLoop from leaking when the
// caller abandons the synthesis.
func (s *session) deliver(frag fragment) bool {
	select {
	case s.fragments <- frag:
		return true
	case <-s.done:
		return false
	}
}

func (s *session) readLoop() {
	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			s.deliver(fragment{err: fmt.Errorf("edge: read synthesis stream: %w", err)})
			return
		}

		switch msgType {
		case websocket.TextMessage:
			if strings.Contains(string(data), "Path:turn.end") {
				s.deliver(fragment{done: true})
				return
			}
			// turn.start, response and audio.metadata frames carry no audio
		case websocket.BinaryMessage:
			payload, ok := audioPayload(data)
			if ok && len(payload) > 0 {
				if !s.deliver(fragment{data: payload}) {
					return
				}
			}
		}
	}
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

// audioPayload strips the length-prefixed text header off a binary frame.
// The first two bytes are the big-endian header length; audio follows only
// when the header routes the frame to Path:audio.
func audioPayload(data []byte) ([]byte, bool) {
	if len(data) < 2 {
		return nil, false
	}
	headerLen := int(binary.BigEndian.Uint16(data[:2]))
	if len(data) < 2+headerLen {
		return nil, false
	}
	header := string(data[2 : 2+headerLen])
	if !strings.Contains(header, "Path:audio") {
		return nil, false
	}
	return data[2+headerLen:], true
}

func speechConfigMessage() string {
	return "X-Timestamp:" + timestamp() + "\r\n" +
		"Content-Type:application/json; charset=utf-8\r\n" +
		"Path:speech.config\r\n\r\n" +
		`{"context":{"synthesis":{"audio":{"metadataoptions":{"sentenceBoundaryEnabled":"false","wordBoundaryEnabled":"false"},"outputFormat":"` + outputFormat + `"}}}}`
}

func ssmlMessage(text, voiceID, rate string) string {
	ssml := fmt.Sprintf(
		`<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xml:lang='en-US'><voice name='%s'><prosody pitch='+0Hz' rate='%s' volume='+0%%'>%s</prosody></voice></speak>`,
		voiceID, rate, html.EscapeString(text),
	)
	return "X-RequestId:" + connectionID() + "\r\n" +
		"Content-Type:application/ssml+xml\r\n" +
		"X-Timestamp:" + timestamp() + "\r\n" +
		"Path:ssml\r\n\r\n" + ssml
}

func connectionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func timestamp() string {
	return time.Now().UTC().Format("Mon Jan 02 2006 15:04:05 GMT+0000 (Coordinated Universal Time)")
}
