package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"babel-relay/auth"
	"babel-relay/contract"
	"babel-relay/domain"
	"babel-relay/domain/frame"
	"babel-relay/errors"
	"babel-relay/lang"
	"babel-relay/observability"
)

// roomJoiner is the slice of the registry the dispatcher needs: resolve the
// room and run the synchronous handshake.
type roomJoiner interface {
	Join(ctx context.Context, id domain.RoomID, req domain.JoinRequest, sink contract.FrameSink) (contract.IRoomController, error)
}

type DispatcherConfig struct {
	PingInterval     time.Duration
	IdleTimeout      time.Duration
	HandshakeTimeout time.Duration
	SendBuffer       int
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.PingInterval <= 0 {
		c.PingInterval = 10 * time.Second
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 60 * time.Second
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 64
	}
	return c
}

// Dispatcher owns the websocket endpoint. One goroutine per connection reads
// frames and feeds the room controller; the paired writePump drains outbound
// frames.
type Dispatcher struct {
	log         *slog.Logger
	rooms       roomJoiner
	languages   lang.Set
	transcriber contract.ITranscriber
	tokens      *auth.TokenService
	monitor     *observability.Monitor
	validate    *validator.Validate
	cfg         DispatcherConfig
	upgrader    websocket.Upgrader
}

func NewDispatcher(
	log *slog.Logger,
	rooms roomJoiner,
	languages lang.Set,
	transcriber contract.ITranscriber,
	tokens *auth.TokenService,
	monitor *observability.Monitor,
	cfg DispatcherConfig,
) *Dispatcher {
	return &Dispatcher{
		log:         log,
		rooms:       rooms,
		languages:   languages,
		transcriber: transcriber,
		tokens:      tokens,
		monitor:     monitor,
		validate:    validator.New(),
		cfg:         cfg.withDefaults(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (d *Dispatcher) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/{room}", d.handleWS)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func (d *Dispatcher) handleWS(w http.ResponseWriter, r *http.Request) {
	roomID := strings.TrimSpace(r.PathValue("room"))
	if roomID == "" || len(roomID) > 128 {
		http.Error(w, "invalid room id", http.StatusBadRequest)
		return
	}

	ws, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		d.log.Warn("Upgrade failed", "err", err)
		return
	}

	conn := newConn(ws, d.cfg.SendBuffer, d.cfg.PingInterval, d.log)
	go conn.writePump()

	join, ok := d.handshake(conn)
	if !ok {
		return
	}

	ctrl, err := d.rooms.Join(r.Context(), domain.RoomID(roomID), domain.JoinRequest{
		ParticipantID: join.ParticipantID,
		Name:          join.Name,
		Language:      join.Language,
	}, conn)
	if err != nil {
		if he, ok := errors.AsHandshakeError(err); ok {
			conn.closeWithReason(he.Code, he.Reason)
			return
		}
		d.log.Error("Join failed", "room", roomID, "err", err)
		conn.closeWithReason(errors.CodeBadRoom, "room unavailable")
		return
	}

	d.readLoop(r.Context(), conn, ctrl, domain.RoomID(roomID), join)
}

// handshake reads and validates the first frame within the handshake window.
func (d *Dispatcher) handshake(conn *Conn) (joinFrame, bool) {
	var join joinFrame

	conn.ws.SetReadLimit(maxMessageSize)
	_ = conn.ws.SetReadDeadline(time.Now().Add(d.cfg.HandshakeTimeout))

	_, payload, err := conn.ws.ReadMessage()
	if err != nil {
		conn.Close()
		return join, false
	}
	if err := json.Unmarshal(payload, &join); err != nil {
		d.reject(conn, errors.CodeBadFrame, "first frame must be a join object")
		return join, false
	}
	if err := d.validate.Struct(join); err != nil {
		d.reject(conn, errors.CodeBadFrame, "invalid join frame")
		return join, false
	}
	if !d.languages.Contains(join.Language) {
		d.reject(conn, errors.CodeUnsupportedLanguage, "language %q is not supported", join.Language)
		return join, false
	}
	if d.tokens != nil {
		claims, err := d.tokens.Validate(join.Token)
		if err != nil || claims.ParticipantID != join.ParticipantID {
			d.reject(conn, errors.CodeBadToken, "token missing or invalid")
			return join, false
		}
	}
	return join, true
}

func (d *Dispatcher) reject(conn *Conn, code, format string, args ...any) {
	he := errors.NewHandshakeError(code, format, args...)
	d.monitor.IncrRejectedHandshakes()
	d.log.Info("Handshake rejected", "code", he.Code, "reason", he.Reason)
	conn.closeWithReason(he.Code, he.Reason)
}

// readLoop relays frames until the client leaves, the connection drops, or
// the idle timeout fires. Whatever the exit path, the participant is removed
// from the room exactly once.
func (d *Dispatcher) readLoop(ctx context.Context, conn *Conn, ctrl contract.IRoomController, roomID domain.RoomID, join joinFrame) {
	reason := "connection closed"
	defer func() {
		ctrl.Submit(domain.LeaveCommand{Room: roomID, ParticipantID: join.ParticipantID, Reason: reason})
		conn.Close()
	}()

	refresh := func() { _ = conn.ws.SetReadDeadline(time.Now().Add(d.cfg.IdleTimeout)) }
	refresh()
	conn.ws.SetPongHandler(func(string) error {
		refresh()
		return nil
	})

	for {
		_, payload, err := conn.ws.ReadMessage()
		if err != nil {
			if isTimeout(err) {
				reason = "idle timeout"
			}
			return
		}
		refresh()

		var in inboundFrame
		if err := json.Unmarshal(payload, &in); err != nil {
			_ = conn.Deliver(ctx, frame.NewError(errors.CodeBadFrame, "malformed frame"))
			continue
		}

		switch in.Type {
		case inboundChat:
			content := strings.TrimSpace(in.Content)
			if content == "" {
				_ = conn.Deliver(ctx, frame.NewError(errors.CodeBadFrame, "empty content"))
				continue
			}
			ctrl.Submit(domain.PostMessageCommand{
				Room:      roomID,
				SenderID:  join.ParticipantID,
				Content:   content,
				CreatedAt: time.Now().UTC(),
			})
		case inboundTyping:
			ctrl.Submit(domain.TypingCommand{
				Room:          roomID,
				ParticipantID: join.ParticipantID,
				IsTyping:      in.IsTyping,
			})
		case inboundVoice:
			d.handleVoice(ctx, conn, ctrl, roomID, join, in)
		case inboundLeave:
			reason = "left"
			return
		default:
			_ = conn.Deliver(ctx, frame.NewError(errors.CodeBadFrame, "unknown frame type "+in.Type))
		}
	}
}

// handleVoice transcribes an audio payload and feeds the text into the normal
// chat pipeline. The speaker gets a transcription ack so their UI can render
// what the room will see.
func (d *Dispatcher) handleVoice(ctx context.Context, conn *Conn, ctrl contract.IRoomController, roomID domain.RoomID, join joinFrame, in inboundFrame) {
	if d.transcriber == nil {
		_ = conn.Deliver(ctx, frame.NewError(errors.CodeBadFrame, errors.ErrNoTranscriber.Error()))
		return
	}

	audio, err := base64.StdEncoding.DecodeString(in.AudioData)
	if err != nil || len(audio) == 0 {
		_ = conn.Deliver(ctx, frame.NewError(errors.CodeBadFrame, "audio_data must be base64"))
		return
	}
	if kind := mimetype.Detect(audio); !strings.HasPrefix(kind.String(), "audio/") {
		_ = conn.Deliver(ctx, frame.NewError(errors.CodeBadFrame, errors.ErrNotAudio.Error()))
		return
	}

	text, detectedLang, err := d.transcriber.Transcribe(ctx, audio, join.Language)
	if err != nil {
		d.log.Warn("Transcription failed", "room", roomID, "participant", join.ParticipantID, "err", err)
		_ = conn.Deliver(ctx, frame.NewError("transcription_failed", "could not transcribe audio"))
		return
	}
	if detectedLang == "" {
		// Some backends return text only; fall back to detecting from it.
		if guessed, ok := lang.Detect(text); ok {
			detectedLang = guessed
		}
	}

	d.monitor.IncrVoiceMessages()
	_ = conn.Deliver(ctx, frame.NewTranscription(text, detectedLang))

	// The detected language rides along so the room translates from what was
	// actually spoken, not the speaker's declared language.
	ctrl.Submit(domain.PostMessageCommand{
		Room:      roomID,
		SenderID:  join.ParticipantID,
		Content:   text,
		Language:  detectedLang,
		CreatedAt: time.Now().UTC(),
	})
}

func isTimeout(err error) bool {
	type timeout interface{ Timeout() bool }
	var te timeout
	return errors.As(err, &te) && te.Timeout()
}
