package internal

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"babel-relay/contract"
	"babel-relay/domain"
	"babel-relay/history"
	"babel-relay/observability"
)

type fakeRegistry struct {
	rooms map[domain.RoomID]contract.IRoomController
}

func (f *fakeRegistry) GetOrCreate(id domain.RoomID) (contract.IRoomController, error) {
	return f.rooms[id], nil
}

func (f *fakeRegistry) Lookup(id domain.RoomID) (contract.IRoomController, bool) {
	ctrl, ok := f.rooms[id]
	return ctrl, ok
}

func (f *fakeRegistry) RemoveIfEmpty(domain.RoomID) {}

func (f *fakeRegistry) ListRooms() []domain.RoomID {
	out := make([]domain.RoomID, 0, len(f.rooms))
	for id := range f.rooms {
		out = append(out, id)
	}
	return out
}

type fakeController struct {
	roster []domain.Participant
}

func (f *fakeController) Join(context.Context, domain.JoinRequest, contract.FrameSink) error {
	return nil
}
func (f *fakeController) Submit(domain.Command)        {}
func (f *fakeController) Roster() []domain.Participant { return f.roster }
func (f *fakeController) Len() int                     { return len(f.roster) }

func newDiagnosticsServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	options := badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR)
	db, err := badger.Open(options)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := history.NewMessageRepository(db, log, nil)
	require.NoError(t, repo.Store(history.StoredMessage{
		ID:       uuid.New(),
		Room:     "lobby",
		SenderID: "alice",
		Content:  "Hello",
		Language: "en",
		Sequence: 1,
		At:       time.Now().UTC(),
	}))

	registry := &fakeRegistry{rooms: map[domain.RoomID]contract.IRoomController{
		"lobby": &fakeController{roster: []domain.Participant{
			{ID: "alice", Language: "en", State: domain.StateActive},
		}},
	}}

	diagnostics := NewDiagnostics(log, registry, observability.NewMonitor(), repo, nil)
	srv := httptest.NewServer(diagnostics.Routes())
	t.Cleanup(srv.Close)
	return srv
}

func TestDiagnostics_Rooms(t *testing.T) {
	req := require.New(t)
	srv := newDiagnosticsServer(t)

	resp, err := srv.Client().Get(srv.URL + "/debug/rooms")
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(200, resp.StatusCode)

	var rooms []map[string]any
	req.NoError(json.NewDecoder(resp.Body).Decode(&rooms))
	req.Len(rooms, 1)
	req.Equal("lobby", rooms[0]["room"])
	req.Equal(float64(1), rooms[0]["participants"])
}

func TestDiagnostics_RoomRoster(t *testing.T) {
	req := require.New(t)
	srv := newDiagnosticsServer(t)

	resp, err := srv.Client().Get(srv.URL + "/debug/rooms/lobby")
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(200, resp.StatusCode)

	var body struct {
		Room   string `json:"room"`
		Roster []struct {
			ParticipantID string `json:"participant_id"`
			State         string `json:"state"`
		} `json:"roster"`
	}
	req.NoError(json.NewDecoder(resp.Body).Decode(&body))
	req.Equal("lobby", body.Room)
	req.Len(body.Roster, 1)
	req.Equal("alice", body.Roster[0].ParticipantID)
	req.Equal("ACTIVE", body.Roster[0].State)
}

func TestDiagnostics_History(t *testing.T) {
	req := require.New(t)
	srv := newDiagnosticsServer(t)

	resp, err := srv.Client().Get(srv.URL + "/debug/history?room=lobby")
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(200, resp.StatusCode)

	var body struct {
		Messages []history.StoredMessage `json:"messages"`
	}
	req.NoError(json.NewDecoder(resp.Body).Decode(&body))
	req.Len(body.Messages, 1)
	req.Equal("Hello", body.Messages[0].Content)
}

func TestDiagnostics_StatsAndMissingRoom(t *testing.T) {
	req := require.New(t)
	srv := newDiagnosticsServer(t)

	resp, err := srv.Client().Get(srv.URL + "/debug/stats")
	req.NoError(err)
	_ = resp.Body.Close()
	req.Equal(200, resp.StatusCode)

	resp, err = srv.Client().Get(srv.URL + "/debug/rooms/nope")
	req.NoError(err)
	_ = resp.Body.Close()
	req.Equal(404, resp.StatusCode)
}
