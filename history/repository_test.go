package history

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"babel-relay/domain"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	options := badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR)
	db, err := badger.Open(options)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func storedMessage(room string, seq uint64, at time.Time) StoredMessage {
	return StoredMessage{
		ID:       uuid.New(),
		Room:     room,
		SenderID: "alice",
		Content:  "Hola",
		Language: "es",
		Sequence: seq,
		At:       at,
	}
}

func TestMessageRepository_StoreAndGet(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openTestDB(t), slog.Default(), nil)

	base := time.Now().UTC()
	// Given three messages stored in order
	for i := 0; i < 3; i++ {
		req.NoError(repo.Store(storedMessage("r1", uint64(i+1), base.Add(time.Duration(i)*time.Second))))
	}

	// When reading the room history
	messages, cursor, err := repo.GetMessages("r1", nil)

	// Then all messages come back newest first, no cursor
	req.NoError(err)
	req.Nil(cursor)
	req.Len(messages, 3)
	req.Equal(uint64(3), messages[0].Sequence)
	req.Equal(uint64(1), messages[2].Sequence)
}

func TestMessageRepository_RoomsAreIsolated(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openTestDB(t), slog.Default(), nil)

	req.NoError(repo.Store(storedMessage("r1", 1, time.Now().UTC())))
	req.NoError(repo.Store(storedMessage("r2", 1, time.Now().UTC())))

	messages, _, err := repo.GetMessages("r1", nil)
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal("r1", messages[0].Room)
}

func TestMessageRepository_CursorPagination(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openTestDB(t), slog.Default(), lo.ToPtr(2))

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		req.NoError(repo.Store(storedMessage("r1", uint64(i+1), base.Add(time.Duration(i)*time.Second))))
	}

	// First page: the two newest
	page1, cursor, err := repo.GetMessages("r1", nil)
	req.NoError(err)
	req.NotNil(cursor)
	req.Len(page1, 2)
	req.Equal(uint64(5), page1[0].Sequence)

	// Second page resumes past the cursor
	page2, _, err := repo.GetMessages("r1", cursor)
	req.NoError(err)
	req.Len(page2, 2)
	req.Equal(uint64(3), page2[0].Sequence)
}

func TestIndex_SearchScopedToRoom(t *testing.T) {
	req := require.New(t)
	index, err := OpenIndex(t.TempDir())
	req.NoError(err)
	t.Cleanup(func() { _ = index.Close() })

	msg1 := storedMessage("r1", 1, time.Now().UTC())
	msg1.Content = "the quick brown fox"
	msg2 := storedMessage("r2", 1, time.Now().UTC())
	msg2.Content = "the quick brown fox"
	req.NoError(index.IndexMessage(msg1))
	req.NoError(index.IndexMessage(msg2))

	hits, err := index.Search(context.Background(), "r1", "fox", 10)
	req.NoError(err)
	req.Len(hits, 1)
	req.Equal("r1", hits[0].Room)
	req.Equal("the quick brown fox", hits[0].Content)
}

func TestRecorder_PersistsBatch(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openTestDB(t), slog.Default(), nil)
	recorder := NewRecorder(repo, nil, 16, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = recorder.Run(ctx)
		close(done)
	}()

	evt := domain.ChatEvent{
		ID:       uuid.New(),
		Room:     "r1",
		SenderID: "alice",
		Content:  "Hello",
		Language: "en",
		Sequence: 1,
		At:       time.Now().UTC(),
	}
	recorder.Record("r1", []domain.DerivedMessage{domain.Original(evt)})

	req.Eventually(func() bool {
		messages, _, err := repo.GetMessages("r1", nil)
		return err == nil && len(messages) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
