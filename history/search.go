package history

import (
	"context"
	"fmt"

	"github.com/blugelabs/bluge"
)

// Index maintains a full-text index over stored messages. Queries come from
// the diagnostics API only; indexing happens on the recorder worker, off the
// fan-out path.
type Index struct {
	writer *bluge.Writer
}

// SearchHit is one match, newest-relevance first.
type SearchHit struct {
	ID       string  `json:"id"`
	Room     string  `json:"room"`
	SenderID string  `json:"sender_id"`
	Content  string  `json:"content"`
	Language string  `json:"language"`
	Score    float64 `json:"score"`
}

func OpenIndex(path string) (*Index, error) {
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(path))
	if err != nil {
		return nil, fmt.Errorf("opening search index: %w", err)
	}
	return &Index{writer: writer}, nil
}

func (i *Index) Close() error {
	return i.writer.Close()
}

// IndexMessage upserts one message. The document id includes the target
// language so each rendering stays searchable on its own.
func (i *Index) IndexMessage(msg StoredMessage) error {
	docID := msg.ID.String() + ":" + msg.Language
	doc := bluge.NewDocument(docID)
	doc.AddField(bluge.NewTextField("content", msg.Content).StoreValue())
	doc.AddField(bluge.NewTextField("original_content", msg.OriginalContent).StoreValue())
	doc.AddField(bluge.NewKeywordField("room", msg.Room).StoreValue())
	doc.AddField(bluge.NewKeywordField("sender_id", msg.SenderID).StoreValue())
	doc.AddField(bluge.NewKeywordField("language", msg.Language).StoreValue())
	return i.writer.Update(doc.ID(), doc)
}

// Search returns up to limit messages of one room matching the query text.
func (i *Index) Search(ctx context.Context, room, query string, limit int) ([]SearchHit, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	q := bluge.NewBooleanQuery().
		AddMust(bluge.NewTermQuery(room).SetField("room")).
		AddMust(bluge.NewMatchQuery(query).SetField("content"))

	iter, err := reader.Search(ctx, bluge.NewTopNSearch(limit, q))
	if err != nil {
		return nil, err
	}

	var hits []SearchHit
	for {
		match, err := iter.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}
		hit := SearchHit{Score: match.Score}
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.ID = string(value)
			case "room":
				hit.Room = string(value)
			case "sender_id":
				hit.SenderID = string(value)
			case "content":
				hit.Content = string(value)
			case "language":
				hit.Language = string(value)
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
