// Package search keeps an Elasticsearch copy of tasks for full-text search.
// Postgres stays the source of truth; the index is written best-effort.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-task-tracker/internal/domain/entity"
)

const requestTimeout = 3 * time.Second

type TaskIndex struct {
	es     *elasticsearch.Client
	index  string
	logger *logrus.Logger
}

func NewTaskIndex(es *elasticsearch.Client, index string, logger *logrus.Logger) *TaskIndex {
	return &TaskIndex{es: es, index: index, logger: logger}
}

type taskDoc struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func toDoc(t *entity.Task) taskDoc {
	return taskDoc{
		ID:          t.ID,
		UserID:      t.UserID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:   t.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func (d taskDoc) toEntity() *entity.Task {
	t := &entity.Task{
		ID:          d.ID,
		UserID:      d.UserID,
		Title:       d.Title,
		Description: d.Description,
		Completed:   d.Completed,
	}
	t.CreatedAt, _ = time.Parse(time.RFC3339Nano, d.CreatedAt)
	t.UpdatedAt, _ = time.Parse(time.RFC3339Nano, d.UpdatedAt)
	return t
}

// user_id must be a keyword so the owner filter is an exact term match.
const indexMapping = `{
  "mappings": {
    "properties": {
      "id":          {"type": "keyword"},
      "user_id":     {"type": "keyword"},
      "title":       {"type": "text"},
      "description": {"type": "text"},
      "completed":   {"type": "boolean"},
      "created_at":  {"type": "date"},
      "updated_at":  {"type": "date"}
    }
  }
}`

// EnsureIndex creates the index with its mapping if it does not exist yet.
func (i *TaskIndex) EnsureIndex(ctx context.Context) error {
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := i.es.Indices.Exists([]string{i.index}, i.es.Indices.Exists.WithContext(c))
	if err != nil {
		return err
	}
	_ = res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = i.es.Indices.Create(i.index,
		i.es.Indices.Create.WithContext(c),
		i.es.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && !strings.Contains(readAll(res), "resource_already_exists_exception") {
		return fmt.Errorf("create index %s: %s", i.index, res.Status())
	}
	return nil
}

// Index upserts t.
func (i *TaskIndex) Index(ctx context.Context, t *entity.Task) error {
	b, err := json.Marshal(toDoc(t))
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: i.index, DocumentID: t.ID, Body: bytes.NewReader(b), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, i.es)
	if err != nil {
		i.logger.WithError(err).WithField("task_id", t.ID).Warn("es index failed")
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		i.logger.WithField("status", res.Status()).WithField("task_id", t.ID).Warn("es index response error")
		return fmt.Errorf("index task: %s", res.Status())
	}
	return nil
}

// Delete removes the document for id. A missing document is not an error.
func (i *TaskIndex) Delete(ctx context.Context, id string) error {
	req := esapi.DeleteRequest{Index: i.index, DocumentID: id}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, i.es)
	if err != nil {
		i.logger.WithError(err).WithField("task_id", id).Warn("es delete failed")
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete task: %s", res.Status())
	}
	return nil
}

// DeleteByOwner removes every document owned by ownerID. Used when an account
// is deleted; the database cascade does not reach the index.
func (i *TaskIndex) DeleteByOwner(ctx context.Context, ownerID string) error {
	b, err := json.Marshal(map[string]any{
		"query": map[string]any{"term": map[string]any{"user_id": ownerID}},
	})
	if err != nil {
		return err
	}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := i.es.DeleteByQuery([]string{i.index}, bytes.NewReader(b),
		i.es.DeleteByQuery.WithContext(c),
		i.es.DeleteByQuery.WithConflicts("proceed"),
		i.es.DeleteByQuery.WithRefresh(true),
	)
	if err != nil {
		i.logger.WithError(err).WithField("user_id", ownerID).Warn("es delete by owner failed")
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete tasks of %s: %s", ownerID, res.Status())
	}
	return nil
}

// Search runs a multi_match over title and description, filtered to ownerID.
func (i *TaskIndex) Search(ctx context.Context, ownerID, q string, size int) ([]*entity.Task, error) {
	query := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []any{
					map[string]any{"term": map[string]any{"user_id": ownerID}},
				},
				"must": []any{
					map[string]any{"multi_match": map[string]any{
						"query":  q,
						"fields": []string{"title^2", "description"},
					}},
				},
			},
		},
		"size": size,
	}
	b, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := i.es.Search(
		i.es.Search.WithContext(c),
		i.es.Search.WithIndex(i.index),
		i.es.Search.WithBody(bytes.NewReader(b)),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("search tasks: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string  `json:"_id"`
				Source taskDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]*entity.Task, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source.toEntity())
	}
	return out, nil
}

func readAll(res *esapi.Response) string {
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(res.Body)
	return buf.String()
}
