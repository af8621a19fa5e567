package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v9"
)

const defaultSearchSize = 50

type Elastic struct {
	ES    *elasticsearch.Client
	Index string
}

func NewElasticClient(url, user, password string) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
		Username:  user,
		Password:  password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}
	return client, nil
}

// Ping checks that the cluster answers; used once at startup.
func (e *Elastic) Ping(ctx context.Context) error {
	res, err := e.ES.Info(e.ES.Info.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("elasticsearch info: %s: %s", res.Status(), body)
	}
	return nil
}

func (e *Elastic) Record(ctx context.Context, entry Entry) error {
	entry = Stamp(ctx, entry)

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(entry); err != nil {
		return fmt.Errorf("audit encode: %w", err)
	}

	res, err := e.ES.Index(e.Index, &buf, e.ES.Index.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("audit index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("audit index: %s", res.Status())
	}
	return nil
}

func (e *Elastic) Search(ctx context.Context, q Query) (int64, []Entry, error) {
	size := q.Size
	if size <= 0 {
		size = defaultSearchSize
	}
	body := map[string]any{
		"query": map[string]any{
			"term": map[string]any{"user_id": q.UserID},
		},
		"sort": []any{
			map[string]any{"@timestamp": map[string]any{"order": "desc"}},
		},
		"from": q.From,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("audit search: %w", err)
	}

	res, err := e.ES.Search(
		e.ES.Search.WithContext(ctx),
		e.ES.Search.WithIndex(e.Index),
		e.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("audit search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("audit search: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source Entry `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("audit search decode: %w", err)
	}

	entries := make([]Entry, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		entries[i] = hit.Source
	}
	return r.Hits.Total.Value, entries, nil
}
