package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v9"
)

// NewESClient connects and checks the cluster answers before returning.
func NewESClient(url, user, password string) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
		Username:  user,
		Password:  password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: new client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("elasticsearch: info: %s: %s", res.Status(), body)
	}
	return client, nil
}

// ESIndexer stores each event as a document whose id is the event id, so a
// retried write overwrites instead of duplicating.
type ESIndexer struct {
	Client *elasticsearch.Client
	Index  string
}

func (x *ESIndexer) Record(ctx context.Context, e Event) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(e); err != nil {
		return fmt.Errorf("elasticsearch: encode: %w", err)
	}

	res, err := x.Client.Index(
		x.Index,
		&buf,
		x.Client.Index.WithDocumentID(e.ID),
		x.Client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch: index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch: index: %s", res.Status())
	}
	return nil
}
