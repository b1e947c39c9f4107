package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// JetStreamStore keeps product images in a NATS JetStream object bucket.
type JetStreamStore struct {
	conn  *nats.Conn
	store jetstream.ObjectStore
}

func NewJetStreamStore(ctx context.Context, url, bucket string) (*JetStreamStore, error) {
	conn, err := nats.Connect(url, nats.Name("plugtech-images"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	store, err := js.ObjectStore(ctx, bucket)
	if errors.Is(err, jetstream.ErrBucketNotFound) {
		store, err = js.CreateObjectStore(ctx, jetstream.ObjectStoreConfig{
			Bucket:      bucket,
			Description: "product images",
		})
	}
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("object store %s: %w", bucket, err)
	}

	return &JetStreamStore{conn: conn, store: store}, nil
}

func (s *JetStreamStore) Put(ctx context.Context, name, contentType string, data []byte) error {
	meta := jetstream.ObjectMeta{
		Name:    name,
		Headers: nats.Header{"Content-Type": []string{contentType}},
	}
	if _, err := s.store.Put(ctx, meta, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("put %s: %w", name, err)
	}
	return nil
}

func (s *JetStreamStore) Get(ctx context.Context, name string) (*Object, error) {
	res, err := s.store.Get(ctx, name)
	if errors.Is(err, jetstream.ErrObjectNotFound) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", name, err)
	}
	defer res.Close()

	data, err := io.ReadAll(res)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	info, err := res.Info()
	if err != nil {
		return nil, fmt.Errorf("info %s: %w", name, err)
	}

	ct := "application/octet-stream"
	if info.Headers != nil && info.Headers.Get("Content-Type") != "" {
		ct = info.Headers.Get("Content-Type")
	}
	return &Object{
		Name:        info.Name,
		ContentType: ct,
		Size:        info.Size,
		ModTime:     info.ModTime,
		Data:        data,
	}, nil
}

func (s *JetStreamStore) Delete(ctx context.Context, name string) error {
	err := s.store.Delete(ctx, name)
	if errors.Is(err, jetstream.ErrObjectNotFound) {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

func (s *JetStreamStore) Ready() bool {
	return s.conn != nil && s.conn.IsConnected()
}

func (s *JetStreamStore) Close() {
	s.conn.Close()
}
