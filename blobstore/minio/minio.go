// Package minio provides an artifact Store backed by MinIO or other
// S3-compatible storage via the MinIO client.
package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/hupe1980/wirepatch/blobstore"
)

// Store implements blobstore.Store for MinIO. One object per artifact
// version, keyed by the hex version token under a root prefix.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewStore creates a new MinIO artifact store.
// rootPrefix is prepended to all keys (e.g. "artifacts/").
func NewStore(client *minio.Client, bucket, rootPrefix string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		prefix: rootPrefix,
	}
}

func (s *Store) key(token uint64) string {
	return path.Join(s.prefix, fmt.Sprintf("%016x.bin", token))
}

// Get returns the artifact bytes for token.
func (s *Store) Get(ctx context.Context, token uint64) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.key(token), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
			return nil, blobstore.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Put uploads the artifact bytes for token.
func (s *Store) Put(ctx context.Context, token uint64, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.key(token), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	return err
}

// Delete removes the artifact for token.
func (s *Store) Delete(ctx context.Context, token uint64) error {
	err := s.client.RemoveObject(ctx, s.bucket, s.key(token), minio.RemoveObjectOptions{})
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
			return nil // Already gone
		}
		return err
	}
	return nil
}

// List returns the tokens of all stored artifacts under the prefix.
func (s *Store) List(ctx context.Context) ([]uint64, error) {
	var tokens []uint64
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		token, ok := parseTokenKey(obj.Key)
		if !ok {
			continue
		}
		tokens = append(tokens, token)
	}

	sort.Slice(tokens, func(i, j int) bool { return tokens[i] < tokens[j] })
	return tokens, nil
}

func parseTokenKey(key string) (uint64, bool) {
	base := path.Base(key)
	if !strings.HasSuffix(base, ".bin") || len(base) != 16+len(".bin") {
		return 0, false
	}
	token, err := strconv.ParseUint(strings.TrimSuffix(base, ".bin"), 16, 64)
	if err != nil {
		return 0, false
	}
	return token, true
}
