// Package s3 provides an artifact Store backed by Amazon S3 or any
// S3-compatible endpoint reachable through the AWS SDK.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/hupe1980/wirepatch/blobstore"
)

// Store implements blobstore.Store for S3. One object per artifact
// version, keyed by the hex version token under a root prefix.
type Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewStore creates a new S3 artifact store.
// rootPrefix is prepended to all keys (e.g. "artifacts/").
func NewStore(client *s3.Client, bucket, rootPrefix string) *Store {
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
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(token)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, blobstore.ErrNotFound
		}
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return nil, blobstore.ErrNotFound
		}
		return nil, err
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// Put uploads the artifact bytes for token.
func (s *Store) Put(ctx context.Context, token uint64, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(token)),
		Body:   bytes.NewReader(data),
	})
	return err
}

// Delete removes the artifact for token. Deleting a missing object is
// not an error in S3, matching the Store contract.
func (s *Store) Delete(ctx context.Context, token uint64) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(token)),
	})
	return err
}

// List returns the tokens of all stored artifacts under the prefix.
func (s *Store) List(ctx context.Context) ([]uint64, error) {
	var tokens []uint64

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			token, ok := parseTokenKey(*obj.Key)
			if !ok {
				continue
			}
			tokens = append(tokens, token)
		}
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
