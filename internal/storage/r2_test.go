package storage

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 keeps objects in memory and pages listings two keys at a time.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	deletes int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = body
	f.types[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	start := 0
	if in.ContinuationToken != nil {
		_, _ = fmt.Sscanf(*in.ContinuationToken, "%d", &start)
	}
	end := min(start+2, len(keys))

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(keys))}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(fmt.Sprint(end))
	}
	return out, nil
}

func (f *fakeS3) DeleteObjects(_ context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	for _, id := range in.Delete.Objects {
		delete(f.objects, aws.ToString(id.Key))
	}
	return &s3.DeleteObjectsOutput{}, nil
}

func TestR2Store_PutAndURL(t *testing.T) {
	fake := newFakeS3()
	store := NewR2StoreWithClient(fake, "earth-and-home", "https://cdn.example.com/")

	require.NoError(t, store.Put(context.Background(), "properties/cabin/1-a.jpg", []byte("img"), "image/jpeg"))
	assert.Equal(t, []byte("img"), fake.objects["properties/cabin/1-a.jpg"])
	assert.Equal(t, "image/jpeg", fake.types["properties/cabin/1-a.jpg"])
	assert.Equal(t, "https://cdn.example.com/properties/cabin/1-a.jpg", store.URL("properties/cabin/1-a.jpg"))

	assert.ErrorIs(t, store.Put(context.Background(), "../escape", nil, ""), ErrInvalidKey)
}

func TestR2Store_DeleteByPrefixPaginates(t *testing.T) {
	fake := newFakeS3()
	store := NewR2StoreWithClient(fake, "bucket", "https://cdn.example.com")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Put(ctx, fmt.Sprintf("properties/cabin/%d.jpg", i), []byte("x"), "image/jpeg"))
	}
	require.NoError(t, store.Put(ctx, "properties/cabin-two/keep.jpg", []byte("x"), "image/jpeg"))
	require.NoError(t, store.Put(ctx, "documents/cabin/deed.pdf", []byte("x"), "application/pdf"))

	n, err := store.DeleteByPrefix(ctx, "properties/cabin/")
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, 3, fake.deletes)

	_, kept := fake.objects["properties/cabin-two/keep.jpg"]
	assert.True(t, kept)
	_, kept = fake.objects["documents/cabin/deed.pdf"]
	assert.True(t, kept)
}

func TestNewR2Store_DefaultsEndpointFromAccount(t *testing.T) {
	store, err := NewR2Store(context.Background(), R2Config{AccountID: "acct", Bucket: "b", AccessKeyID: "k", SecretAccessKey: "s"})
	require.NoError(t, err)
	assert.Equal(t, "https://acct.r2.cloudflarestorage.com/b/x.jpg", store.URL("x.jpg"))

	_, err = NewR2Store(context.Background(), R2Config{Bucket: "b"})
	assert.Error(t, err)
}
