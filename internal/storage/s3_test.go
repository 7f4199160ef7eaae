package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryObjectAPI is an in-memory objectAPI that pages listings two keys at a time
type memoryObjectAPI struct {
	objects      map[string][]byte
	deleteCalls  int
	bucketExists bool
	created      bool
}

func newMemoryObjectAPI() *memoryObjectAPI {
	return &memoryObjectAPI{objects: map[string][]byte{}}
}

func (m *memoryObjectAPI) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *memoryObjectAPI) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := m.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *memoryObjectAPI) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(m.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (m *memoryObjectAPI) DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	m.deleteCalls++
	for _, id := range in.Delete.Objects {
		delete(m.objects, aws.ToString(id.Key))
	}
	return &s3.DeleteObjectsOutput{}, nil
}

func (m *memoryObjectAPI) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	start := 0
	if in.ContinuationToken != nil {
		start, _ = strconv.Atoi(*in.ContinuationToken)
	}
	end := min(start+2, len(keys))

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(keys))}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func (m *memoryObjectAPI) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if !m.bucketExists {
		return nil, errors.New("not found")
	}
	return &s3.HeadBucketOutput{}, nil
}

func (m *memoryObjectAPI) CreateBucket(ctx context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	m.created = true
	m.bucketExists = true
	return &s3.CreateBucketOutput{}, nil
}

func TestS3Client_PutGetDelete(t *testing.T) {
	api := newMemoryObjectAPI()
	client := &S3Client{client: api, bucket: "docs"}
	ctx := context.Background()

	require.NoError(t, client.Put(ctx, "knowledge/tenant_t1/d1/original.txt", []byte("conteúdo"), "text/plain"))

	data, err := client.Get(ctx, "knowledge/tenant_t1/d1/original.txt")
	require.NoError(t, err)
	assert.Equal(t, "conteúdo", string(data))

	require.NoError(t, client.Delete(ctx, "knowledge/tenant_t1/d1/original.txt"))

	_, err = client.Get(ctx, "knowledge/tenant_t1/d1/original.txt")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestS3Client_DeleteDirectory(t *testing.T) {
	api := newMemoryObjectAPI()
	client := &S3Client{client: api, bucket: "docs"}
	ctx := context.Background()

	for _, k := range []string{"a/1", "a/2", "a/3", "a/4", "a/5", "ab/1", "b/1"} {
		api.objects[k] = []byte("x")
	}

	require.NoError(t, client.DeleteDirectory(ctx, "a"))

	assert.Len(t, api.objects, 2)
	assert.Contains(t, api.objects, "ab/1")
	assert.Contains(t, api.objects, "b/1")
	assert.Equal(t, 1, api.deleteCalls)
}

func TestS3Client_DeleteDirectory_Empty(t *testing.T) {
	api := newMemoryObjectAPI()
	client := &S3Client{client: api, bucket: "docs"}

	require.NoError(t, client.DeleteDirectory(context.Background(), "missing/"))
	assert.Zero(t, api.deleteCalls)
}

func TestS3Client_DeleteDirectory_RefusesRoot(t *testing.T) {
	client := &S3Client{client: newMemoryObjectAPI(), bucket: "docs"}

	assert.Error(t, client.DeleteDirectory(context.Background(), ""))
	assert.Error(t, client.DeleteDirectory(context.Background(), "/"))
}

func TestS3Client_EnsureBucket(t *testing.T) {
	api := newMemoryObjectAPI()
	client := &S3Client{client: api, bucket: "docs"}

	require.NoError(t, client.EnsureBucket(context.Background()))
	assert.True(t, api.created)

	api.created = false
	require.NoError(t, client.EnsureBucket(context.Background()))
	assert.False(t, api.created)
}
