package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"cv-optimizer/internal/shared/storage/object"
)

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "sessions/s1/file.pdf", want: "sessions/s1/file.pdf"},
		{name: "simple prefix", prefix: "root", key: "sessions/s1/file.pdf", want: "root/sessions/s1/file.pdf"},
		{name: "prefix trailing slash", prefix: "root/", key: "sessions/s1/file.pdf", want: "root/sessions/s1/file.pdf"},
		{name: "prefix and key slashes", prefix: "/root/", key: "/sessions/s1/file.pdf", want: "root/sessions/s1/file.pdf"},
		{name: "nested prefix", prefix: "root/sub", key: "sessions/s1/file.pdf", want: "root/sub/sessions/s1/file.pdf"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}

type fakeS3 struct {
	mu       sync.Mutex
	objects  map[string][]byte
	pageSize int
	deletes  int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, pageSize: 2}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{Message: aws.String("missing")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	for _, obj := range in.Delete.Objects {
		delete(f.objects, aws.ToString(obj.Key))
	}
	return &s3.DeleteObjectsOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
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
	if tok := aws.ToString(in.ContinuationToken); tok != "" {
		fmt.Sscanf(tok, "%d", &start)
	}
	end := start + f.pageSize
	if end > len(keys) {
		end = len(keys)
	}
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(keys))}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, s3types.Object{Key: aws.String(k)})
	}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(fmt.Sprintf("%d", end))
	}
	return out, nil
}

func TestStorePutOpenAndDeletePrefix(t *testing.T) {
	fake := newFakeS3()
	store := NewWithClient(fake, "bucket", "root/", "")
	ctx := context.Background()

	for _, key := range []string{"sessions/s1/a.pdf", "sessions/s1/b.docx", "sessions/s1/c.pdf", "sessions/s2/a.pdf"} {
		if _, err := store.Put(ctx, key, "application/pdf", strings.NewReader("data")); err != nil {
			t.Fatalf("Put %s: %v", key, err)
		}
	}
	if _, ok := fake.objects["root/sessions/s1/a.pdf"]; !ok {
		t.Fatalf("expected prefixed object key")
	}

	rc, err := store.Open(ctx, "sessions/s1/a.pdf")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = rc.Close()

	if err := store.DeletePrefix(ctx, object.SessionPrefix("s1")); err != nil {
		t.Fatalf("DeletePrefix: %v", err)
	}
	if _, err := store.Open(ctx, "sessions/s1/b.docx"); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after purge, got %v", err)
	}
	if _, err := store.Open(ctx, "sessions/s2/a.pdf"); err != nil {
		t.Fatalf("expected other session kept, got %v", err)
	}
}
