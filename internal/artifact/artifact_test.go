package artifact

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

func TestFileStorePutGet(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "run"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := s.Put(ctx, "a.json", []byte(`{"x":1}`)); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, "a.json")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"x":1}` {
		t.Errorf("got %q", got)
	}

	if err := s.Put(ctx, "a.json", []byte("v2")); err != nil {
		t.Fatal(err)
	}
	got, _ = s.Get(ctx, "a.json")
	if string(got) != "v2" {
		t.Errorf("overwrite: got %q", got)
	}
}

func TestFileStoreGetMissing(t *testing.T) {
	s, _ := NewFileStore(t.TempDir())
	_, err := s.Get(context.Background(), "nope.json")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFileStoreListRecursiveSorted(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewFileStore(dir)
	ctx := context.Background()
	for _, n := range []string{"z.md", "sub/b.json", "a.json"} {
		if err := s.Put(ctx, n, []byte(n)); err != nil {
			t.Fatal(err)
		}
	}
	// Leftover temp files from an interrupted write are not artifacts.
	if err := os.WriteFile(filepath.Join(dir, "c.json.tmp"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	names, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a.json", "sub/b.json", "z.md"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("got %v, want %v", names, want)
	}
}

func TestFileStoreRejectsEscapingNames(t *testing.T) {
	s, _ := NewFileStore(t.TempDir())
	for _, n := range []string{"", "/etc/passwd", "../x", "a/../../x", "."} {
		if err := s.Put(context.Background(), n, nil); err == nil {
			t.Errorf("Put(%q) should fail", n)
		}
	}
}

func TestOpenFileStoreMissing(t *testing.T) {
	if _, err := OpenFileStore(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("expected error for missing dir")
	}
}

// fakeS3 is an in-memory bucket that pages ListObjectsV2 two keys at a time.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	lists   int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[key] = data
	f.types[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	bucket := aws.ToString(in.Bucket) + "/"
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, bucket+aws.ToString(in.Prefix)) {
			keys = append(keys, strings.TrimPrefix(k, bucket))
		}
	}
	sort.Strings(keys)

	start := 0
	if in.ContinuationToken != nil {
		start, _ = strconv.Atoi(*in.ContinuationToken)
	}
	end := start + 2
	if end > len(keys) {
		end = len(keys)
	}
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(keys))}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func TestS3StoreRoundTrip(t *testing.T) {
	fake := newFakeS3()
	s := NewS3StoreWithClient(fake, "evidence", "/runs/r1/")
	ctx := context.Background()

	if got := s.Location(); got != "s3://evidence/runs/r1/" {
		t.Errorf("Location = %q", got)
	}
	if err := s.Put(ctx, "execution_trace.json", []byte("[]")); err != nil {
		t.Fatal(err)
	}
	if ct := fake.types["evidence/runs/r1/execution_trace.json"]; ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	got, err := s.Get(ctx, "execution_trace.json")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "[]" {
		t.Errorf("got %q", got)
	}
	if _, err := s.Get(ctx, "missing.json"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestS3StoreListPaginates(t *testing.T) {
	fake := newFakeS3()
	s := NewS3StoreWithClient(fake, "b", "r1")
	other := NewS3StoreWithClient(fake, "b", "r2")
	ctx := context.Background()
	for _, n := range []string{"e.md", "a.json", "c.jsonl", "b.json", "d.json"} {
		if err := s.Put(ctx, n, []byte(n)); err != nil {
			t.Fatal(err)
		}
	}
	if err := other.Put(ctx, "x.json", nil); err != nil {
		t.Fatal(err)
	}

	names, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := "a.json,b.json,c.jsonl,d.json,e.md"
	if strings.Join(names, ",") != want {
		t.Errorf("got %v, want %s", names, want)
	}
	if fake.lists != 3 {
		t.Errorf("expected 3 list pages, got %d", fake.lists)
	}
}

func TestNewStoreFS(t *testing.T) {
	dir := t.TempDir()
	st, err := NewStore(context.Background(), Config{Dir: dir}, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	fs, ok := st.(*FileStore)
	if !ok {
		t.Fatalf("expected *FileStore, got %T", st)
	}
	if fs.Dir() != filepath.Join(dir, "run-1") {
		t.Errorf("dir = %s", fs.Dir())
	}
	if _, err := os.Stat(fs.Dir()); err != nil {
		t.Errorf("run dir not created: %v", err)
	}
}

func TestNewStoreErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := NewStore(ctx, Config{Dir: t.TempDir()}, ""); err == nil {
		t.Error("expected error for empty run id")
	}
	_, err := NewStore(ctx, Config{Type: StoreTypeS3}, "r")
	if err == nil || !strings.Contains(err.Error(), "storage.s3.bucket is required") {
		t.Errorf("expected missing bucket error, got %v", err)
	}
	if _, err := NewStore(ctx, Config{Type: "gcs"}, "r"); err == nil {
		t.Error("expected unsupported type error")
	}
}

func TestOpenLocalRun(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(context.Background(), dir, S3Config{})
	if err != nil {
		t.Fatal(err)
	}
	if s.Location() != dir {
		t.Errorf("location = %q, want %q", s.Location(), dir)
	}
	if _, err := Open(context.Background(), filepath.Join(dir, "missing"), S3Config{}); err == nil {
		t.Error("expected error for missing run directory")
	}
}

func TestOpenInvalidS3Location(t *testing.T) {
	for _, loc := range []string{"s3://", "s3://bucket", "s3://bucket/", "s3://bucket//"} {
		if _, err := Open(context.Background(), loc, S3Config{}); err == nil {
			t.Errorf("Open(%q): expected error", loc)
		}
	}
}
