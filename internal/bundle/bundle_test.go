package bundle

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/ppiankov/guardsim/internal/artifact"
)

func TestZipContainsEveryArtifact(t *testing.T) {
	store, err := artifact.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	files := map[string]string{
		"execution_trace.json":   "[]",
		"executive_summary.md":   "# Summary",
		"evidence_manifest.json": "{}",
	}
	for n, d := range files {
		if err := store.Put(ctx, n, []byte(d)); err != nil {
			t.Fatal(err)
		}
	}

	var buf bytes.Buffer
	n, err := Zip(ctx, store, "run-1", &buf)
	if err != nil {
		t.Fatalf("Zip: %v", err)
	}
	if n != len(files) {
		t.Errorf("wrote %d files, want %d", n, len(files))
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}
	if len(zr.File) != len(files) {
		t.Fatalf("archive has %d entries", len(zr.File))
	}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, _ := io.ReadAll(rc)
		_ = rc.Close()
		want, ok := files[f.Name[len("run-1/"):]]
		if !ok || string(data) != want {
			t.Errorf("%s: got %q", f.Name, data)
		}
	}
}

func TestZipIsReproducible(t *testing.T) {
	store, _ := artifact.NewFileStore(t.TempDir())
	ctx := context.Background()
	_ = store.Put(ctx, "a.json", []byte(`{"a":1}`))

	var first, second bytes.Buffer
	if _, err := Zip(ctx, store, "r", &first); err != nil {
		t.Fatal(err)
	}
	if _, err := Zip(ctx, store, "r", &second); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Error("archives of the same artifacts differ")
	}
}
