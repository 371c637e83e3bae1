// Package bundle packages a run's artifacts into a single zip archive.
package bundle

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/ppiankov/guardsim/internal/artifact"
)

// epoch keeps archives of the same artifacts byte-identical.
var epoch = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// Zip writes every artifact in store to w under root/. It returns the
// number of files written.
func Zip(ctx context.Context, store artifact.Store, root string, w io.Writer) (int, error) {
	names, err := store.List(ctx)
	if err != nil {
		return 0, err
	}
	zw := zip.NewWriter(w)
	for _, name := range names {
		data, err := store.Get(ctx, name)
		if err != nil {
			_ = zw.Close()
			return 0, err
		}
		f, err := zw.CreateHeader(&zip.FileHeader{
			Name:     path.Join(root, name),
			Method:   zip.Deflate,
			Modified: epoch,
		})
		if err != nil {
			_ = zw.Close()
			return 0, fmt.Errorf("failed to add %s: %w", name, err)
		}
		if _, err := f.Write(data); err != nil {
			_ = zw.Close()
			return 0, fmt.Errorf("failed to add %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("failed to finish archive: %w", err)
	}
	return len(names), nil
}
