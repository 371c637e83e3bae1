package cli

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/guardsim/internal/bundle"
)

var exportOutput string

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Zip file to write (default guardsim_<run>.zip)")
}

var exportCmd = &cobra.Command{
	Use:   "export <run>",
	Short: "Package a run's artifacts into a zip archive",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	store, err := openRun(ctx, args[0])
	if err != nil {
		return err
	}

	// The last path segment of a run location is its run id.
	root := path.Base(strings.TrimSuffix(strings.ReplaceAll(store.Location(), "\\", "/"), "/"))
	out := exportOutput
	if out == "" {
		out = "guardsim_" + root + ".zip"
	}

	f, err := os.OpenFile(out, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	n, err := bundle.Zip(ctx, store, root, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(out)
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Printf("Exported %d artifacts from %s to %s\n", n, store.Location(), out)
	return nil
}
