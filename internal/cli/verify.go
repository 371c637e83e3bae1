package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/guardsim/internal/evidence"
)

var verifyFormat string

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().StringVarP(&verifyFormat, "format", "f", "text", "Output format (text|json)")
}

var verifyCmd = &cobra.Command{
	Use:   "verify <run>",
	Short: "Verify a run's artifacts against its evidence manifest",
	Long: "Re-hashes every artifact of a run (directory, s3:// location or run id)\n" +
		"and compares it with evidence_manifest.json. Exits 0 if valid, 1 if any\n" +
		"artifact is modified, missing or unlisted.",
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	store, err := openRun(ctx, args[0])
	if err != nil {
		return err
	}

	result, err := evidence.Verify(ctx, store)
	if err != nil {
		return err
	}

	switch verifyFormat {
	case "json":
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	default:
		fmt.Print(evidence.FormatVerify(store.Location(), result))
	}

	if !result.Valid {
		os.Exit(1)
	}
	return nil
}
