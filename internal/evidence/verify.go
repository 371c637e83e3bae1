package evidence

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/guardsim/internal/artifact"
)

// VerifyResult reports how a run directory compares with its manifest.
type VerifyResult struct {
	Valid         bool     `json:"valid"`
	Checked       int      `json:"checked"`
	Mismatched    []string `json:"mismatched,omitempty"`
	Missing       []string `json:"missing,omitempty"`
	Unlisted      []string `json:"unlisted,omitempty"`
	SelfReference bool     `json:"self_reference,omitempty"`
}

// Verify re-hashes every artifact in store against evidence_manifest.json.
// An error means the manifest itself could not be read.
func Verify(ctx context.Context, store artifact.Store) (*VerifyResult, error) {
	manifest, err := ReadManifest(ctx, store)
	if err != nil {
		return nil, err
	}
	names, err := store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}

	res := &VerifyResult{}
	listed := make([]string, 0, len(manifest))
	for name := range manifest {
		listed = append(listed, name)
	}
	sort.Strings(listed)

	for _, name := range listed {
		if name == ManifestFile {
			res.SelfReference = true
			continue
		}
		res.Checked++
		data, err := store.Get(ctx, name)
		if err != nil {
			if errors.Is(err, artifact.ErrNotFound) {
				res.Missing = append(res.Missing, name)
				continue
			}
			return nil, err
		}
		if Digest(data) != manifest[name] {
			res.Mismatched = append(res.Mismatched, name)
		}
	}
	for _, name := range names {
		if name == ManifestFile {
			continue
		}
		if _, ok := manifest[name]; !ok {
			res.Unlisted = append(res.Unlisted, name)
		}
	}

	res.Valid = !res.SelfReference && len(res.Mismatched) == 0 && len(res.Missing) == 0 && len(res.Unlisted) == 0
	return res, nil
}

// FormatVerify renders a verification result as text.
func FormatVerify(location string, r *VerifyResult) string {
	var b strings.Builder
	if r.Valid {
		fmt.Fprintf(&b, "Evidence valid: %s (%d artifacts)\n", location, r.Checked)
		return b.String()
	}
	fmt.Fprintf(&b, "Evidence INVALID: %s\n", location)
	for _, n := range r.Mismatched {
		fmt.Fprintf(&b, "  MISMATCH  %s\n", n)
	}
	for _, n := range r.Missing {
		fmt.Fprintf(&b, "  MISSING   %s\n", n)
	}
	for _, n := range r.Unlisted {
		fmt.Fprintf(&b, "  UNLISTED  %s\n", n)
	}
	if r.SelfReference {
		fmt.Fprintf(&b, "  SELF-REF  %s lists itself\n", ManifestFile)
	}
	return b.String()
}
