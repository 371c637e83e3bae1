// Package evidence writes the audit trail of a finished run and seals it
// with a manifest of content hashes.
//
// Build writes every artifact first, then lists and re-reads the store to
// compute the manifest, and writes evidence_manifest.json last. The manifest
// never lists itself.
package evidence

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ppiankov/guardsim/internal/artifact"
	"github.com/ppiankov/guardsim/internal/audit"
	"github.com/ppiankov/guardsim/internal/model"
	"github.com/ppiankov/guardsim/internal/runner"
	"github.com/ppiankov/guardsim/internal/snapshot"
)

// Artifact names, in write order.
const (
	ToolRegistryFile      = "tool_registry.json"
	AgentPolicyFile       = "agent_policy.json"
	TaskDefinitionsFile   = "task_definitions.json"
	ExecutionTraceFile    = "execution_trace.json"
	ViolationsSummaryFile = "violations_summary.json"
	DecisionChainFile     = "decision_chain.jsonl"
	ConfigSnapshotFile    = "config_snapshot.json"
	ExecutiveSummaryFile  = "executive_summary.md"
	ManifestFile          = "evidence_manifest.json"
)

// Manifest maps artifact names to hex-encoded SHA-256 digests.
type Manifest map[string]string

// IntegrityError means an artifact could not be read back or did not match
// what was written. No manifest is produced when it occurs.
type IntegrityError struct {
	Artifact string
	Reason   string
	Err      error
}

func (e *IntegrityError) Error() string {
	msg := fmt.Sprintf("integrity: %s: %s", e.Artifact, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *IntegrityError) Unwrap() error { return e.Err }

// Report describes a written audit trail.
type Report struct {
	RunID        string   `json:"run_id"`
	Location     string   `json:"location"`
	GeneratedAt  string   `json:"generated_at"`
	Artifacts    []string `json:"artifacts"`
	Manifest     Manifest `json:"manifest"`
	ManifestHash string   `json:"manifest_hash"`
}

// Builder writes audit trails to one store.
type Builder struct {
	store  artifact.Store
	clock  func() time.Time
	logger *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock sets the time source for the generation timestamp.
func WithClock(clock func() time.Time) Option {
	return func(b *Builder) { b.clock = clock }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// NewBuilder returns a builder writing to store.
func NewBuilder(store artifact.Store, opts ...Option) *Builder {
	b := &Builder{store: store, clock: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type pending struct {
	name string
	data []byte
}

// Build persists the run's artifacts and its manifest.
// Call it only after every task of result has finished.
func (b *Builder) Build(ctx context.Context, snap *snapshot.Snapshot, result *runner.RunResult, policyHash string) (*Report, error) {
	if snap == nil || result == nil {
		return nil, fmt.Errorf("snapshot and run result are required")
	}
	generatedAt := model.FormatTime(b.clock())
	trace := result.Trace()

	files, err := b.render(snap, result, trace, policyHash, generatedAt)
	if err != nil {
		return nil, err
	}

	written := make(map[string]string, len(files))
	for _, f := range files {
		if err := b.store.Put(ctx, f.name, f.data); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", f.name, err)
		}
		written[f.name] = Digest(f.data)
		b.logger.Debug("artifact written", "run_id", result.RunID, "artifact", f.name, "bytes", len(f.data))
	}

	// Every Put above has returned; only now is the store hashed.
	manifest, err := computeManifest(ctx, b.store, written)
	if err != nil {
		return nil, err
	}
	data, err := marshal(manifest)
	if err != nil {
		return nil, err
	}
	if err := b.store.Put(ctx, ManifestFile, data); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", ManifestFile, err)
	}

	names := make([]string, 0, len(files)+1)
	for _, f := range files {
		names = append(names, f.name)
	}
	names = append(names, ManifestFile)

	b.logger.Info("evidence written",
		"location", b.store.Location(),
		"artifacts", len(manifest),
	)
	return &Report{
		RunID:        result.RunID,
		Location:     b.store.Location(),
		GeneratedAt:  generatedAt,
		Artifacts:    names,
		Manifest:     manifest,
		ManifestHash: "sha256:" + Digest(data),
	}, nil
}

func (b *Builder) render(snap *snapshot.Snapshot, result *runner.RunResult, trace []model.ExecutionStep, policyHash, generatedAt string) ([]pending, error) {
	var files []pending
	add := func(name string, v any) error {
		data, err := marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", name, err)
		}
		files = append(files, pending{name, data})
		return nil
	}

	if err := add(ToolRegistryFile, snap.ToolRegistry); err != nil {
		return nil, err
	}
	if err := add(AgentPolicyFile, snap.AgentPolicy); err != nil {
		return nil, err
	}
	if err := add(TaskDefinitionsFile, snap.TaskDefinitions); err != nil {
		return nil, err
	}
	if err := add(ExecutionTraceFile, trace); err != nil {
		return nil, err
	}
	if err := add(ViolationsSummaryFile, result.Violations()); err != nil {
		return nil, err
	}

	chain, err := audit.EncodeChain(audit.FromSteps(result.RunID, policyHash, trace))
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", DecisionChainFile, err)
	}
	files = append(files, pending{DecisionChainFile, chain})

	if err := add(ConfigSnapshotFile, snap); err != nil {
		return nil, err
	}
	summary := ExecutiveSummary(snap.AgentPolicy, snap.TaskDefinitions, result, policyHash, generatedAt)
	files = append(files, pending{ExecutiveSummaryFile, []byte(summary)})
	return files, nil
}

// computeManifest hashes the persisted bytes of every artifact in the store.
// Each artifact written by this build must be listed and read back unchanged.
func computeManifest(ctx context.Context, store artifact.Store, written map[string]string) (Manifest, error) {
	names, err := store.List(ctx)
	if err != nil {
		return nil, &IntegrityError{Artifact: store.Location(), Reason: "cannot list artifacts", Err: err}
	}
	manifest := Manifest{}
	for _, name := range names {
		if name == ManifestFile {
			continue
		}
		data, err := store.Get(ctx, name)
		if err != nil {
			return nil, &IntegrityError{Artifact: name, Reason: "cannot read back artifact", Err: err}
		}
		manifest[name] = Digest(data)
	}
	for name, want := range written {
		got, ok := manifest[name]
		if !ok {
			return nil, &IntegrityError{Artifact: name, Reason: "written artifact not listed"}
		}
		if got != want {
			return nil, &IntegrityError{Artifact: name, Reason: "persisted bytes differ from written bytes"}
		}
	}
	return manifest, nil
}

// Digest returns the hex-encoded SHA-256 of data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func marshal(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// ReadManifest loads evidence_manifest.json from store.
func ReadManifest(ctx context.Context, store artifact.Store) (Manifest, error) {
	data, err := store.Get(ctx, ManifestFile)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			return nil, fmt.Errorf("no evidence manifest at %s", store.Location())
		}
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ManifestFile, err)
	}
	return m, nil
}
