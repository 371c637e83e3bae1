package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// VerifyResult reports a chain check. On failure, ErrorLine is the first bad line.
type VerifyResult struct {
	Valid     bool   `json:"valid"`
	Lines     int    `json:"lines"`
	Error     string `json:"error,omitempty"`
	ErrorLine int    `json:"error_line,omitempty"`
}

type brokenLink struct {
	line   int
	reason string
}

func (b *brokenLink) Error() string { return b.reason }

// Verify checks the chain of the log at path.
func Verify(path string) VerifyResult {
	f, err := os.Open(path)
	if err != nil {
		return VerifyResult{Error: fmt.Sprintf("open: %v", err)}
	}
	defer f.Close()
	return VerifyReader(f)
}

// VerifyReader checks a chain read from r. An empty chain is valid.
func VerifyReader(r io.Reader) VerifyResult {
	c := newChain()
	lines := 0
	err := eachLine(r, func(n int, line []byte) error {
		var entry AuditEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return &brokenLink{line: n, reason: fmt.Sprintf("parse error: %v", err)}
		}
		if entry.PrevHash != c.tip {
			if n == 1 {
				return &brokenLink{line: 1, reason: fmt.Sprintf("first entry prev_hash is %q, expected genesis hash", entry.PrevHash)}
			}
			return &brokenLink{line: n, reason: fmt.Sprintf("hash mismatch: expected %s, got %s", c.tip, entry.PrevHash)}
		}
		c.advance(line)
		lines = n
		return nil
	})

	var bl *brokenLink
	if errors.As(err, &bl) {
		return VerifyResult{Lines: lines, Error: bl.reason, ErrorLine: bl.line}
	}
	if err != nil {
		return VerifyResult{Lines: lines, Error: fmt.Sprintf("scan: %v", err)}
	}
	return VerifyResult{Valid: true, Lines: lines}
}
