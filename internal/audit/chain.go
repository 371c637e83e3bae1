package audit

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
)

// GenesisHash is the prev_hash of the first entry of every chain.
const GenesisHash = "sha256:0000000000000000000000000000000000000000000000000000000000000000"

// maxLine bounds one JSONL line. Entries never carry tool payloads.
const maxLine = 1 << 20

// HashLine returns "sha256:<hex>" of one encoded entry, without its newline.
func HashLine(line []byte) string {
	h := sha256.Sum256(line)
	return "sha256:" + hex.EncodeToString(h[:])
}

// chain tracks the hash of the last committed line.
type chain struct {
	tip string
}

func newChain() chain { return chain{tip: GenesisHash} }

// encode renders e as the next line. The tip moves only on advance, so a
// line that fails to persist does not break the chain.
func (c *chain) encode(e AuditEntry) ([]byte, error) {
	e.PrevHash = c.tip
	line, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("audit: marshal entry: %w", err)
	}
	return line, nil
}

func (c *chain) advance(line []byte) { c.tip = HashLine(line) }

// eachLine calls fn for every line of r, numbered from 1. fn owns line.
func eachLine(r io.Reader, fn func(n int, line []byte) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	n := 0
	for sc.Scan() {
		n++
		if err := fn(n, append([]byte(nil), sc.Bytes()...)); err != nil {
			return err
		}
	}
	return sc.Err()
}
