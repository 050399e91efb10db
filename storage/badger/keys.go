package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/codemine/core"
)

// Key prefixes for different data types
const (
	auditRecordPrefix = "audrec"
	auditRunPrefix    = "audrun"
	auditIDSeq        = "audseq"
)

// makeAuditKey generates a key for an audit entry by ID.
func makeAuditKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", auditRecordPrefix, id))
}

// makeAuditRunKey generates a composite key for the run index.
// Format: prefix:runID\x00id
// The NUL separator keeps "run1" from matching "run10" on prefix scans.
func makeAuditRunKey(runID string, id core.ID) []byte {
	partial := makePartialAuditRunKey(runID)
	buf := make([]byte, len(partial)+8)
	offset := copy(buf, partial)
	// Write in BigEndian order so lexicographic sort follows append order
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialAuditRunKey generates a partial key for run queries.
// Format: prefix:runID\x00
func makePartialAuditRunKey(runID string) []byte {
	return []byte(auditRunPrefix + ":" + runID + "\x00")
}

// runIDFromKey extracts the run ID from a run index key.
func runIDFromKey(key []byte) (string, bool) {
	prefix := len(auditRunPrefix) + 1
	if len(key) < prefix+1+8 {
		return "", false
	}
	return string(key[prefix : len(key)-9]), true
}
