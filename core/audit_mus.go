package core

import (
	"time"

	mus "github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// Binary serializers for values persisted in the audit log.
var (
	IDMUS         = idMUS{}
	AuditEntryMUS = auditEntryMUS{}
)

var (
	_ mus.Serializer[ID]         = IDMUS
	_ mus.Serializer[AuditEntry] = AuditEntryMUS
)

type idMUS struct{}

func (idMUS) Marshal(v ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (idMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	u, n, err := varint.Uint64.Unmarshal(bs)
	return ID(u), n, err
}

func (idMUS) Size(v ID) (size int) {
	return varint.Uint64.Size(uint64(v))
}

func (idMUS) Skip(bs []byte) (n int, err error) {
	return varint.Uint64.Skip(bs)
}

// auditEntryMUS encodes fields in declaration order. Timestamps are stored
// as Unix microseconds in UTC.
type auditEntryMUS struct{}

func (auditEntryMUS) Marshal(v AuditEntry, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.RunID, bs[n:])
	n += ord.String.Marshal(v.Chunk.File, bs[n:])
	n += varint.Int.Marshal(v.Chunk.Index, bs[n:])
	n += IDMUS.Marshal(v.Fingerprint, bs[n:])
	n += varint.Int.Marshal(v.Attempt, bs[n:])
	n += varint.Int.Marshal(int(v.Outcome), bs[n:])
	n += ord.String.Marshal(v.Text, bs[n:])
	n += ord.String.Marshal(v.Error, bs[n:])
	n += varint.Int64.Marshal(timestampMicros(v.Timestamp), bs[n:])
	return
}

func (auditEntryMUS) Unmarshal(bs []byte) (v AuditEntry, n int, err error) {
	var n1 int
	if v.Id, n1, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	n += n1
	if v.RunID, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Chunk.File, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Chunk.Index, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Fingerprint, n1, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Attempt, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	var outcome int
	if outcome, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	v.Outcome = Outcome(outcome)
	n += n1
	if v.Text, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Error, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	var micros int64
	if micros, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if micros != 0 {
		v.Timestamp = time.UnixMicro(micros).UTC()
	}
	return
}

func (auditEntryMUS) Size(v AuditEntry) (size int) {
	size = IDMUS.Size(v.Id)
	size += ord.String.Size(v.RunID)
	size += ord.String.Size(v.Chunk.File)
	size += varint.Int.Size(v.Chunk.Index)
	size += IDMUS.Size(v.Fingerprint)
	size += varint.Int.Size(v.Attempt)
	size += varint.Int.Size(int(v.Outcome))
	size += ord.String.Size(v.Text)
	size += ord.String.Size(v.Error)
	size += varint.Int64.Size(timestampMicros(v.Timestamp))
	return
}

func (auditEntryMUS) Skip(bs []byte) (n int, err error) {
	skips := []func([]byte) (int, error){
		IDMUS.Skip,
		ord.String.Skip,
		ord.String.Skip,
		varint.Int.Skip,
		IDMUS.Skip,
		varint.Int.Skip,
		varint.Int.Skip,
		ord.String.Skip,
		ord.String.Skip,
		varint.Int64.Skip,
	}
	for _, skip := range skips {
		n1, err := skip(bs[n:])
		n += n1
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func timestampMicros(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}
