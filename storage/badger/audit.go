package badger

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/codemine/core"
	"github.com/poiesic/codemine/storage"
)

// AuditRepository implements storage.AuditRepository for BadgerDB.
type AuditRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.AuditRepository = (*AuditRepository)(nil)

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(backend *Backend) (storage.AuditRepository, error) {
	return newAuditRepository(backend)
}

func newAuditRepository(backend *Backend) (*AuditRepository, error) {
	idSeq, err := backend.GetSequence(auditIDSeq)
	if err != nil {
		return nil, err
	}

	return &AuditRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *AuditRepository) Close() error {
	return r.idSeq.Release()
}

// Append adds one or more entries to the log.
func (r *AuditRepository) Append(ctx context.Context, entries ...*core.AuditEntry) ([]*core.AuditEntry, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return err
			}

			nextID, err := r.idSeq.Next()
			if err != nil {
				return err
			}
			// BadgerDB sequences can return 0 on first call, so we skip it
			if nextID == 0 {
				nextID, err = r.idSeq.Next()
				if err != nil {
					return err
				}
			}
			entry.Id = core.ID(nextID)

			if entry.Timestamp.IsZero() {
				entry.Timestamp = time.Now().UTC()
			}

			// Store primary record
			if err := tx.Set(makeAuditKey(entry.Id), storage.MarshalAuditEntry(entry)); err != nil {
				return err
			}

			// Update run index
			runKey := makeAuditRunKey(entry.RunID, entry.Id)
			if err := tx.Set(runKey, storage.MarshalID(entry.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return entries, err
}

// Get retrieves a single entry by ID.
func (r *AuditRepository) Get(ctx context.Context, id core.ID) (*core.AuditEntry, error) {
	var entry *core.AuditEntry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		entry, err = readAuditEntry(tx, id)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ListByRun retrieves every entry of a run in append order.
func (r *AuditRepository) ListByRun(ctx context.Context, runID string) ([]*core.AuditEntry, error) {
	return r.list(ctx, runID, func(*core.AuditEntry) bool { return true })
}

// ListByChunk retrieves the entries of one chunk within a run.
func (r *AuditRepository) ListByChunk(ctx context.Context, runID string, chunk core.ChunkRef) ([]*core.AuditEntry, error) {
	return r.list(ctx, runID, func(e *core.AuditEntry) bool { return e.Chunk == chunk })
}

func (r *AuditRepository) list(ctx context.Context, runID string, keep func(*core.AuditEntry) bool) ([]*core.AuditEntry, error) {
	var entries []*core.AuditEntry

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialAuditRunKey(runID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var id core.ID
			err := iter.Item().Value(func(val []byte) error {
				var err error
				id, err = storage.UnmarshalID(val)
				return err
			})
			if err != nil {
				return err
			}

			entry, err := readAuditEntry(tx, id)
			if err != nil {
				return err
			}
			if keep(entry) {
				entries = append(entries, entry)
			}
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Runs lists the distinct run IDs in the log.
func (r *AuditRepository) Runs(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(auditRunPrefix + ":")
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if runID, ok := runIDFromKey(iter.Item().Key()); ok {
				seen[runID] = struct{}{}
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	runs := make([]string, 0, len(seen))
	for runID := range seen {
		runs = append(runs, runID)
	}
	sort.Strings(runs)
	return runs, nil
}

// readAuditEntry reads an entry within a transaction.
func readAuditEntry(tx *badger.Txn, id core.ID) (*core.AuditEntry, error) {
	item, err := tx.Get(makeAuditKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	var entry *core.AuditEntry
	err = item.Value(func(val []byte) error {
		var err error
		entry, err = storage.UnmarshalAuditEntry(val)
		return err
	})
	return entry, err
}
