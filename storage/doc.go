// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package storage provides the storage abstraction layer for the audit log.
//
// Every model attempt and every repair failure of a run is appended to an
// AuditRepository so that a failed chunk can be inspected after the fact:
// what the model returned, how it was classified, and when. The log is
// never read by the pipeline itself.
//
// # Constructor Return Type Pattern
//
// Public constructors return the interface to keep callers decoupled from
// BadgerDB:
//
//	repo, err := badger.NewAuditRepository(backend)  // returns storage.AuditRepository
//
// # Encoding
//
// Entries are stored in a compact binary form built on mus-go serializers
// (core.AuditEntryMUS). MarshalAuditEntry and UnmarshalAuditEntry are the
// only entry points backends should use.
//
// # Usage
//
//	backend, err := badger.OpenBackend("/path/to/audit", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
//	repo, err := badger.NewAuditRepository(backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer repo.Close()
//
//	entries, err := repo.ListByRun(ctx, runID)
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
