// Package store provides snapshot persistence for fsmkit machines.
//
// A snapshot captures a machine's (state, context) pair; the Store interface
// saves and loads snapshots keyed by machine ID. Five implementations are
// included: in-memory, file (JSON or YAML), Redis, Postgres and MongoDB.
//
// # Usage
//
//	st := store.NewMemoryStore()
//
//	// Persist the current state of a running machine.
//	if err := st.Save(ctx, machine.Snapshot()); err != nil {
//		log.Fatal(err)
//	}
//
//	// Later, resume a fresh machine from the saved snapshot.
//	snap, err := st.Load(ctx, machine.ID())
//	if err != nil {
//		log.Fatal(err)
//	}
//	resumed, err := def.NewMachine(fsmkit.WithSnapshot(snap))
//
// # Backends
//
// FileStore writes one file per machine into a directory:
//
//	st, err := store.NewFileStore("/var/lib/fsm", store.WithYAMLEncoding())
//
// RedisStore stores JSON strings with an optional TTL:
//
//	st := store.NewRedisStore(client, store.WithTTL(24*time.Hour))
//
// PostgresStore uses the fsm_snapshots table created by the pg package
// migrations; MongoStore upserts one document per machine.
//
// All backends return ErrSnapshotNotFound for missing IDs, so callers can
// treat them interchangeably.
package store
