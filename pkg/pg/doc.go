// Package pg provides PostgreSQL connection helpers with environment-based
// configuration, bounded retries, a health probe, and embedded schema
// migrations for the snapshot store.
//
// Migrate applies the fsm_snapshots table schema that pkg/store's Postgres
// adapter reads and writes:
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, log); err != nil {
//	    return err
//	}
//
// Error predicates such as IsNotFoundError and IsDuplicateKeyError keep row
// handling consistent across queries.
package pg
