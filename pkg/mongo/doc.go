// Package mongo provides MongoDB connection management with automatic
// retries, pool tuning and health checks.
//
// The package is used by the machine snapshot store backed by MongoDB, but
// the client it produces is a plain driver client and can serve any
// collection.
//
// # Usage
//
//	var cfg mongo.Config
//	if err := config.Load(&cfg); err != nil {
//		log.Fatal(err)
//	}
//
//	db, err := mongo.NewWithDatabase(ctx, cfg, "fsm")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer db.Client().Disconnect(ctx)
//
// # Health Checks
//
//	probe := mongo.Healthcheck(db.Client())
//	if err := probe(ctx); err != nil {
//		// not ready
//	}
package mongo
