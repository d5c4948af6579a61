// Package redis provides connection helpers for Redis with environment-based
// configuration, bounded retries, and a health probe.
//
// The package exists so machine runtimes that persist snapshots in Redis
// (see pkg/store) share one way of establishing and checking connections:
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	probe := redis.Healthcheck(client)
package redis
