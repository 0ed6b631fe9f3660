// Package qbit provides resilient access to a pair of qBittorrent instances.
//
// The package wraps the autobrr/go-qbittorrent library with health-probed
// failover: submissions go to the primary instance when it is reachable,
// fall back to the secondary, and land in a durable on-disk queue when both
// are down. Nothing handed to AddItems is ever silently dropped.
//
// # Usage
//
//	primary := qbit.NewEndpoint("primary", url, user, pass, logger)
//	secondary := qbit.NewEndpoint("secondary", url2, user2, pass2, logger)
//	client := qbit.NewResilientClient(primary, secondary, queueStore, logger)
//
//	result, err := client.AddItems(ctx, magnets, "/audiobooks")
//	// result.Delivered, result.Failed, result.Queued partition the input
//
//	// Later, once an instance is back:
//	recovered, failed, err := client.ProcessQueue(ctx)
package qbit
