// Package health exposes the latest check severity over the standard gRPC
// health protocol (grpc.health.v1.Health) so orchestrators and load
// balancers can probe a watch-mode checker directly.
package health
