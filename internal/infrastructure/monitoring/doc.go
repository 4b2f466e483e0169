/*
Package monitoring provides Prometheus metrics for the backend.

# Overview

Metrics are registered on a private registry owned by each Metrics value,
tracking HTTP requests, registry operations, manifest cache efficiency,
area mutations and theme activations.

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Time operations
	timer := monitoring.NewTimer(metrics, "area", "add")
	err := doWork()
	timer.Stop(err)
*/
package monitoring
