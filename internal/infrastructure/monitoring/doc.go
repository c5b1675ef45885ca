/*
Package monitoring provides metrics collection for ptyd.

# Overview

This package implements Prometheus-based metrics collection for the daemon,
tracking HTTP requests, terminal session lifecycle, pty allocation and
WebSocket fan-out. Metrics register against an injected Registerer so tests
can build as many collectors as they like.

# Features

- HTTP request metrics (latency, throughput, status)
- Session manager call metrics (duration, status)
- Session lifecycle metrics (active, created, closed by reason)
- PTY allocation metrics (attempts, exhaustion)
- Terminal throughput in bytes
- WebSocket connection metrics

All recording methods are safe on a nil *Metrics.

# Usage

	reg := monitoring.NewRegistry()
	metrics := monitoring.NewMetrics(reg)

	router.Use(monitoring.Middleware(metrics))

	timer := monitoring.NewTimer(metrics, "terminal", "create")
	// ... perform operation ...
	timer.Stop("success")

# Metrics Endpoint

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
*/
package monitoring
