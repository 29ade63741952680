package service

import (
	"amlakpro/settlement-service/pkg/logger"
	"amlakpro/settlement-service/pkg/metrics"
)

// Shared across the package tests: promauto registers on the default
// registry, so the metrics instance must be created exactly once.
var (
	testLogger  = logger.NewLogger("settlement-test")
	testMetrics = metrics.NewMetrics("test")
)
