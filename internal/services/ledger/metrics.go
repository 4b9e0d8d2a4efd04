package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// NoopMetricsCollector is a no-op implementation of MetricsCollector
type NoopMetricsCollector struct{}

func (n *NoopMetricsCollector) RecordSettlement(string, string, time.Duration) {}
func (n *NoopMetricsCollector) RecordConflictRetry(string)                     {}
func (n *NoopMetricsCollector) RecordVolume(string, decimal.Decimal)           {}
