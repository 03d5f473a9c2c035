package metrics

import (
	"testing"
	"time"
)

func BenchmarkCollector_RecordTransition(b *testing.B) {
	collector := NewCollector(testConfig(), nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		collector.RecordTransition("start", "ok")
	}
}

func BenchmarkCollector_RecordHTTPRequest(b *testing.B) {
	collector := NewCollector(testConfig(), nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		collector.RecordHTTPRequest("GET", "/v1/experiments/{id}", 200, time.Millisecond)
	}
}

func BenchmarkCollector_Disabled(b *testing.B) {
	cfg := testConfig()
	cfg.Enabled = false
	collector := NewCollector(cfg, nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		collector.RecordResult(true, 0.5)
	}
}
