// Package metrics counts what a run of awsop did: invocations sent, pages
// received, batch records processed, failures and declined confirmations. A
// single Metrics value is shared by every goroutine of a run and summarised
// into a Report at the end.
package metrics

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
)

// Metrics holds run-wide counters. Counters are updated atomically; latency
// is guarded by mu.
type Metrics struct {
	mu sync.RWMutex

	invocations int64 // Remote calls attempted
	pages       int64 // Pages yielded by the pagination driver
	records     int64 // Batch records processed
	errors      int64 // Failed invocations or records
	corrupt     int64 // Batch records that could not be decoded
	declined    int64 // Mutating calls rejected at the confirmation gate

	latency   time.Duration // Sum of remote call durations
	slowest   time.Duration // Longest single remote call
	startTime time.Time
}

// NewMetrics creates a Metrics value whose clock starts now.
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),
	}
}

// RecordInvocation counts one remote call and its duration.
func (m *Metrics) RecordInvocation(d time.Duration) {
	atomic.AddInt64(&m.invocations, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latency += d
	if d > m.slowest {
		m.slowest = d
	}
}

// RecordPage counts one page yielded by a paginated operation.
func (m *Metrics) RecordPage() {
	atomic.AddInt64(&m.pages, 1)
}

// RecordProcessed counts one batch record.
func (m *Metrics) RecordProcessed() {
	atomic.AddInt64(&m.records, 1)
}

// RecordError counts one failure.
func (m *Metrics) RecordError() {
	atomic.AddInt64(&m.errors, 1)
}

// RecordCorrupt counts one undecodable batch record.
func (m *Metrics) RecordCorrupt() {
	atomic.AddInt64(&m.corrupt, 1)
}

// RecordDeclined counts one mutating call the confirmation gate refused.
func (m *Metrics) RecordDeclined() {
	atomic.AddInt64(&m.declined, 1)
}

// Report is the end-of-run summary, printed as text or JSON.
type Report struct {
	StartTime      time.Time     `json:"startTime"`
	EndTime        time.Time     `json:"endTime"`
	Duration       time.Duration `json:"duration"`
	Invocations    int64         `json:"invocations"`
	Pages          int64         `json:"pages"`
	Records        int64         `json:"records"`
	Errors         int64         `json:"errors"`
	Corrupt        int64         `json:"corrupt"`
	Declined       int64         `json:"declined"`
	AverageLatency time.Duration `json:"averageLatency"`
	SlowestCall    time.Duration `json:"slowestCall"`
	Throughput     float64       `json:"throughput"` // Invocations per second
}

// GenerateReport snapshots the counters into a Report.
func (m *Metrics) GenerateReport() Report {
	endTime := time.Now()
	duration := endTime.Sub(m.startTime)
	invocations := atomic.LoadInt64(&m.invocations)

	m.mu.RLock()
	latency, slowest := m.latency, m.slowest
	m.mu.RUnlock()

	var avg time.Duration
	if invocations > 0 {
		avg = latency / time.Duration(invocations)
	}
	var throughput float64
	if duration > 0 {
		throughput = float64(invocations) / duration.Seconds()
	}

	return Report{
		StartTime:      m.startTime,
		EndTime:        endTime,
		Duration:       duration,
		Invocations:    invocations,
		Pages:          atomic.LoadInt64(&m.pages),
		Records:        atomic.LoadInt64(&m.records),
		Errors:         atomic.LoadInt64(&m.errors),
		Corrupt:        atomic.LoadInt64(&m.corrupt),
		Declined:       atomic.LoadInt64(&m.declined),
		AverageLatency: avg,
		SlowestCall:    slowest,
		Throughput:     throughput,
	}
}

// MarshalJSON renders durations as strings such as "1.5s".
func (r Report) MarshalJSON() ([]byte, error) {
	type Alias Report
	return json.Marshal(&struct {
		Alias
		Duration       string `json:"duration"`
		AverageLatency string `json:"averageLatency"`
		SlowestCall    string `json:"slowestCall"`
	}{
		Alias:          Alias(r),
		Duration:       r.Duration.String(),
		AverageLatency: r.AverageLatency.String(),
		SlowestCall:    r.SlowestCall.String(),
	})
}

// String returns the console form of the report.
func (r Report) String() string {
	return fmt.Sprintf(
		"Completed in %s\n"+
			"Invocations: %d (%d pages, avg %s, slowest %s)\n"+
			"Records: %d (%d corrupt)\n"+
			"Errors: %d, declined: %d\n"+
			"Throughput: %.2f calls/sec",
		r.Duration,
		r.Invocations, r.Pages, r.AverageLatency, r.SlowestCall,
		r.Records, r.Corrupt,
		r.Errors, r.Declined,
		r.Throughput,
	)
}
