package miiquality

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics aggregates counters over every bundle an engine checked. All
// methods are safe for concurrent use by batch workers.
type Metrics struct {
	bundles atomic.Uint64
	passed  atomic.Uint64
	failed  atomic.Uint64
	timing  timing

	checks       atomic.Uint64
	checksPassed atomic.Uint64

	infos    atomic.Uint64
	warnings atomic.Uint64
	errors   atomic.Uint64

	cacheHits   atomic.Uint64
	cacheMisses atomic.Uint64

	phases sync.Map // phase name -> *phaseMetrics
}

// timing accumulates durations. min holds math.MaxInt64 until the first
// sample.
type timing struct {
	n     atomic.Int64
	total atomic.Int64
	min   atomic.Int64
	max   atomic.Int64
}

func (t *timing) reset() {
	t.n.Store(0)
	t.total.Store(0)
	t.min.Store(math.MaxInt64)
	t.max.Store(0)
}

func (t *timing) add(d time.Duration) {
	t.n.Add(1)
	t.total.Add(int64(d))
	for cur := t.min.Load(); int64(d) < cur; cur = t.min.Load() {
		if t.min.CompareAndSwap(cur, int64(d)) {
			break
		}
	}
	for cur := t.max.Load(); int64(d) > cur; cur = t.max.Load() {
		if t.max.CompareAndSwap(cur, int64(d)) {
			break
		}
	}
}

func (t *timing) avg() time.Duration {
	n := t.n.Load()
	if n == 0 {
		return 0
	}
	return time.Duration(t.total.Load() / n)
}

func (t *timing) minimum() time.Duration {
	if v := t.min.Load(); v != math.MaxInt64 {
		return time.Duration(v)
	}
	return 0
}

type phaseMetrics struct {
	timing   timing
	findings atomic.Uint64
}

// NewMetrics creates an empty Metrics.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.timing.reset()
	return m
}

// RecordReport records a bundle that was checked to completion.
func (m *Metrics) RecordReport(d time.Duration, r *QualityReport) {
	m.bundles.Add(1)
	if r.Passed {
		m.passed.Add(1)
	}
	m.timing.add(d)

	m.checks.Add(count(r.ChecksApplicable))
	m.checksPassed.Add(count(r.ChecksPassed))
	m.infos.Add(count(r.Counts.Information))
	m.warnings.Add(count(r.Counts.Warning))
	m.errors.Add(count(r.Counts.Error))
}

// RecordFailure records a bundle that was rejected or interrupted.
func (m *Metrics) RecordFailure(d time.Duration) {
	m.bundles.Add(1)
	m.failed.Add(1)
	m.timing.add(d)
}

func count(n int) uint64 {
	return uint64(max(n, 0))
}

// RecordCacheHit records an expression cache hit.
func (m *Metrics) RecordCacheHit() { m.cacheHits.Add(1) }

// RecordCacheMiss records an expression cache miss.
func (m *Metrics) RecordCacheMiss() { m.cacheMisses.Add(1) }

// RecordPhase records one run of a pipeline phase.
func (m *Metrics) RecordPhase(name string, d time.Duration, findings int) {
	v, ok := m.phases.Load(name)
	if !ok {
		pm := &phaseMetrics{}
		pm.timing.reset()
		v, _ = m.phases.LoadOrStore(name, pm)
	}
	pm := v.(*phaseMetrics)
	pm.timing.add(d)
	pm.findings.Add(count(findings))
}

// BundlesTotal returns the number of bundles processed, failed ones included.
func (m *Metrics) BundlesTotal() uint64 { return m.bundles.Load() }

// BundlesPassed returns the number of bundles without error findings.
func (m *Metrics) BundlesPassed() uint64 { return m.passed.Load() }

// BundlesFailed returns the number of bundles that could not be checked.
func (m *Metrics) BundlesFailed() uint64 { return m.failed.Load() }

// ErrorsTotal returns the number of error findings.
func (m *Metrics) ErrorsTotal() uint64 { return m.errors.Load() }

// WarningsTotal returns the number of warning findings.
func (m *Metrics) WarningsTotal() uint64 { return m.warnings.Load() }

// InfosTotal returns the number of informational findings.
func (m *Metrics) InfosTotal() uint64 { return m.infos.Load() }

// AverageBundleTime returns the mean duration per bundle.
func (m *Metrics) AverageBundleTime() time.Duration { return m.timing.avg() }

// MinBundleTime returns the shortest bundle duration, 0 before any bundle.
func (m *Metrics) MinBundleTime() time.Duration { return m.timing.minimum() }

// MaxBundleTime returns the longest bundle duration.
func (m *Metrics) MaxBundleTime() time.Duration { return time.Duration(m.timing.max.Load()) }

// CheckPassRate returns passed over applicable checks, 0 when none ran.
func (m *Metrics) CheckPassRate() float64 {
	return ratio(m.checksPassed.Load(), m.checks.Load())
}

// CacheHitRate returns the expression cache hit rate, 0 without lookups.
func (m *Metrics) CacheHitRate() float64 {
	hits := m.cacheHits.Load()
	return ratio(hits, hits+m.cacheMisses.Load())
}

func ratio(n, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}

// PhaseStats holds statistics for one pipeline phase.
type PhaseStats struct {
	Name        string        `json:"name"`
	Invocations uint64        `json:"invocations"`
	TotalTime   time.Duration `json:"totalTime"`
	AvgTime     time.Duration `json:"avgTime"`
	Findings    uint64        `json:"findings"`
}

// PhaseStats returns the statistics of the named phase.
func (m *Metrics) PhaseStats(name string) (PhaseStats, bool) {
	v, ok := m.phases.Load(name)
	if !ok {
		return PhaseStats{Name: name}, false
	}
	return v.(*phaseMetrics).stats(name), true
}

// AllPhaseStats returns the statistics of every phase, sorted by name.
func (m *Metrics) AllPhaseStats() []PhaseStats {
	var stats []PhaseStats
	m.phases.Range(func(k, v any) bool {
		stats = append(stats, v.(*phaseMetrics).stats(k.(string)))
		return true
	})
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}

func (pm *phaseMetrics) stats(name string) PhaseStats {
	return PhaseStats{
		Name:        name,
		Invocations: uint64(pm.timing.n.Load()),
		TotalTime:   time.Duration(pm.timing.total.Load()),
		AvgTime:     pm.timing.avg(),
		Findings:    pm.findings.Load(),
	}
}

// Snapshot is a point-in-time copy of the counters, as logged at the end of
// a run.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`

	BundlesTotal  uint64 `json:"bundlesTotal"`
	BundlesPassed uint64 `json:"bundlesPassed"`
	BundlesFailed uint64 `json:"bundlesFailed"`

	AvgBundleTime time.Duration `json:"avgBundleTime"`
	MinBundleTime time.Duration `json:"minBundleTime"`
	MaxBundleTime time.Duration `json:"maxBundleTime"`

	ChecksTotal   uint64  `json:"checksTotal"`
	ChecksPassed  uint64  `json:"checksPassed"`
	CheckPassRate float64 `json:"checkPassRate"`

	InfosTotal    uint64 `json:"infosTotal"`
	WarningsTotal uint64 `json:"warningsTotal"`
	ErrorsTotal   uint64 `json:"errorsTotal"`

	CacheHitRate float64 `json:"cacheHitRate"`

	Phases []PhaseStats `json:"phases,omitempty"`
}

// Snapshot returns the current counters.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Timestamp:     time.Now(),
		BundlesTotal:  m.BundlesTotal(),
		BundlesPassed: m.BundlesPassed(),
		BundlesFailed: m.BundlesFailed(),
		AvgBundleTime: m.AverageBundleTime(),
		MinBundleTime: m.MinBundleTime(),
		MaxBundleTime: m.MaxBundleTime(),
		ChecksTotal:   m.checks.Load(),
		ChecksPassed:  m.checksPassed.Load(),
		CheckPassRate: m.CheckPassRate(),
		InfosTotal:    m.InfosTotal(),
		WarningsTotal: m.WarningsTotal(),
		ErrorsTotal:   m.ErrorsTotal(),
		CacheHitRate:  m.CacheHitRate(),
		Phases:        m.AllPhaseStats(),
	}
}

// Reset clears all counters.
func (m *Metrics) Reset() {
	for _, c := range []*atomic.Uint64{
		&m.bundles, &m.passed, &m.failed,
		&m.checks, &m.checksPassed,
		&m.infos, &m.warnings, &m.errors,
		&m.cacheHits, &m.cacheMisses,
	} {
		c.Store(0)
	}
	m.timing.reset()
	m.phases.Clear()
}
