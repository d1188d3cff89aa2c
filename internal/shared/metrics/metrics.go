package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	submissionsMu    sync.Mutex
	submissionsTotal = map[string]uint64{}

	submissionsBlockedTotal atomic.Uint64
	recordsDeletedTotal     atomic.Uint64
	listRendersTotal        atomic.Uint64
	searchSupersededTotal   atomic.Uint64

	submitDuration = newHistogram([]float64{50, 100, 250, 500, 750, 1000, 2000, 5000})
)

// IncSubmission counts a persisted record by status.
func IncSubmission(status string) {
	submissionsMu.Lock()
	submissionsTotal[status]++
	submissionsMu.Unlock()
}

// IncSubmissionBlocked counts submissions stopped by validation.
func IncSubmissionBlocked() {
	submissionsBlockedTotal.Add(1)
}

// IncRecordDeleted counts records removed from a store.
func IncRecordDeleted() {
	recordsDeletedTotal.Add(1)
}

// IncListRender counts debounced record list renders.
func IncListRender() {
	listRendersTotal.Add(1)
}

// IncSearchSuperseded counts search requests replaced before they rendered.
func IncSearchSuperseded() {
	searchSupersededTotal.Add(1)
}

// ObserveSubmitDurationMs records an end-to-end submit duration in milliseconds.
func ObserveSubmitDurationMs(value float64) {
	submitDuration.Observe(max(0, value))
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeLabeledCounter(&buf, "resume_submissions_total", "Records persisted by status", "status", snapshotSubmissions())
	writeCounter(&buf, "resume_submissions_blocked_total", "Submissions blocked by validation", submissionsBlockedTotal.Load())
	writeCounter(&buf, "resume_records_deleted_total", "Records deleted", recordsDeletedTotal.Load())
	writeCounter(&buf, "resume_list_renders_total", "Debounced record list renders", listRendersTotal.Load())
	writeCounter(&buf, "resume_search_superseded_total", "Search requests superseded inside the debounce window", searchSupersededTotal.Load())
	writeHistogram(&buf, "resume_submit_duration_ms", "Submit duration in milliseconds", submitDuration.Snapshot())
	return buf.String()
}

func snapshotSubmissions() map[string]uint64 {
	submissionsMu.Lock()
	defer submissionsMu.Unlock()
	out := make(map[string]uint64, len(submissionsTotal))
	for k, v := range submissionsTotal {
		out[k] = v
	}
	return out
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeLabeledCounter(buf *bytes.Buffer, name, help, label string, values map[string]uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(buf, "%s{%s=%q} %d\n", name, label, k, values[k])
	}
}

// writeHistogram emits cumulative buckets; Observe stores each value in its first bucket only.
func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
