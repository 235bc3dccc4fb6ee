package telemetry

import (
	"log/slog"
	"net/http"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/monstersync/monstersync/agent/internal/push"
)

const namespace = "monstersync_push_"

// StatsSource is implemented by push.Service.
type StatsSource interface {
	Stats() push.Stats
}

// Handler returns an http.Handler that serves src's counters.
func Handler(src StatsSource) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		format := expfmt.NewFormat(expfmt.TypeTextPlain)
		w.Header().Set("Content-Type", string(format))
		enc := expfmt.NewEncoder(w, format)
		for _, mf := range Families(src.Stats()) {
			if err := enc.Encode(mf); err != nil {
				slog.Warn("telemetry: encode failed", "metric", mf.GetName(), "err", err)
				return
			}
		}
	})
}

// Families converts st into metric families.
func Families(st push.Stats) []*dto.MetricFamily {
	running := 0.0
	if st.Running {
		running = 1
	}
	lastPush := 0.0
	if !st.LastPush.IsZero() {
		lastPush = float64(st.LastPush.UnixNano()) / 1e9
	}

	return []*dto.MetricFamily{
		gauge("running", "Whether a push worker is alive.", running),
		gauge("cached_slots", "Monster slots in the snapshot cache.", float64(st.Cached)),
		gauge("pending_updates", "Queued updates not yet drained.", float64(st.Pending)),
		gauge("retries", "Consecutive failed sends.", float64(st.Retries)),
		counter("accepted_total", "Updates queued for sending.", float64(st.Accepted)),
		counter("deduplicated_total", "Updates dropped as identical to the cached value.", float64(st.Deduplicated)),
		counter("batches_total", "Batches sent successfully.", float64(st.Batches)),
		counter("monsters_total", "Monsters sent in successful batches.", float64(st.Monsters)),
		counter("failures_total", "Failed batch sends.", float64(st.Failures)),
		{
			Name: ptr(namespace + "worker_exits_total"),
			Help: ptr("Push worker exits by reason."),
			Type: dto.MetricType_COUNTER.Enum(),
			Metric: []*dto.Metric{
				labeledCounter("reason", "cancelled", float64(st.Cancelled)),
				labeledCounter("reason", "exhausted", float64(st.Exhausted)),
			},
		},
		gauge("last_success_seconds", "Unix time of the last successful send.", lastPush),
	}
}

func gauge(name, help string, v float64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   ptr(namespace + name),
		Help:   ptr(help),
		Type:   dto.MetricType_GAUGE.Enum(),
		Metric: []*dto.Metric{{Gauge: &dto.Gauge{Value: ptr(v)}}},
	}
}

func counter(name, help string, v float64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   ptr(namespace + name),
		Help:   ptr(help),
		Type:   dto.MetricType_COUNTER.Enum(),
		Metric: []*dto.Metric{{Counter: &dto.Counter{Value: ptr(v)}}},
	}
}

func labeledCounter(label, value string, v float64) *dto.Metric {
	return &dto.Metric{
		Label:   []*dto.LabelPair{{Name: ptr(label), Value: ptr(value)}},
		Counter: &dto.Counter{Value: ptr(v)},
	}
}

func ptr[T any](v T) *T { return &v }
