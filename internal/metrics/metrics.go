// Package metrics exposes bedrockd's operational counters and gauges over
// Prometheus, the way the rest of the retrieved corpus instruments
// long-running network servers.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector is the narrow interface the raknet and mcpe packages record
// events through, so they never import prometheus directly and tests can
// substitute a Noop.
type Collector interface {
	SessionOpened()
	SessionClosed(reason string)
	DatagramReceived(n int)
	DatagramSent()
	FrameRetransmitted()
	DuplicateFrameSetDropped()
	SplitDropped()
	BatchSent(rawBytes, compressedBytes int)
	BatchReceived()
	ChunkStreamed()
}

// Prom is the prometheus-backed Collector registered against its own
// registry so bedrockd never pollutes the default global one.
type Prom struct {
	registry *prometheus.Registry

	sessionsOpened       prometheus.Counter
	sessionsClosed       *prometheus.CounterVec
	datagramsReceived    prometheus.Counter
	datagramBytesIn      prometheus.Counter
	datagramsSent        prometheus.Counter
	framesRetransmitted  prometheus.Counter
	duplicateFrameSets   prometheus.Counter
	splitsDropped        prometheus.Counter
	batchesSent          prometheus.Counter
	batchBytesRaw        prometheus.Counter
	batchBytesCompressed prometheus.Counter
	batchesReceived      prometheus.Counter
	chunksStreamed       prometheus.Counter
}

// New builds a Prom collector with all series registered.
func New() *Prom {
	reg := prometheus.NewRegistry()
	p := &Prom{
		registry: reg,
		sessionsOpened: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "bedrockd", Subsystem: "raknet", Name: "sessions_opened_total",
			Help: "RakNet sessions opened.",
		}),
		sessionsClosed: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "bedrockd", Subsystem: "raknet", Name: "sessions_closed_total",
			Help: "RakNet sessions closed, by reason.",
		}, []string{"reason"}),
		datagramsReceived: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "bedrockd", Subsystem: "raknet", Name: "datagrams_received_total",
			Help: "UDP datagrams received.",
		}),
		datagramBytesIn: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "bedrockd", Subsystem: "raknet", Name: "datagram_bytes_received_total",
			Help: "UDP bytes received.",
		}),
		datagramsSent: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "bedrockd", Subsystem: "raknet", Name: "datagrams_sent_total",
			Help: "UDP datagrams sent.",
		}),
		framesRetransmitted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "bedrockd", Subsystem: "raknet", Name: "frames_retransmitted_total",
			Help: "Frames retransmitted after a NACK or retransmit timeout.",
		}),
		duplicateFrameSets: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "bedrockd", Subsystem: "raknet", Name: "duplicate_frame_sets_total",
			Help: "Frame sets dropped as duplicates.",
		}),
		splitsDropped: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "bedrockd", Subsystem: "raknet", Name: "split_fragments_dropped_total",
			Help: "Split fragments dropped for exceeding resource bounds or a count mismatch.",
		}),
		batchesSent: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "bedrockd", Subsystem: "mcpe", Name: "batches_sent_total",
			Help: "Game packet batches sent.",
		}),
		batchBytesRaw: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "bedrockd", Subsystem: "mcpe", Name: "batch_bytes_raw_total",
			Help: "Uncompressed batch payload bytes sent.",
		}),
		batchBytesCompressed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "bedrockd", Subsystem: "mcpe", Name: "batch_bytes_compressed_total",
			Help: "Compressed batch payload bytes sent.",
		}),
		batchesReceived: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "bedrockd", Subsystem: "mcpe", Name: "batches_received_total",
			Help: "Game packet batches received.",
		}),
		chunksStreamed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "bedrockd", Subsystem: "mcpe", Name: "chunks_streamed_total",
			Help: "Chunk payloads streamed to clients.",
		}),
	}
	return p
}

func (p *Prom) SessionOpened()                 { p.sessionsOpened.Inc() }
func (p *Prom) SessionClosed(reason string)    { p.sessionsClosed.WithLabelValues(reason).Inc() }
func (p *Prom) DatagramReceived(n int) {
	p.datagramsReceived.Inc()
	p.datagramBytesIn.Add(float64(n))
}
func (p *Prom) DatagramSent()              { p.datagramsSent.Inc() }
func (p *Prom) FrameRetransmitted()        { p.framesRetransmitted.Inc() }
func (p *Prom) DuplicateFrameSetDropped()  { p.duplicateFrameSets.Inc() }
func (p *Prom) SplitDropped()              { p.splitsDropped.Inc() }
func (p *Prom) BatchReceived()             { p.batchesReceived.Inc() }
func (p *Prom) ChunkStreamed()             { p.chunksStreamed.Inc() }
func (p *Prom) BatchSent(rawBytes, compressedBytes int) {
	p.batchesSent.Inc()
	p.batchBytesRaw.Add(float64(rawBytes))
	p.batchBytesCompressed.Add(float64(compressedBytes))
}

// Serve starts an HTTP server exposing /metrics on addr, stopping when ctx
// is cancelled. Used only when config.Config.MetricsAddr is non-empty.
func (p *Prom) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Noop discards every event; used in tests and anywhere metrics are not
// wired up.
type Noop struct{}

func (Noop) SessionOpened()                    {}
func (Noop) SessionClosed(string)              {}
func (Noop) DatagramReceived(int)              {}
func (Noop) DatagramSent()                     {}
func (Noop) FrameRetransmitted()               {}
func (Noop) DuplicateFrameSetDropped()         {}
func (Noop) SplitDropped()                     {}
func (Noop) BatchSent(int, int)                {}
func (Noop) BatchReceived()                    {}
func (Noop) ChunkStreamed()                    {}
