package core

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector implements prometheus.Collector over a set of live Terab
// connections. It is the Go equivalent of runZeroInc-conniver's
// TCPInfoCollector (pkg/exporter/exporter.go): instead of reading kernel
// TCP_INFO for each tracked socket, it accumulates protocol-level counters
// that each Connection reports into it as it operates.
type Collector struct {
	mu sync.Mutex

	opened  int
	poisoned int
	bytesSent     uint64
	bytesReceived uint64

	openedDesc        *prometheus.Desc
	poisonedDesc      *prometheus.Desc
	bytesSentDesc     *prometheus.Desc
	bytesReceivedDesc *prometheus.Desc
}

// NewCollector builds a Collector. Register it with a prometheus.Registry
// (or prometheus.DefaultRegisterer) to expose the counters it accumulates.
func NewCollector() *Collector {
	return &Collector{
		openedDesc:        prometheus.NewDesc("terab_client_connections_opened_total", "Total connections successfully opened.", nil, nil),
		poisonedDesc:      prometheus.NewDesc("terab_client_connections_poisoned_total", "Total connections that transitioned to the poisoned state.", nil, nil),
		bytesSentDesc:     prometheus.NewDesc("terab_client_bytes_sent_total", "Total bytes written to Terab connections.", nil, nil),
		bytesReceivedDesc: prometheus.NewDesc("terab_client_bytes_received_total", "Total bytes read from Terab connections.", nil, nil),
	}
}

func (cl *Collector) Describe(descs chan<- *prometheus.Desc) {
	descs <- cl.openedDesc
	descs <- cl.poisonedDesc
	descs <- cl.bytesSentDesc
	descs <- cl.bytesReceivedDesc
}

func (cl *Collector) Collect(metrics chan<- prometheus.Metric) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	metrics <- prometheus.MustNewConstMetric(cl.openedDesc, prometheus.CounterValue, float64(cl.opened))
	metrics <- prometheus.MustNewConstMetric(cl.poisonedDesc, prometheus.CounterValue, float64(cl.poisoned))
	metrics <- prometheus.MustNewConstMetric(cl.bytesSentDesc, prometheus.CounterValue, float64(cl.bytesSent))
	metrics <- prometheus.MustNewConstMetric(cl.bytesReceivedDesc, prometheus.CounterValue, float64(cl.bytesReceived))
}

func (cl *Collector) observeOpen(_ *Connection) {
	cl.mu.Lock()
	cl.opened++
	cl.mu.Unlock()
}

func (cl *Collector) observePoison(_ *Connection) {
	cl.mu.Lock()
	cl.poisoned++
	cl.mu.Unlock()
}

func (cl *Collector) observeBytesSent(_ *Connection, n int) {
	cl.mu.Lock()
	cl.bytesSent += uint64(n)
	cl.mu.Unlock()
}

func (cl *Collector) observeBytesReceived(_ *Connection, n int) {
	cl.mu.Lock()
	cl.bytesReceived += uint64(n)
	cl.mu.Unlock()
}

var _ prometheus.Collector = (*Collector)(nil)
