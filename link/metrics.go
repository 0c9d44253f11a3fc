package link

import (
	"sync/atomic"
)

// Metrics contains atomic counters for one link driver.
// Counters can back a prometheus CounterFunc directly.
type Metrics struct {
	// TransferCount indicates the number of duplex transfers performed.
	TransferCount atomic.Uint64
	// RequestCount indicates the number of request frames sent.
	RequestCount atomic.Uint64
	// ResponseCount indicates the number of responses read successfully.
	ResponseCount atomic.Uint64
	// BusyWaitCount indicates how many polls found the chip busy or not ready.
	BusyWaitCount atomic.Uint64
	// ChunkSendCount indicates the number of encrypted-command chunks sent.
	ChunkSendCount atomic.Uint64
	// CRCErrorCount indicates the number of responses rejected for bad CRC.
	CRCErrorCount atomic.Uint64
	// ContinuationCount indicates the number of RES_CONT continuations read.
	ContinuationCount atomic.Uint64
	// TimeoutCount indicates the number of exchanges that exhausted retries.
	TimeoutCount atomic.Uint64
	// AlarmCount indicates how many polls observed the alarm state.
	AlarmCount atomic.Uint64
}

func (m *Metrics) incTransferCount() {
	m.TransferCount.Add(1)
}

func (m *Metrics) incRequestCount() {
	m.RequestCount.Add(1)
}

func (m *Metrics) incResponseCount() {
	m.ResponseCount.Add(1)
}

func (m *Metrics) incBusyWaitCount() {
	m.BusyWaitCount.Add(1)
}

func (m *Metrics) incChunkSendCount() {
	m.ChunkSendCount.Add(1)
}

func (m *Metrics) incCRCErrorCount() {
	m.CRCErrorCount.Add(1)
}

func (m *Metrics) incContinuationCount() {
	m.ContinuationCount.Add(1)
}

func (m *Metrics) incTimeoutCount() {
	m.TimeoutCount.Add(1)
}

func (m *Metrics) incAlarmCount() {
	m.AlarmCount.Add(1)
}
