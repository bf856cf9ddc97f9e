package send

import (
	"crypto/tls"
	"net/http/httptrace"
	"sync"
	"time"

	"go.followtheprocess.codes/snip/internal/model"
)

// tracer records the timestamps of each phase of a request.
//
// The transport may call hooks from other goroutines, hence the lock.
type tracer struct {
	start     time.Time
	getConn   time.Time
	dnsStart  time.Time
	dnsDone   time.Time
	connStart time.Time
	connDone  time.Time
	tlsStart  time.Time
	tlsDone   time.Time
	gotConn   time.Time
	wrote     time.Time
	firstByte time.Time
	end       time.Time
	mu        sync.Mutex
	reused    bool
}

func newTracer() *tracer {
	return &tracer{start: time.Now()}
}

// stamp records the current time into field.
func (t *tracer) stamp(field *time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	*field = time.Now()
}

// stampOnce records the current time into field only if it's still zero, for
// hooks that fire more than once e.g. dialing multiple addresses.
func (t *tracer) stampOnce(field *time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if field.IsZero() {
		*field = time.Now()
	}
}

func (t *tracer) trace() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		GetConn: func(string) { t.stampOnce(&t.getConn) },
		GotConn: func(info httptrace.GotConnInfo) {
			t.mu.Lock()
			defer t.mu.Unlock()

			t.gotConn = time.Now()
			t.reused = info.Reused
		},
		DNSStart:             func(httptrace.DNSStartInfo) { t.stampOnce(&t.dnsStart) },
		DNSDone:              func(httptrace.DNSDoneInfo) { t.stamp(&t.dnsDone) },
		ConnectStart:         func(string, string) { t.stampOnce(&t.connStart) },
		ConnectDone:          func(string, string, error) { t.stamp(&t.connDone) },
		TLSHandshakeStart:    func() { t.stampOnce(&t.tlsStart) },
		TLSHandshakeDone:     func(tls.ConnectionState, error) { t.stamp(&t.tlsDone) },
		WroteRequest:         func(httptrace.WroteRequestInfo) { t.stamp(&t.wrote) },
		GotFirstResponseByte: func() { t.stamp(&t.firstByte) },
	}
}

// done marks the end of the response body.
func (t *tracer) done() {
	t.stamp(&t.end)
}

// timing converts the recorded timestamps to a [model.Timing].
func (t *tracer) timing() model.Timing {
	t.mu.Lock()
	defer t.mu.Unlock()

	timing := model.UnknownTiming(t.start)

	if !t.reused {
		timing.DNS = between(t.dnsStart, t.dnsDone)
		timing.TLS = between(t.tlsStart, t.tlsDone)

		// Connect covers the TLS handshake
		connectEnd := t.connDone
		if !t.tlsDone.IsZero() {
			connectEnd = t.tlsDone
		}

		timing.Connect = between(t.connStart, connectEnd)
	}

	if !t.getConn.IsZero() && !t.gotConn.IsZero() {
		blocked := t.gotConn.Sub(t.getConn)
		for _, phase := range []time.Duration{timing.DNS, timing.Connect} {
			if phase > 0 {
				blocked -= phase
			}
		}

		timing.Blocked = max(blocked, 0)
	}

	timing.Send = between(t.gotConn, t.wrote)
	timing.Wait = between(t.wrote, t.firstByte)
	timing.Receive = between(t.firstByte, t.end)

	return timing
}

// between returns end - start, or [model.PhaseUnknown] if either wasn't recorded.
func between(start, end time.Time) time.Duration {
	if start.IsZero() || end.IsZero() {
		return model.PhaseUnknown
	}

	return max(end.Sub(start), 0)
}
