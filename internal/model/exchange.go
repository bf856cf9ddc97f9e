package model

import (
	"time"
)

// PhaseUnknown marks a [Timing] phase that was not measured, for example the
// DNS lookup when a pooled connection was reused.
const PhaseUnknown time.Duration = -1

// Exchange is a captured HTTP request paired with its response.
//
// Once captured an exchange is treated as immutable so it may be shared freely
// between goroutines.
type Exchange struct {
	// Response is the response, nil if the exchange has not completed
	Response *Response

	// ID optionally identifies the exchange
	ID string

	// Request is the request as it was sent
	Request Request

	// Timing describes how long each phase of the exchange took
	Timing Timing

	// Aborted is set when the exchange was cut off before a response
	// was fully received
	Aborted bool
}

// Completed reports whether the exchange has a complete, non aborted response.
func (e Exchange) Completed() bool {
	return e.Response != nil && !e.Aborted
}

// Request is the request half of an [Exchange].
type Request struct {
	Method      string  // HTTP method
	URL         string  // Full URL
	HTTPVersion string  // e.g. "HTTP/1.1", may be empty if unknown
	Headers     Headers // Request headers as sent
	Body        []byte  // Decoded request body
}

// Response is the response half of an [Exchange].
type Response struct {
	StatusMessage string  // e.g. "OK"
	HTTPVersion   string  // e.g. "HTTP/1.1"
	Headers       Headers // Response headers
	Body          []byte  // Decoded response body
	StatusCode    int     // e.g. 200
	EncodedLength int     // Length of the body as received on the wire, -1 if unknown
}

// Timing is the duration of each phase of an [Exchange], any phase may be [PhaseUnknown].
type Timing struct {
	StartedAt time.Time     // When the request started
	Blocked   time.Duration // Time spent waiting for a connection
	DNS       time.Duration // DNS resolution
	Connect   time.Duration // TCP connect, including TLS
	TLS       time.Duration // TLS handshake
	Send      time.Duration // Writing the request
	Wait      time.Duration // Waiting for the first response byte
	Receive   time.Duration // Reading the response
}

// UnknownTiming returns a [Timing] starting at start with every phase unknown.
func UnknownTiming(start time.Time) Timing {
	return Timing{
		StartedAt: start,
		Blocked:   PhaseUnknown,
		DNS:       PhaseUnknown,
		Connect:   PhaseUnknown,
		TLS:       PhaseUnknown,
		Send:      PhaseUnknown,
		Wait:      PhaseUnknown,
		Receive:   PhaseUnknown,
	}
}

// Total returns the total duration of the exchange, ignoring unknown phases.
//
// TLS is part of Connect so it isn't counted twice.
func (t Timing) Total() time.Duration {
	var total time.Duration

	for _, phase := range []time.Duration{t.Blocked, t.DNS, t.Connect, t.Send, t.Wait, t.Receive} {
		if phase > 0 {
			total += phase
		}
	}

	return total
}

// NewExchange returns an [Exchange] for a request that has not been sent, as
// is the case when exporting a request a user is composing.
func NewExchange(def RequestDefinition) (Exchange, error) {
	body, err := DecodeBody(def.RawBody, def.Headers.Get("Content-Encoding"))
	if err != nil {
		return Exchange{}, err
	}

	return Exchange{
		Request: Request{
			Method:  def.Method,
			URL:     def.URL,
			Headers: def.Headers.Clone(),
			Body:    body,
		},
		Timing: UnknownTiming(time.Time{}),
	}, nil
}
