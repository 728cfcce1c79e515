package broker

import (
	"context"
	"fmt"
	"time"
)

// ReplyIterator walks the replies to one fan-out request. It cannot be
// restarted; call IterRequest again for a new round.
type ReplyIterator struct {
	conn    Conn
	channel string
	ticket  ticket
	max     int
	metrics *Metrics

	n    int
	cur  *Response
	err  error
	done bool
}

// Next waits for the next reply and reports whether there is one.
func (it *ReplyIterator) Next(ctx context.Context) bool {
	if it.done {
		return false
	}
	if it.max > 0 && it.n >= it.max {
		it.done = true
		return false
	}

	payload, ok, err := it.conn.BPop(ctx, it.ticket.replyTo, time.Duration(wholeSeconds(it.ticket.wait))*time.Second)
	if err != nil {
		it.err = fmt.Errorf("request %s: %w", it.channel, err)
		it.done = true
		return false
	}
	if !ok {
		it.done = true
		return false
	}

	resp, err := decodeEnvelope(payload)
	if err != nil {
		it.err = fmt.Errorf("request %s: %w", it.channel, err)
		it.done = true
		return false
	}
	it.metrics.collected(it.channel)
	it.cur = resp
	it.n++
	return true
}

// Val returns the reply read by the last successful Next.
func (it *ReplyIterator) Val() *Response {
	return it.cur
}

// Err returns the error that stopped iteration, if any. Running out of
// replies is not an error.
func (it *ReplyIterator) Err() error {
	return it.err
}

// Count is the number of replies read so far.
func (it *ReplyIterator) Count() int {
	return it.n
}

// RequestID identifies the request this iterator collects replies for.
func (it *ReplyIterator) RequestID() string {
	return it.ticket.requestID
}
