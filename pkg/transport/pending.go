package transport

import (
	"sync"

	"github.com/rhuss/jsonhandler/pkg/api"
	"github.com/rhuss/jsonhandler/pkg/exchange"
	"github.com/rhuss/jsonhandler/pkg/handle"
)

// PendingState is the lifecycle state of a suspended exchange.
type PendingState int

const (
	StateWaiting PendingState = iota
	StateDelivering
	StateDone
	StateAbandoned
)

func (s PendingState) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateDelivering:
		return "delivering"
	case StateDone:
		return "done"
	case StateAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Delivery is a relayed response on its way to a suspended exchange.
// The forwarding side calls Finish exactly once with the write result.
type Delivery struct {
	Header exchange.Header
	Body   *exchange.Body
	// Err, when set, finalizes the exchange with an error instead of
	// the relayed response.
	Err error

	once   sync.Once
	result chan error
}

// NewDelivery returns a Delivery owning header and body.
func NewDelivery(header exchange.Header, body *exchange.Body) *Delivery {
	return &Delivery{Header: header, Body: body, result: make(chan error, 1)}
}

// Finish acknowledges the delivery. Later calls are ignored.
func (d *Delivery) Finish(err error) {
	d.once.Do(func() {
		d.result <- err
		close(d.result)
	})
}

// Done yields the write result passed to Finish.
func (d *Delivery) Done() <-chan error {
	return d.result
}

// Pending is a suspended exchange waiting for its response. The
// transitions are waiting → delivering → done and waiting → abandoned;
// whichever of Deliver and Abandon runs first wins.
type Pending struct {
	// RequestID of the suspended exchange, for logs and the journal.
	RequestID string

	mu        sync.Mutex
	handle    handle.Handle
	state     PendingState
	delivered chan *Delivery
}

// NewPending returns a Pending in the waiting state.
func NewPending(requestID string) *Pending {
	return &Pending{RequestID: requestID, delivered: make(chan *Delivery, 1)}
}

// Handle returns the handle assigned at registration.
func (p *Pending) Handle() handle.Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handle
}

// State returns the current state.
func (p *Pending) State() PendingState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Deliver hands d to the waiting exchange. It fails with
// api.ErrTargetNotLive unless the exchange is still waiting.
func (p *Pending) Deliver(d *Delivery) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateWaiting {
		return api.ErrTargetNotLive
	}
	p.state = StateDelivering
	p.delivered <- d
	return nil
}

// Abandon gives up waiting. It returns false when a delivery already won,
// in which case the delivery must be taken from Delivered and finished.
func (p *Pending) Abandon() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateWaiting {
		return false
	}
	p.state = StateAbandoned
	return true
}

// Complete moves a delivering exchange to done.
func (p *Pending) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateDelivering {
		p.state = StateDone
	}
}

// Delivered yields the relayed response once Deliver succeeds.
func (p *Pending) Delivered() <-chan *Delivery {
	return p.delivered
}
