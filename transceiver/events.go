package transceiver

import (
	"fmt"
	"io"
	"sync"

	"github.com/juju/errors"
)

// StateUpdateReason tells what triggered a state-updated event.
type StateUpdateReason int

const (
	ReasonLocalDescApplied StateUpdateReason = iota + 1
	ReasonRemoteDescApplied
	ReasonDirectionSet
)

func (r StateUpdateReason) String() string {
	switch r {
	case ReasonLocalDescApplied:
		return "local_desc_applied"
	case ReasonRemoteDescApplied:
		return "remote_desc_applied"
	case ReasonDirectionSet:
		return "direction_set"
	default:
		return fmt.Sprintf("StateUpdateReason(%d)", int(r))
	}
}

// StateUpdate is a snapshot of the transceiver's direction state at the
// time an event fired. After SetDirection the desired direction is already
// updated while the negotiated one still reflects the last negotiation;
// observers see desired != negotiated as a normal transient state.
type StateUpdate struct {
	Reason     StateUpdateReason
	Negotiated OptDirection
	Desired    Direction
}

type stateSubRequestType int

const (
	stateSubRequestTypeSubscribe stateSubRequestType = iota + 1
	stateSubRequestTypeUnsubscribe
)

type stateSubRequest struct {
	subID string
	typ   stateSubRequestType
	done  chan stateSubResponse
}

type stateSubResponse struct {
	sub <-chan StateUpdate
	err error
}

// StateNotifier fans out state updates to channel subscribers, so that
// consumers on other goroutines (bindings, view models) never run inside
// the signaling callback that produced the update. Wire it up with
// Transceiver.HandleStateUpdated(notifier.Notify).
type StateNotifier struct {
	updates         chan StateUpdate
	subRequestsChan chan stateSubRequest
	teardown        chan struct{}
	torndown        chan struct{}
	bufferSize      int

	closeOnce sync.Once
}

func NewStateNotifier(bufferSize int) *StateNotifier {
	n := &StateNotifier{
		updates:         make(chan StateUpdate),
		subRequestsChan: make(chan stateSubRequest),
		teardown:        make(chan struct{}),
		torndown:        make(chan struct{}),
		bufferSize:      bufferSize,
	}

	go n.start()

	return n
}

func (n *StateNotifier) start() {
	subs := map[string]chan StateUpdate{}

	defer func() {
		for _, out := range subs {
			close(out)
		}

		close(n.torndown)
	}()

	for {
		select {
		case update := <-n.updates:
			for _, out := range subs {
				select {
				case out <- update:
				default:
					// Subscriber not keeping up; drop rather than block
					// the signaling callback that produced the update.
				}
			}

		case req := <-n.subRequestsChan:
			// Unsubscribe existing subscription.
			if out, ok := subs[req.subID]; ok {
				delete(subs, req.subID)
				close(out)
			}

			// Subscribe if necessary.
			if req.typ == stateSubRequestTypeSubscribe {
				sub := make(chan StateUpdate, n.bufferSize)
				subs[req.subID] = sub
				req.done <- stateSubResponse{
					sub: sub,
					err: nil,
				}
			}

			close(req.done)

		case <-n.teardown:
			return
		}
	}
}

// Notify forwards a state update to all subscribers. Safe to use as a
// Transceiver state-updated handler; never blocks after Close.
func (n *StateNotifier) Notify(update StateUpdate) {
	select {
	case n.updates <- update:
	case <-n.torndown:
	}
}

func (n *StateNotifier) request(req stateSubRequest) (<-chan StateUpdate, error) {
	select {
	case n.subRequestsChan <- req:
		res := <-req.done

		return res.sub, errors.Trace(res.err)
	case <-n.torndown:
		return nil, errors.Trace(io.ErrClosedPipe)
	}
}

func (n *StateNotifier) Subscribe(subID string) (<-chan StateUpdate, error) {
	req := stateSubRequest{
		typ:   stateSubRequestTypeSubscribe,
		subID: subID,
		done:  make(chan stateSubResponse, 1),
	}

	sub, err := n.request(req)

	return sub, errors.Annotatef(err, "subscribe: %s", subID)
}

func (n *StateNotifier) Unsubscribe(subID string) error {
	req := stateSubRequest{
		typ:   stateSubRequestTypeUnsubscribe,
		subID: subID,
		done:  make(chan stateSubResponse, 1),
	}

	_, err := n.request(req)

	return errors.Annotatef(err, "unsubscribe: %s", subID)
}

func (n *StateNotifier) Close() {
	n.closeOnce.Do(func() {
		close(n.teardown)
	})

	<-n.torndown
}

func (n *StateNotifier) Done() <-chan struct{} {
	return n.torndown
}
