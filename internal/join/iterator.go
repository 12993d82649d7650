package join

import (
	"context"
	"errors"

	"github.com/hupe1980/zspatial/index"
	"github.com/hupe1980/zspatial/space"
)

type state int

const (
	stateStart state = iota
	stateAdvanceLeft
	stateAdvanceRight
	stateEmit
	stateDone
)

// Iterator merges two inputs in key order and yields the pairs of records
// whose cells are related and whose objects pass the filter.
//
// Every record read from a side is pushed on that side's nest and compared
// with the other side's nest, which holds exactly the other side's records
// containing it. A record that is disjoint from everything the other side
// has left is skipped, and the side seeks ahead to the next cell that can
// still match.
//
// Iterator is single-pass and not safe for concurrent use.
type Iterator struct {
	left, right *Input
	filter      Filter
	counters    *Counters

	state   state
	pending []Pair
	err     error
	closed  bool
}

// NewIterator joins left and right. The iterator owns both inputs and
// closes them once it is exhausted, fails or is closed.
func NewIterator(left, right *Input, filter Filter, counters *Counters) (*Iterator, error) {
	if filter == nil {
		return nil, ErrNilFilter
	}
	if counters == nil {
		counters = &Counters{}
	}
	return &Iterator{
		left:     left,
		right:    right,
		filter:   filter,
		counters: counters,
	}, nil
}

// Next returns the next pair. ok is false once the join is exhausted or has
// failed; Err reports the failure.
func (it *Iterator) Next(ctx context.Context) (Pair, bool, error) {
	for {
		switch it.state {
		case stateStart:
			if err := it.prime(ctx); err != nil {
				return Pair{}, false, it.fail(err)
			}
			it.state = it.choose()
		case stateAdvanceLeft:
			if err := it.step(ctx, it.left, it.right, true); err != nil {
				return Pair{}, false, it.fail(err)
			}
		case stateAdvanceRight:
			if err := it.step(ctx, it.right, it.left, false); err != nil {
				return Pair{}, false, it.fail(err)
			}
		case stateEmit:
			if len(it.pending) == 0 {
				it.state = it.choose()
				continue
			}
			p := it.pending[0]
			it.pending[0] = Pair{}
			it.pending = it.pending[1:]
			return p, true, nil
		case stateDone:
			if !it.closed {
				if err := it.Close(); err != nil && it.err == nil {
					it.err = err
					return Pair{}, false, err
				}
			}
			return Pair{}, false, it.err
		}
	}
}

// Err returns the error that ended the join, if any.
func (it *Iterator) Err() error {
	return it.err
}

// Close releases the inputs. It is safe to call more than once.
func (it *Iterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	it.state = stateDone
	it.pending = nil
	return errors.Join(it.left.Close(), it.right.Close())
}

func (it *Iterator) fail(err error) error {
	it.err = err
	it.state = stateDone
	it.pending = nil
	_ = it.Close()
	return err
}

func (it *Iterator) prime(ctx context.Context) error {
	if err := it.left.next(ctx); err != nil {
		return err
	}
	return it.right.next(ctx)
}

// choose picks the side holding the smaller current key; ties go left.
func (it *Iterator) choose() state {
	l, r := it.left, it.right
	switch {
	case l.eof && r.eof:
		return stateDone
	case l.eof && len(l.nest) == 0, r.eof && len(r.nest) == 0:
		return stateDone
	case r.eof || (!l.eof && l.cur.Key.Z <= r.cur.Key.Z):
		return stateAdvanceLeft
	default:
		return stateAdvanceRight
	}
}

// step processes s.cur against the other side o.
func (it *Iterator) step(ctx context.Context, s, o *Input, sIsLeft bool) error {
	z := s.cur.Key.Z
	s.popDisjoint(z)
	o.popDisjoint(z)

	if len(o.nest) == 0 {
		if o.eof {
			it.state = stateDone
			return nil
		}
		if space.Relate(z, o.cur.Key.Z) == space.Disjoint {
			if err := s.skipTo(ctx, o.cur.Key.Z); err != nil {
				return err
			}
			it.state = it.choose()
			return nil
		}
	}

	for _, other := range o.nest {
		left, right := s.cur, other
		if !sIsLeft {
			left, right = other, s.cur
		}
		if err := it.test(left, right); err != nil {
			return err
		}
	}

	s.nest = append(s.nest, s.cur)
	if err := s.next(ctx); err != nil {
		return err
	}

	if len(it.pending) > 0 {
		it.state = stateEmit
	} else {
		it.state = it.choose()
	}
	return nil
}

func (it *Iterator) test(left, right index.Record) error {
	it.counters.FilterCall.Add(1)
	ok, err := it.filter(left.Object, right.Object)
	if err != nil {
		return &FilterError{Left: left.Key.SOID, Right: right.Key.SOID, Err: err}
	}
	if ok {
		it.counters.FilterHit.Add(1)
		it.pending = append(it.pending, Pair{Left: left.Object, Right: right.Object})
	}
	return nil
}
