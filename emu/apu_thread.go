package emu

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// apuCheckpoint asks the sound goroutine to apply the CPU's port writes at
// their stamps and then run to until.
type apuCheckpoint struct {
	until  uint64
	writes []portWrite
}

// apuReply carries what the APU produced while running to a checkpoint.
type apuReply struct {
	outputs []portWrite
	samples []int16
	cycles  uint64 // SPC cycle count after the checkpoint
	err     error
}

// apuThread runs the APU on its own goroutine and implements apuPorts for
// the bus. The CPU side keeps its own copy of the APU->CPU mailbox, fed
// from checkpoint replies.
//
// The scheduler issues one checkpoint per scanline so the APU runs ahead
// on its own goroutine. A port read the APU has not yet reached blocks on
// a checkpoint to the read's stamp, so the APU is at the same position for
// every port access as it would be when run inline.
type apuThread struct {
	apu    *APU
	timing RegionTiming

	out     mailbox     // CPU view of APU->CPU ports
	writes  []portWrite // CPU->APU writes since the last checkpoint
	samples []int16
	cycles  uint64 // APU SPC cycles as of the last reply

	req     chan apuCheckpoint
	resp    chan apuReply
	pending bool
	err     error

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
}

// newAPUThread takes ownership of apu and starts its goroutine.
func newAPUThread(apu *APU) *apuThread {
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)
	t := &apuThread{
		apu:    apu,
		timing: apu.timing,
		out:    apu.out,
		cycles: apu.cycles,
		req:    make(chan apuCheckpoint, 1),
		resp:   make(chan apuReply, 1),
		ctx:    ctx,
		cancel: cancel,
		group:  g,
	}
	apu.recordOutputs = true
	apu.outputs = apu.outputs[:0]
	g.Go(func() error {
		return t.run(ctx)
	})
	return t
}

func (t *apuThread) run(ctx context.Context) error {
	a := t.apu
	for {
		var cp apuCheckpoint
		select {
		case <-ctx.Done():
			return nil
		case cp = <-t.req:
		}

		for _, w := range cp.writes {
			a.RunUntil(w.At)
			a.in.write(int(w.Port), w.Value, w.At)
		}
		a.RunUntil(cp.until)

		reply := apuReply{
			outputs: append([]portWrite(nil), a.outputs...),
			samples: a.TakeSamples(nil),
			cycles:  a.cycles,
			err:     a.Err(),
		}
		a.outputs = a.outputs[:0]

		select {
		case <-ctx.Done():
			return nil
		case t.resp <- reply:
		}
	}
}

// ReadPort implements apuPorts. The APU is synced to at first, so the
// value matches a read from the inline APU.
func (t *apuThread) ReadPort(port int, at uint64) uint8 {
	t.sync(at)
	return t.out.read(port, at)
}

// WritePort implements apuPorts. The write is delivered with the next
// checkpoint.
func (t *apuThread) WritePort(port int, v uint8, at uint64) {
	t.writes = append(t.writes, portWrite{Port: uint8(port), Value: v, At: at})
}

// checkpoint collects the previous reply and sends the next checkpoint.
func (t *apuThread) checkpoint(until uint64) error {
	if err := t.wait(); err != nil {
		return err
	}
	cp := apuCheckpoint{until: until, writes: t.writes}
	t.writes = nil
	select {
	case t.req <- cp:
		t.pending = true
	case <-t.ctx.Done():
		return t.ctx.Err()
	}
	return nil
}

// sync blocks until the APU has run to master cycle at. It returns at once
// when the last reply is already past that point.
func (t *apuThread) sync(at uint64) error {
	if err := t.wait(); err != nil {
		return err
	}
	if t.cycles >= t.timing.masterToAPU(at) {
		return nil
	}
	if err := t.checkpoint(at); err != nil {
		return err
	}
	return t.wait()
}

// wait blocks until the outstanding checkpoint, if any, has been answered
// and applies its results.
func (t *apuThread) wait() error {
	if !t.pending {
		return t.err
	}
	select {
	case r := <-t.resp:
		t.pending = false
		t.cycles = r.cycles
		for _, w := range r.outputs {
			t.out.write(int(w.Port), w.Value, w.At)
		}
		t.samples = append(t.samples, r.samples...)
		if r.err != nil && t.err == nil {
			t.err = r.err
		}
	case <-t.ctx.Done():
		t.pending = false
		return t.ctx.Err()
	}
	return t.err
}

// drain waits for the outstanding checkpoint and applies unsent writes
// directly. Afterwards the APU can be inspected or serialized from the
// calling goroutine until the next checkpoint.
func (t *apuThread) drain() error {
	if err := t.wait(); err != nil {
		return err
	}
	for _, w := range t.writes {
		t.apu.RunUntil(w.At)
		t.apu.in.write(int(w.Port), w.Value, w.At)
	}
	t.writes = nil
	return t.apu.Err()
}

// takeSamples returns and clears the samples received so far.
func (t *apuThread) takeSamples(dst []int16) []int16 {
	dst = append(dst, t.samples...)
	t.samples = t.samples[:0]
	return dst
}

// syncOut refreshes the CPU view of the output ports after the APU state
// was replaced.
func (t *apuThread) syncOut() {
	t.out = t.apu.out
	t.cycles = t.apu.cycles
}

// stop drains, cancels the goroutine and hands the APU back to the caller.
func (t *apuThread) stop() error {
	err := t.drain()
	t.cancel()
	if werr := t.group.Wait(); werr != nil && err == nil {
		err = werr
	}
	t.apu.recordOutputs = false
	t.apu.outputs = t.apu.outputs[:0]
	if err == context.Canceled {
		err = nil
	}
	return err
}
