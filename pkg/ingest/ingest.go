// Package ingest reads command frames from a serial port and publishes the
// decoded commands.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/pwmlink/pkg/bus"
	fx "github.com/robotalks/pwmlink/pkg/framework"
	"github.com/robotalks/pwmlink/pkg/serial"
	"github.com/robotalks/pwmlink/pkg/wire"
)

// Defaults.
const (
	DefaultInterval = 2 * time.Millisecond
	ReadSize        = 256
)

// Stats counts what the Ingestor has seen.
type Stats struct {
	Bytes     uint64
	Frames    uint64
	Published uint64
	Rejected  uint64
	Ignored   uint64
	// Dropped counts bytes discarded by an overflowing frame buffer.
	Dropped uint64
}

func (s Stats) String() string {
	return fmt.Sprintf("bytes=%d frames=%d published=%d rejected=%d ignored=%d dropped=%d",
		s.Bytes, s.Frames, s.Published, s.Rejected, s.Ignored, s.Dropped)
}

// Ingestor is the only producer of its topic. Every byte read is echoed
// back to the port before it is framed.
type Ingestor struct {
	Interval time.Duration
	Echo     bool
	Parser   wire.Parser

	rw    io.ReadWriter
	topic *bus.Topic
	acc   *wire.Accumulator
	buf   []byte

	bytes     atomic.Uint64
	frames    atomic.Uint64
	published atomic.Uint64
	rejected  atomic.Uint64
	ignored   atomic.Uint64
	// mirrors acc.Dropped for readers outside the loop goroutine.
	dropped atomic.Uint64
}

// NewIngestor creates an Ingestor reading from rw.
func NewIngestor(rw io.ReadWriter, topic *bus.Topic) *Ingestor {
	return &Ingestor{
		Interval: DefaultInterval,
		Echo:     true,
		Parser:   wire.DefaultParser,
		rw:       rw,
		topic:    topic,
		acc:      wire.NewAccumulator(wire.DefaultBufferSize, wire.DefaultTerminator),
		buf:      make([]byte, ReadSize),
	}
}

// Name implements Named.
func (g *Ingestor) Name() string {
	return "ingest"
}

// Stats returns a snapshot of the counters.
func (g *Ingestor) Stats() Stats {
	return Stats{
		Bytes:     g.bytes.Load(),
		Frames:    g.frames.Load(),
		Published: g.published.Load(),
		Rejected:  g.rejected.Load(),
		Ignored:   g.ignored.Load(),
		Dropped:   g.dropped.Load(),
	}
}

// Process frames data and publishes every command decoded from it.
func (g *Ingestor) Process(data []byte) {
	g.bytes.Add(uint64(len(data)))
	frames := g.acc.Feed(data)
	g.dropped.Store(g.acc.Dropped())
	for _, frame := range frames {
		g.frames.Add(1)
		cmd, err := g.Parser.Parse(frame)
		switch {
		case err == nil:
			g.published.Add(1)
			g.topic.Publish(cmd)
			if glog.V(4) {
				glog.Infof("ingest: %s", cmd)
			}
		case errors.Is(err, wire.ErrNotCommand):
			g.ignored.Add(1)
			if glog.V(3) {
				glog.Infof("ingest: ignored %q", frame)
			}
		default:
			g.rejected.Add(1)
			glog.Warningf("ingest: %v", err)
		}
	}
}

// Control implements Controller.
func (g *Ingestor) Control(fx.ControlContext) error {
	n, err := g.rw.Read(g.buf)
	if n > 0 {
		data := g.buf[:n]
		if glog.V(2) {
			glog.Infof("ingest: read %d bytes", n)
		}
		if g.Echo {
			if _, werr := g.rw.Write(data); werr != nil {
				glog.Warningf("ingest: echo: %v", werr)
			}
		}
		g.Process(data)
	}
	if !serial.IsTimeout(err) {
		return fx.Fatal(fmt.Errorf("serial read: %w", err))
	}
	return nil
}

// AddToLoop implements LoopAdder.
func (g *Ingestor) AddToLoop(loop *fx.Loop) {
	loop.AddController(g)
}

// Run implements Runnable.
func (g *Ingestor) Run(ctx context.Context) error {
	glog.Infof("ingest: started, publishing to %s", g.topic.Name())
	err := fx.NewLoop(g.Name(), g.Interval).Add(g).Run(ctx)
	glog.Infof("ingest: exit, %s", g.Stats())
	return err
}
