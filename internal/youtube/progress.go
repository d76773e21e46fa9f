package youtube

import (
	"context"
	"io"
)

// Progress is a snapshot of a transfer.
type Progress struct {
	BytesSent  int64
	TotalBytes int64
}

// Percent returns BytesSent as a percentage of TotalBytes, in [0, 100].
func (p Progress) Percent() float64 {
	if p.TotalBytes <= 0 {
		return 0
	}

	pct := float64(p.BytesSent) * 100 / float64(p.TotalBytes)

	return min(max(pct, 0), 100)
}

// ProgressFunc receives progress updates. It is called from the goroutine
// writing the request body and must not block.
type ProgressFunc func(Progress)

// progressReader counts bytes handed to the transport and reports each time
// the count reaches a multiple of interval, plus once at the final byte.
// Reads are cut at the next boundary so reports land on exact multiples, and
// the context is checked before every read.
type progressReader struct {
	ctx      context.Context
	r        io.Reader
	session  *UploadSession
	interval int64
	next     int64
	fn       ProgressFunc
}

func newProgressReader(
	ctx context.Context,
	r io.Reader,
	session *UploadSession,
	interval int64,
	fn ProgressFunc,
) *progressReader {
	p := &progressReader{
		ctx:      ctx,
		r:        r,
		session:  session,
		interval: interval,
		fn:       fn,
	}
	p.advance(session.BytesSent())

	return p
}

// advance sets next to the first boundary after sent, capped at the total.
func (p *progressReader) advance(sent int64) {
	total := p.session.TotalBytes

	if sent >= total {
		p.next = total + 1 // nothing left to report
		return
	}

	p.next = min((sent/p.interval+1)*p.interval, total)
}

func (p *progressReader) Read(b []byte) (int, error) {
	if err := p.ctx.Err(); err != nil {
		return 0, err
	}

	sent := p.session.BytesSent()
	if room := p.next - sent; room > 0 && int64(len(b)) > room {
		b = b[:room]
	}

	n, err := p.r.Read(b)
	if n > 0 {
		sent = p.session.add(int64(n))

		if sent >= p.next {
			p.report(sent)
			p.advance(sent)
		}
	}

	return n, err
}

func (p *progressReader) report(sent int64) {
	if p.fn == nil || p.ctx.Err() != nil || p.session.State() != StateTransferring {
		return
	}

	p.fn(Progress{BytesSent: sent, TotalBytes: p.session.TotalBytes})
}
