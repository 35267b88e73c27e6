package network

import (
	"envmon-go/types"
	"envmon-go/x/mathx"
)

// Backoff is a doubling retry delay with a cap. Zero value is unusable;
// set Base and Cap.
type Backoff struct {
	Base types.Tick
	Cap  types.Tick
	cur  types.Tick
}

// Next returns the delay to apply now and doubles the stored delay for
// the following failure.
func (b *Backoff) Next() types.Tick {
	if b.cur == 0 {
		b.cur = b.Base
	}
	d := b.cur
	b.cur = mathx.Min(b.cur*2, b.Cap)
	return d
}

// Reset restores the base delay after a success.
func (b *Backoff) Reset() { b.cur = 0 }
