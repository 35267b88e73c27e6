package display

import "image/color"

// Panel geometry.
const (
	Width  = 128
	Height = 64
)

// Frame is a 1-bit frame buffer in SSD1306 page layout: each byte holds
// a vertical strip of 8 pixels, pages run top to bottom. The buffer is
// handed to hal.Display.WriteFrame unchanged, so the controller can DMA
// it directly.
//
// Frame implements the drivers.Displayer surface tinyfont draws on;
// Display is a no-op because flushing happens under a bus lease in the
// render pass.
type Frame struct {
	buf [Width * Height / 8]byte
}

func (f *Frame) Size() (x, y int16) { return Width, Height }

func (f *Frame) SetPixel(x, y int16, c color.RGBA) {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return
	}
	idx := int(x) + int(y)/8*Width
	bit := byte(1) << (uint(y) % 8)
	if c.R|c.G|c.B != 0 {
		f.buf[idx] |= bit
	} else {
		f.buf[idx] &^= bit
	}
}

func (f *Frame) Display() error { return nil }

// Clear blanks the buffer.
func (f *Frame) Clear() {
	for i := range f.buf {
		f.buf[i] = 0
	}
}

// Pixel reports one pixel, for tests and the simulator.
func (f *Frame) Pixel(x, y int) bool {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return false
	}
	return f.buf[x+y/8*Width]&(1<<(uint(y)%8)) != 0
}

// Bytes exposes the raw page-layout buffer.
func (f *Frame) Bytes() []byte { return f.buf[:] }
