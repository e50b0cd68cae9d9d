package chip8

import "image"

const (
	GfxWidth  = 64
	GfxHeight = 32
)

var (
	pixelOn  = [4]uint8{0xFF, 0xFF, 0xFF, 0xFF}
	pixelOff = [4]uint8{0x00, 0x00, 0x00, 0xFF}
)

// Graphics is the monochrome framebuffer. Each row is a 64 bit mask,
// bit 63 is the leftmost pixel.
type Graphics struct {
	rows [GfxHeight]uint64
}

func (g *Graphics) clear() {
	g.rows = [GfxHeight]uint64{}
}

func (g *Graphics) getPixel(x, y int) bool {
	if x < 0 || x >= GfxWidth || y < 0 || y >= GfxHeight {
		return false
	}
	return g.rows[y]&(1<<(GfxWidth-1-x)) != 0
}

// draw XORs a sprite of h rows, read from memory starting at I, onto the
// screen at (x, y). Coordinates are expected to be on screen already, pixels
// past the right and bottom edges are clipped. It returns whether any set
// pixel was hit.
func (g *Graphics) draw(mem *Memory, I uint16, x, y, h uint8) bool {
	hit := false
	for r := uint16(0); r < uint16(h); r++ {
		row := int(y) + int(r)
		if row >= GfxHeight {
			break
		}
		// the right shift drops the columns past the edge
		sprite := uint64(mem.read(I+r)) << (GfxWidth - 8) >> x
		if g.rows[row]&sprite != 0 {
			hit = true
		}
		g.rows[row] ^= sprite
	}
	return hit
}

func (g *Graphics) bitmap() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, GfxWidth, GfxHeight))
	for y := 0; y < GfxHeight; y++ {
		for x := 0; x < GfxWidth; x++ {
			offset := img.PixOffset(x, y)
			if g.getPixel(x, y) {
				copy(img.Pix[offset:offset+4], pixelOn[:])
			} else {
				copy(img.Pix[offset:offset+4], pixelOff[:])
			}
		}
	}
	return img
}
