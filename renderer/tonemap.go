package renderer

import (
	"image"
	"image/color"

	"github.com/chewxy/math32"
)

const invGamma float32 = 1.0 / 2.2

// Convert the RGB accumulation buffer to an 8-bit image. Each channel is
// averaged over numSamples, scaled by exposure, clamped to [0, 1] and gamma
// corrected.
func Tonemap(accumBuffer []float32, frameW, frameH uint32, numSamples uint32, exposure float32) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, int(frameW), int(frameH)))
	if numSamples == 0 {
		return img
	}

	scale := exposure / float32(numSamples)
	for y := uint32(0); y < frameH; y++ {
		for x := uint32(0); x < frameW; x++ {
			offset := 3 * (y*frameW + x)
			img.SetRGBA(int(x), int(y), color.RGBA{
				R: toneMapChannel(accumBuffer[offset] * scale),
				G: toneMapChannel(accumBuffer[offset+1] * scale),
				B: toneMapChannel(accumBuffer[offset+2] * scale),
				A: 255,
			})
		}
	}
	return img
}

func toneMapChannel(v float32) uint8 {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(math32.Pow(v, invGamma)*255 + 0.5)
}
