// Package render produces the animated view of a slide: a slow linear
// zoom over the narration duration, drawn over an aspect-fitted page
// image. Frame math is pure; Surface owns the drawing buffer.
package render

import (
	"image"
	"image/color"
	"image/draw"
	"time"

	xdraw "golang.org/x/image/draw"
)

// ZoomGrowth is the total scale gained over one slide's narration.
const ZoomGrowth = 0.15

// ZoomScale returns the zoom factor for a slide at the given elapsed
// time. The zoom grows linearly from 1.0 to 1.15 across the narration
// duration and freezes at 1.0 whenever playback is not running.
func ZoomScale(elapsed, duration time.Duration, running bool) float64 {
	if !running || duration <= 0 {
		return 1.0
	}
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > duration {
		elapsed = duration
	}
	return 1.0 + (elapsed.Seconds()/duration.Seconds())*ZoomGrowth
}

// Placement is the target rectangle of an aspect-fitted image on the
// canvas, before any zoom is applied.
type Placement struct {
	X, Y, W, H int
}

// AspectFit computes letterbox/pillarbox placement: the image is scaled
// to fit entirely inside the canvas, preserving aspect ratio, centered
// on the axis with leftover space.
func AspectFit(imgW, imgH, canvasW, canvasH int) Placement {
	if imgW <= 0 || imgH <= 0 || canvasW <= 0 || canvasH <= 0 {
		return Placement{}
	}

	imgAspect := float64(imgW) / float64(imgH)
	canvasAspect := float64(canvasW) / float64(canvasH)

	var p Placement
	if imgAspect > canvasAspect {
		// Relatively wider image: fit to canvas width, letterbox.
		p.W = canvasW
		p.H = int(float64(canvasW) / imgAspect)
		p.X = 0
		p.Y = (canvasH - p.H) / 2
	} else {
		// Fit to canvas height, pillarbox.
		p.H = canvasH
		p.W = int(float64(canvasH) * imgAspect)
		p.Y = 0
		p.X = (canvasW - p.W) / 2
	}
	return p
}

// scaled returns the placement grown by factor about the canvas center.
func (p Placement) scaled(factor float64, canvasW, canvasH int) image.Rectangle {
	w := float64(p.W) * factor
	h := float64(p.H) * factor
	cx := float64(canvasW) / 2
	cy := float64(canvasH) / 2
	return image.Rect(
		int(cx-w/2),
		int(cy-h/2),
		int(cx+w/2),
		int(cy+h/2),
	)
}

// Surface owns one drawing buffer. Only one animation loop may draw to
// a surface at a time; slide switches cancel the prior loop first.
type Surface struct {
	w, h   int
	buf    *image.RGBA
	scaler xdraw.Scaler
}

func NewSurface(w, h int) *Surface {
	return &Surface{
		w:      w,
		h:      h,
		buf:    image.NewRGBA(image.Rect(0, 0, w, h)),
		scaler: xdraw.ApproxBiLinear,
	}
}

func (s *Surface) Width() int  { return s.w }
func (s *Surface) Height() int { return s.h }

// Compose renders one frame: black background, then the aspect-fitted
// image scaled about the canvas center by the zoom factor. The buffer
// is reused across frames; callers must not retain it.
func (s *Surface) Compose(img image.Image, elapsed, duration time.Duration, running bool) *image.RGBA {
	draw.Draw(s.buf, s.buf.Bounds(), &image.Uniform{C: color.Black}, image.Point{}, draw.Src)

	if img == nil {
		return s.buf
	}

	bounds := img.Bounds()
	fit := AspectFit(bounds.Dx(), bounds.Dy(), s.w, s.h)
	scale := ZoomScale(elapsed, duration, running)
	target := fit.scaled(scale, s.w, s.h)

	// The scaler clips to the buffer bounds, so the zoomed image may
	// overflow the canvas without ever drawing outside it.
	s.scaler.Scale(s.buf, target, img, bounds, xdraw.Over, nil)
	return s.buf
}
