package render

import (
	"image"
	"image/color"
	"sync/atomic"
	"testing"
	"time"
)

func TestZoomScale_Endpoints(t *testing.T) {
	d := 5 * time.Second

	if got := ZoomScale(0, d, true); got != 1.0 {
		t.Errorf("scale at elapsed=0 = %v, want 1.0", got)
	}
	if got := ZoomScale(d, d, true); got != 1.15 {
		t.Errorf("scale at elapsed=duration = %v, want 1.15", got)
	}
	if got := ZoomScale(2*d, d, true); got != 1.15 {
		t.Errorf("scale beyond duration = %v, want 1.15", got)
	}
}

func TestZoomScale_FrozenWhenNotRunning(t *testing.T) {
	d := 5 * time.Second
	if got := ZoomScale(3*time.Second, d, false); got != 1.0 {
		t.Errorf("scale while stopped = %v, want 1.0", got)
	}
}

func TestZoomScale_NonDecreasing(t *testing.T) {
	d := 7 * time.Second
	prev := 0.0
	for e := time.Duration(0); e <= d; e += 100 * time.Millisecond {
		got := ZoomScale(e, d, true)
		if got < prev {
			t.Fatalf("scale decreased at elapsed=%v: %v < %v", e, got, prev)
		}
		prev = got
	}
}

func TestAspectFit(t *testing.T) {
	tests := []struct {
		name                   string
		imgW, imgH             int
		canvasW, canvasH       int
		wantFullW, wantFullH   bool
		wantCenterX, wantCenterY bool
	}{
		{"wide image letterboxed", 1600, 400, 800, 600, true, false, false, true},
		{"tall image pillarboxed", 400, 1600, 800, 600, false, true, true, false},
		{"matching aspect fills", 1600, 1200, 800, 600, true, true, false, false},
		{"square image on wide canvas", 500, 500, 1280, 720, false, true, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := AspectFit(tt.imgW, tt.imgH, tt.canvasW, tt.canvasH)

			if p.X < 0 || p.Y < 0 || p.X+p.W > tt.canvasW || p.Y+p.H > tt.canvasH {
				t.Fatalf("placement %+v exceeds %dx%d canvas", p, tt.canvasW, tt.canvasH)
			}
			if tt.wantFullW && p.W != tt.canvasW {
				t.Errorf("W = %d, want full canvas width %d", p.W, tt.canvasW)
			}
			if tt.wantFullH && p.H != tt.canvasH {
				t.Errorf("H = %d, want full canvas height %d", p.H, tt.canvasH)
			}
			if tt.wantCenterX {
				left := p.X
				right := tt.canvasW - (p.X + p.W)
				if diff := left - right; diff < -1 || diff > 1 {
					t.Errorf("not centered horizontally: left=%d right=%d", left, right)
				}
			}
			if tt.wantCenterY {
				top := p.Y
				bottom := tt.canvasH - (p.Y + p.H)
				if diff := top - bottom; diff < -1 || diff > 1 {
					t.Errorf("not centered vertically: top=%d bottom=%d", top, bottom)
				}
			}
		})
	}
}

func TestAspectFit_PreservesRatio(t *testing.T) {
	p := AspectFit(1600, 400, 800, 600)
	imgAspect := 1600.0 / 400.0
	fitAspect := float64(p.W) / float64(p.H)
	if diff := imgAspect - fitAspect; diff < -0.05 || diff > 0.05 {
		t.Errorf("aspect ratio changed: img %v, fit %v", imgAspect, fitAspect)
	}
}

func TestCompose_BackgroundOutsideFit(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			src.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}

	s := NewSurface(200, 100)
	frame := s.Compose(src, 0, 5*time.Second, false)

	if frame.Bounds().Dx() != 200 || frame.Bounds().Dy() != 100 {
		t.Fatalf("frame bounds = %v, want 200x100", frame.Bounds())
	}

	// Square image on a 2:1 canvas pillarboxes: the left margin stays
	// background, the center shows the image.
	r, _, _, _ := frame.At(5, 50).RGBA()
	if r != 0 {
		t.Errorf("pillarbox margin not background, red=%d", r)
	}
	r, _, _, _ = frame.At(100, 50).RGBA()
	if r == 0 {
		t.Error("image center not drawn")
	}
}

func TestCompose_NilImage(t *testing.T) {
	s := NewSurface(64, 64)
	frame := s.Compose(nil, time.Second, 5*time.Second, true)
	if frame == nil {
		t.Fatal("expected background frame for nil image")
	}
}

func TestLoop_RearmResetsOrigin(t *testing.T) {
	var calls atomic.Int32
	var lastElapsed atomic.Int64

	l := NewLoop(100, func(elapsed time.Duration) {
		calls.Add(1)
		lastElapsed.Store(int64(elapsed))
	})

	l.Rearm()
	time.Sleep(80 * time.Millisecond)
	l.Rearm()
	time.Sleep(30 * time.Millisecond)
	l.Stop()

	if calls.Load() == 0 {
		t.Fatal("frame callback never fired")
	}
	// After rearming, elapsed restarts near zero; the final observation
	// belongs to the second arming window.
	if e := time.Duration(lastElapsed.Load()); e > 70*time.Millisecond {
		t.Errorf("elapsed after rearm = %v, origin was not reset", e)
	}
}

func TestLoop_StopIdempotent(t *testing.T) {
	l := NewLoop(100, func(time.Duration) {})
	l.Stop()
	l.Rearm()
	l.Stop()
	l.Stop()
}
