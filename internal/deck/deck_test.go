package deck

import (
	"errors"
	"image"
	"testing"
	"time"
)

func testImage() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 4, 3))
}

func testPCM() []byte {
	return make([]byte, 200)
}

func TestBuild_AssignsPageNumbersInOrder(t *testing.T) {
	b := NewBuilder("quarterly review")
	b.Add(testImage(), "intro", "Welcome", testPCM(), 24000, 3*time.Second)
	b.Add(testImage(), "middle", "Numbers", testPCM(), 24000, 4*time.Second)
	b.Add(testImage(), "end", "Thanks", testPCM(), 24000, 2*time.Second)

	d, err := b.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if d.Len() != 3 {
		t.Fatalf("Len = %d, want 3", d.Len())
	}
	for i := 0; i < d.Len(); i++ {
		if d.Slide(i).PageNumber != i+1 {
			t.Errorf("slide %d PageNumber = %d, want %d", i, d.Slide(i).PageNumber, i+1)
		}
	}
	if d.TotalDuration() != 9*time.Second {
		t.Errorf("TotalDuration = %v, want 9s", d.TotalDuration())
	}
}

func TestBuild_EmptyDeck(t *testing.T) {
	if _, err := NewBuilder("empty").Build(); !errors.Is(err, ErrEmptyDeck) {
		t.Errorf("err = %v, want ErrEmptyDeck", err)
	}
}

func TestBuild_MissingAudio(t *testing.T) {
	b := NewBuilder("no audio")
	b.Add(testImage(), "script", "caption", nil, 24000, 3*time.Second)

	if _, err := b.Build(); !errors.Is(err, ErrMissingAudio) {
		t.Errorf("err = %v, want ErrMissingAudio", err)
	}
}

func TestBuild_MissingImage(t *testing.T) {
	b := NewBuilder("no image")
	b.Add(nil, "script", "caption", testPCM(), 24000, 3*time.Second)

	if _, err := b.Build(); !errors.Is(err, ErrMissingImage) {
		t.Errorf("err = %v, want ErrMissingImage", err)
	}
}

func TestAdd_FallbackDuration(t *testing.T) {
	b := NewBuilder("fallback")
	b.Add(testImage(), "script", "caption", testPCM(), 24000, 0)

	d, err := b.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Slide(0).Duration != FallbackDuration {
		t.Errorf("Duration = %v, want %v", d.Slide(0).Duration, FallbackDuration)
	}
}

func TestBuild_SealedAgainstBuilderMutation(t *testing.T) {
	b := NewBuilder("sealed")
	b.Add(testImage(), "one", "c1", testPCM(), 24000, time.Second)

	d, err := b.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Appending to the builder after Build must not grow the deck.
	b.Add(testImage(), "two", "c2", testPCM(), 24000, time.Second)
	if d.Len() != 1 {
		t.Errorf("deck grew after Build: Len = %d, want 1", d.Len())
	}
}
