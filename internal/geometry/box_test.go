package geometry

import (
	"errors"
	"testing"
)

func TestValidateBox_InBoundsUnchanged(t *testing.T) {
	box, err := ValidateBox(BoundingBox{X: 10, Y: 10, Width: 100, Height: 100}, 200, 200)
	if err != nil {
		t.Fatalf("ValidateBox error: %v", err)
	}
	want := BoundingBox{X: 10, Y: 10, Width: 100, Height: 100}
	if box != want {
		t.Fatalf("box changed: got %+v want %+v", box, want)
	}
}

func TestValidateBox_ClampsToImageExtent(t *testing.T) {
	box, err := ValidateBox(BoundingBox{X: 190, Y: 190, Width: 50, Height: 50}, 200, 200)
	if err != nil {
		t.Fatalf("ValidateBox error: %v", err)
	}
	if box.Width != 10 || box.Height != 10 {
		t.Fatalf("expected 10x10 after clamp, got %+v", box)
	}
}

func TestValidateBox_NegativeOriginShiftsInward(t *testing.T) {
	box, err := ValidateBox(BoundingBox{X: -20, Y: -10, Width: 60, Height: 50}, 200, 200)
	if err != nil {
		t.Fatalf("ValidateBox error: %v", err)
	}
	want := BoundingBox{X: 0, Y: 0, Width: 40, Height: 40}
	if box != want {
		t.Fatalf("got %+v want %+v", box, want)
	}
}

func TestValidateBox_RejectsBoxOutsideImage(t *testing.T) {
	cases := []BoundingBox{
		{X: 300, Y: 10, Width: 50, Height: 50},
		{X: 10, Y: 10, Width: 0, Height: 50},
		{X: -100, Y: 0, Width: 50, Height: 50},
	}
	for _, c := range cases {
		_, err := ValidateBox(c, 200, 200)
		var dErr *DegenerateBoxError
		if !errors.As(err, &dErr) {
			t.Fatalf("box %+v: expected DegenerateBoxError, got %v", c, err)
		}
	}
}

func TestValidateBox_NeverExceedsImageBounds(t *testing.T) {
	boxes := []BoundingBox{
		{X: 0, Y: 0, Width: 1000, Height: 1000},
		{X: 150, Y: 20, Width: 100, Height: 300},
		{X: -5, Y: -5, Width: 500, Height: 500},
	}
	for _, b := range boxes {
		got, err := ValidateBox(b, 200, 200)
		if err != nil {
			continue
		}
		if got.X < 0 || got.Y < 0 || got.X+got.Width > 200 || got.Y+got.Height > 200 {
			t.Fatalf("box %+v validated to out-of-bounds %+v", b, got)
		}
		if got.Width <= 0 || got.Height <= 0 {
			t.Fatalf("box %+v validated to non-positive size %+v", b, got)
		}
	}
}
