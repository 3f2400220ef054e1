package bbox

import (
	"errors"
	"math"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		box   BBox
		field string
	}{
		{"valid", BBox{LatMin: 30, LatMax: 33, LonMin: 100, LonMax: 103}, ""},
		{"valid negative", BBox{LatMin: -45.5, LatMax: -44, LonMin: -70, LonMax: -69.2}, ""},
		{"lat reversed", BBox{LatMin: 10, LatMax: 5, LonMin: 0, LonMax: 1}, "latitude"},
		{"lat equal", BBox{LatMin: 5, LatMax: 5, LonMin: 0, LonMax: 1}, "latitude"},
		{"lon reversed", BBox{LatMin: 0, LatMax: 1, LonMin: 20, LonMax: 10}, "longitude"},
		{"lat too low", BBox{LatMin: -95, LatMax: 10, LonMin: 0, LonMax: 1}, "latitude"},
		{"lat too high", BBox{LatMin: 80, LatMax: 91, LonMin: 0, LonMax: 1}, "latitude"},
		{"lon too low", BBox{LatMin: 0, LatMax: 1, LonMin: -181, LonMax: 0}, "longitude"},
		{"lon too high", BBox{LatMin: 0, LatMax: 1, LonMin: 170, LonMax: 180.5}, "longitude"},
		{"nan", BBox{LatMin: math.NaN(), LatMax: 1, LonMin: 0, LonMax: 1}, "bounding box"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.box.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("expected valid, got %v", err)
				}
				return
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if verr.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, verr.Field)
			}
		})
	}
}

func TestExpand(t *testing.T) {
	box := BBox{LatMin: 30.7, LatMax: 32.2, LonMin: -100.4, LonMax: -98.9}
	got := box.Expand(1)
	want := Tiles{South: 29, North: 33, West: -101, East: -97}
	if got != want {
		t.Errorf("Expand(1) = %+v, want %+v", got, want)
	}

	args := got.Args()
	wantArgs := []string{"29", "33", "-101", "-97"}
	for i := range wantArgs {
		if args[i] != wantArgs[i] {
			t.Errorf("Args()[%d] = %s, want %s", i, args[i], wantArgs[i])
		}
	}
}

func TestString(t *testing.T) {
	box := BBox{LatMin: 30, LatMax: 33.25, LonMin: 100.5, LonMax: 103}
	if got := box.String(); got != "30 33.25 100.5 103" {
		t.Errorf("String() = %q", got)
	}
}
