package sample

import (
	"errors"
	"testing"
)

func TestParseFidelity(t *testing.T) {
	tests := []struct {
		raw     string
		want    Fidelity
		wantErr error
	}{
		{raw: "25%", want: Fidelity{Number: 25, Unit: "%"}},
		{raw: " 50% ", want: Fidelity{Number: 50, Unit: "%"}},
		{raw: "100", want: Fidelity{Number: 100}},
		{raw: "100px", want: Fidelity{Number: 100, Unit: "px"}},
		{raw: "100em", want: Fidelity{Number: 100, Unit: "em"}},
		{raw: "12.5%", want: Fidelity{Number: 12.5, Unit: "%"}},
		{raw: "", wantErr: ErrMissingFidelity},
		{raw: "   ", wantErr: ErrMissingFidelity},
		{raw: "0", wantErr: ErrZeroFidelity},
		{raw: "0%", wantErr: ErrZeroFidelity},
		{raw: "0px", wantErr: ErrZeroFidelity},
		{raw: "0.0", wantErr: ErrZeroFidelity},
		{raw: "twenty-five", wantErr: ErrInvalidFidelity},
		{raw: "10px 20px", wantErr: ErrInvalidFidelity},
		{raw: "-5", wantErr: ErrInvalidFidelity},
		{raw: "url(a.png)", wantErr: ErrInvalidFidelity},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseFidelity(tt.raw)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseFidelity(%q) error = %v, want %v", tt.raw, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFidelity(%q) unexpected error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("ParseFidelity(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestFidelity_Step(t *testing.T) {
	tests := []struct {
		f     Fidelity
		width int
		want  float64
	}{
		{Fidelity{Number: 25, Unit: "%"}, 1000, 250},
		{Fidelity{Number: 50, Unit: "%"}, 2, 1},
		{Fidelity{Number: 100}, 1000, 100},
		{Fidelity{Number: 100, Unit: "em"}, 1000, 100},
	}
	for _, tt := range tests {
		if got := tt.f.Step(tt.width); got != tt.want {
			t.Errorf("%s.Step(%d) = %v, want %v", tt.f, tt.width, got, tt.want)
		}
	}
}

func TestFidelity_String(t *testing.T) {
	if got := (Fidelity{Number: 12.5, Unit: "%"}).String(); got != "12.5%" {
		t.Errorf("String() = %q", got)
	}
	if got := (Fidelity{Number: 100}).String(); got != "100" {
		t.Errorf("String() = %q", got)
	}
}

func TestResolveFidelity(t *testing.T) {
	f, err := ResolveFidelity("50%", "25%")
	if err != nil || f.Number != 50 {
		t.Errorf("call value should win, got %+v, %v", f, err)
	}

	f, err = ResolveFidelity("", "100")
	if err != nil || f.Number != 100 || f.IsPercentage() {
		t.Errorf("fallback should be used, got %+v, %v", f, err)
	}

	if _, err := ResolveFidelity("", "0"); !errors.Is(err, ErrZeroFidelity) {
		t.Errorf("zero fallback error = %v, want ErrZeroFidelity", err)
	}
	if _, err := ResolveFidelity("0", "25%"); !errors.Is(err, ErrZeroFidelity) {
		t.Errorf("zero call value error = %v, want ErrZeroFidelity", err)
	}
	if _, err := ResolveFidelity("", ""); !errors.Is(err, ErrMissingFidelity) {
		t.Errorf("missing error = %v, want ErrMissingFidelity", err)
	}
}
