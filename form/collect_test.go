package form

import (
	"errors"
	"net/url"
	"strings"
	"testing"
)

func TestSchemaLengths(t *testing.T) {
	cases := map[string]int{Voice9: 9, Voice22: 22}
	for name, want := range cases {
		s, err := Lookup(name)
		if err != nil {
			t.Fatalf("lookup %s: %v", name, err)
		}
		if s.Len() != want {
			t.Errorf("%s: expected %d fields, got %d", name, want, s.Len())
		}
		seen := map[string]bool{}
		for _, f := range s.Fields {
			if seen[f.Name] {
				t.Errorf("%s: duplicate field %s", name, f.Name)
			}
			seen[f.Name] = true
		}
	}
	if _, err := Lookup("voice3"); err == nil {
		t.Fatal("expected error for unknown schema")
	}
}

func TestCollectOrderAndDefaults(t *testing.T) {
	s, _ := Lookup(Voice9)
	values := url.Values{}
	values.Set("d2", "2.3")
	values.Set("fo", "160")
	values.Set("spread1", "-5.5")

	vector, err := s.Collect(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"fo", "jitter", "shimmer", "hnr", "rpde", "dfa", "spread1", "spread2", "d2"}
	for i, name := range want {
		if vector[i].Name != name {
			t.Fatalf("position %d: expected %s, got %s", i, name, vector[i].Name)
		}
	}
	got := vector.Values()
	if got[0] != 160 || got[6] != -5.5 || got[8] != 2.3 || got[1] != 0 {
		t.Fatalf("unexpected values: %v", got)
	}
}

func TestCollectRejectsInvalid(t *testing.T) {
	s, _ := Lookup(Voice9)
	cases := map[string]url.Values{
		"below min":  {"fo": {"-1"}},
		"above max":  {"rpde": {"1.5"}},
		"spread1 >0": {"spread1": {"0.1"}},
		"not number": {"hnr": {"abc"}},
		"nan":        {"hnr": {"NaN"}},
	}
	for name, values := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Collect(values); !errors.Is(err, ErrInvalidValue) {
				t.Fatalf("expected ErrInvalidValue, got %v", err)
			}
		})
	}
}

func TestCollectMapBoundsInclusive(t *testing.T) {
	s, _ := Lookup(Voice9)
	vector, err := s.CollectMap(map[string]float64{"rpde": 1, "dfa": 2, "spread1": -10})
	if err != nil {
		t.Fatalf("inclusive bounds rejected: %v", err)
	}
	m := vector.Map()
	if m["rpde"] != 1 || m["dfa"] != 2 || m["spread1"] != -10 {
		t.Fatalf("unexpected map: %v", m)
	}
}

func TestFieldAttrs(t *testing.T) {
	s, _ := Lookup(Voice9)
	fo := s.Fields[0]
	if fo.MinAttr() != "0" || fo.MaxAttr() != "" {
		t.Fatalf("unexpected attrs: min=%q max=%q", fo.MinAttr(), fo.MaxAttr())
	}
}

func TestCollectMapRejectsUnknownKeys(t *testing.T) {
	s, _ := Lookup(Voice9)
	_, err := s.CollectMap(map[string]float64{"fo": 160, "Fo": 160, "fo_hz": 160})
	if !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
	if !strings.Contains(err.Error(), "Fo, fo_hz") {
		t.Fatalf("error should list unknown keys: %v", err)
	}
}
