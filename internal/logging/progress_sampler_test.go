package logging

import "testing"

func TestNewProgressSamplerStep(t *testing.T) {
	for _, tc := range []struct {
		in, want int
	}{{0, 5}, {-3, 5}, {250, 5}, {10, 10}} {
		if got := NewProgressSampler(tc.in).step; got != tc.want {
			t.Fatalf("NewProgressSampler(%d).step = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestProgressSamplerNil(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(50, "uploading") {
		t.Fatal("nil sampler should log everything")
	}
	s.Reset()
}

func TestProgressSamplerThinsUploadEvents(t *testing.T) {
	s := NewProgressSampler(10)
	steps := []struct {
		percent int
		phase   string
		want    bool
	}{
		{0, "uploading", true},
		{4, "uploading", false},
		{12, "uploading", true},
		{19, "uploading", false},
		{-1, "uploading", false},
		{-1, "transcoding", true},
		{100, "transcoding", true},
		{150, "transcoding", false},
	}
	for i, st := range steps {
		if got := s.ShouldLog(st.percent, st.phase); got != st.want {
			t.Fatalf("step %d ShouldLog(%d, %q) = %v, want %v", i, st.percent, st.phase, got, st.want)
		}
	}
	s.Reset()
	if !s.ShouldLog(0, "uploading") {
		t.Fatal("reset sampler should log the first event again")
	}
}
