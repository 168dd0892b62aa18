package logging

// ProgressSampler thins progress logging to one line per step of percent, plus
// one whenever the phase changes.
type ProgressSampler struct {
	step  int
	phase string
	mark  int
}

// NewProgressSampler returns a sampler logging every step percent. A step
// outside 1..100 falls back to 5.
func NewProgressSampler(step int) *ProgressSampler {
	if step < 1 || step > 100 {
		step = 5
	}
	return &ProgressSampler{step: step, mark: -1}
}

// ShouldLog reports whether the event deserves a log line. Negative percent
// means the phase has no measurable progress. A nil sampler logs everything.
func (s *ProgressSampler) ShouldLog(percent int, phase string) bool {
	if s == nil {
		return true
	}
	changed := phase != "" && phase != s.phase
	if changed {
		s.phase, s.mark = phase, -1
	}
	if percent < 0 {
		return changed
	}
	mark := min(percent, 100) / s.step
	if mark <= s.mark {
		return changed
	}
	s.mark = mark
	return true
}

// Reset forgets the last phase and mark.
func (s *ProgressSampler) Reset() {
	if s != nil {
		*s = ProgressSampler{step: s.step, mark: -1}
	}
}
