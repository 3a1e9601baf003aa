package logging

import "testing"

func TestNewProgressSampler(t *testing.T) {
	tests := []struct {
		name       string
		bucketSize float64
		wantSize   float64
	}{
		{"default bucket size for zero", 0, 5},
		{"default bucket size for negative", -1, 5},
		{"default bucket size above 100", 150, 5},
		{"custom bucket size", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProgressSampler(tt.bucketSize)
			if s.bucketSize != tt.wantSize {
				t.Errorf("bucketSize = %v, want %v", s.bucketSize, tt.wantSize)
			}
			if s.lastBucket != -1 {
				t.Errorf("lastBucket = %d, want -1", s.lastBucket)
			}
		})
	}
}

func TestProgressSampler_NilSampler(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(50, "scan") {
		t.Error("ShouldLog on nil sampler should always return true")
	}
	s.Reset()
}

func TestProgressSampler_StageChange(t *testing.T) {
	s := NewProgressSampler(5)

	if !s.ShouldLog(0, "scan") {
		t.Error("first stage should log")
	}
	if s.ShouldLog(0, "scan") {
		t.Error("same stage and percent should not log again")
	}
	if !s.ShouldLog(0, "  convert  ") {
		t.Error("different stage should log")
	}
	if s.lastStage != "convert" {
		t.Errorf("lastStage = %q, want convert (trimmed)", s.lastStage)
	}
}

func TestProgressSampler_Observe(t *testing.T) {
	s := NewProgressSampler(5)

	steps := []struct {
		percent  float64
		emit     bool
		reported float64
	}{
		{0, true, 0},
		{3, false, 0},
		{5.2, true, 5},
		{7, false, 5},
		{23, true, 20},
		{99.9, true, 95},
		{100, true, 100},
		{130, false, 100},
	}
	for _, step := range steps {
		reported, emit := s.Observe(step.percent, "convert")
		if step.percent == 0 {
			continue // stage change always emits
		}
		if emit != step.emit {
			t.Errorf("Observe(%v) emit = %v, want %v", step.percent, emit, step.emit)
		}
		if reported != step.reported {
			t.Errorf("Observe(%v) reported = %v, want %v", step.percent, reported, step.reported)
		}
	}
}

func TestProgressSampler_NegativePercent(t *testing.T) {
	s := NewProgressSampler(5)

	if !s.ShouldLog(-1, "convert") {
		t.Error("first call should log even with negative percent")
	}
	if s.ShouldLog(-1, "convert") {
		t.Error("negative percent should not trigger bucket logging")
	}
}

func TestProgressSampler_Reset(t *testing.T) {
	s := NewProgressSampler(5)
	s.ShouldLog(50, "convert")

	s.Reset()

	if s.lastStage != "" {
		t.Errorf("lastStage = %q, want empty after reset", s.lastStage)
	}
	if s.lastBucket != -1 {
		t.Errorf("lastBucket = %d, want -1 after reset", s.lastBucket)
	}
	if !s.ShouldLog(50, "convert") {
		t.Error("should log after reset")
	}
}

func TestProgressSampler_BucketSizes(t *testing.T) {
	s := NewProgressSampler(25)
	s.ShouldLog(0, "convert")

	if s.ShouldLog(20, "convert") {
		t.Error("20% should not log")
	}
	if !s.ShouldLog(25, "convert") {
		t.Error("25% should log")
	}
	if s.ShouldLog(49, "convert") {
		t.Error("49% should not log")
	}
	if !s.ShouldLog(50, "convert") {
		t.Error("50% should log")
	}
}
