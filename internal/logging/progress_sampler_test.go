package logging

import "testing"

func TestNewProgressSampler(t *testing.T) {
	tests := []struct {
		name       string
		bucketSize float64
		wantSize   float64
	}{
		{"default bucket size for zero", 0, 10},
		{"default bucket size for negative", -1, 10},
		{"custom bucket size", 25, 25},
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
	if !s.ShouldLog(5, 10) {
		t.Error("ShouldLog on nil sampler should always return true")
	}
	s.Reset()
}

func TestProgressSampler_Buckets(t *testing.T) {
	s := NewProgressSampler(10)
	emitted := 0
	for done := 0; done <= 1000; done++ {
		if s.ShouldLog(done, 1000) {
			emitted++
		}
	}
	// 0%, 10%, ..., 100%
	if emitted != 11 {
		t.Fatalf("emitted %d progress lines, want 11", emitted)
	}
	if s.ShouldLog(1000, 1000) {
		t.Fatal("completion should only log once")
	}
	s.Reset()
	if !s.ShouldLog(0, 1000) {
		t.Fatal("expected log after reset")
	}
}

func TestProgressSampler_ZeroTotal(t *testing.T) {
	s := NewProgressSampler(10)
	if !s.ShouldLog(0, 0) {
		t.Fatal("zero total should log once")
	}
	if s.ShouldLog(0, 0) {
		t.Fatal("zero total should not repeat")
	}
}
