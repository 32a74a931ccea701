package pipeline

import "testing"

func TestProgressIsMonotoneAndEndsAtExactlyOneHundred(t *testing.T) {
	var published []float64
	controller := newProgressController(func(percent float64) {
		published = append(published, percent)
	}, nil, "encode")

	for done := int64(1); done <= 50; done++ {
		controller.Tick(done, 50)
	}
	controller.Complete()

	if len(published) == 0 {
		t.Fatal("no progress published")
	}
	for i := 1; i < len(published); i++ {
		if published[i] < published[i-1] {
			t.Fatalf("progress regressed: %v then %v", published[i-1], published[i])
		}
	}
	if final := published[len(published)-1]; final != 100 {
		t.Fatalf("final percent = %v, want exactly 100", final)
	}
	// The last tick must not pre-announce 100; only Complete does.
	if beforeComplete := published[len(published)-2]; beforeComplete >= 100 {
		t.Fatalf("tick published %v before finalize", beforeComplete)
	}
}

func TestProgressIgnoresRegressions(t *testing.T) {
	var published []float64
	controller := newProgressController(func(percent float64) {
		published = append(published, percent)
	}, nil, "encode")

	controller.Tick(40, 100)
	controller.Tick(20, 100)
	controller.Tick(60, 100)

	if len(published) != 2 {
		t.Fatalf("published %d updates, want 2", len(published))
	}
	if published[0] != 40 || published[1] != 60 {
		t.Fatalf("published = %v", published)
	}
}

func TestProgressNilSinkIsSafe(t *testing.T) {
	controller := newProgressController(nil, nil, "encode")
	controller.Tick(1, 10)
	controller.Complete()
}
