package gesture

import "testing"

func TestTrackerLifecycle(t *testing.T) {
	var tr Tracker[string]

	if tr.State() != Idle {
		t.Fatalf("zero tracker state = %v, want idle", tr.State())
	}
	if _, _, ok := tr.Move(1, Point{X: 5, Y: 5}); ok {
		t.Fatal("Move without Begin should be ignored")
	}

	if !tr.Begin(1, "product", Point{X: 10, Y: 20}) {
		t.Fatal("Begin on idle tracker failed")
	}
	if tr.State() != Capturing {
		t.Fatalf("state = %v, want capturing", tr.State())
	}
	if tr.Begin(2, "background", Point{}) {
		t.Fatal("second Begin should be refused while capturing")
	}

	prev, target, ok := tr.Move(1, Point{X: 15, Y: 25})
	if !ok || target != "product" || prev != (Point{X: 10, Y: 20}) {
		t.Fatalf("Move = %v %q %v", prev, target, ok)
	}
	prev, _, _ = tr.Move(1, Point{X: 18, Y: 30})
	if prev != (Point{X: 15, Y: 25}) {
		t.Errorf("prev = %v, want previous move point", prev)
	}
	if tr.Start() != (Point{X: 10, Y: 20}) {
		t.Errorf("Start = %v", tr.Start())
	}

	if _, _, ok := tr.Move(2, Point{}); ok {
		t.Error("Move from a different pointer should be ignored")
	}
	if tr.End(2) {
		t.Error("End from a different pointer should be ignored")
	}
	if !tr.End(1) {
		t.Fatal("End from capturing pointer failed")
	}
	if tr.State() != Idle || tr.Last() != (Point{}) {
		t.Errorf("after End: state %v last %v", tr.State(), tr.Last())
	}
	if _, ok := tr.Target(); ok {
		t.Error("Target reports active after End")
	}
}

func TestPointSub(t *testing.T) {
	if got := (Point{X: 5, Y: 1}).Sub(Point{X: 2, Y: 4}); got != (Point{X: 3, Y: -3}) {
		t.Errorf("Sub = %v", got)
	}
}
