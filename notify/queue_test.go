package notify_test

import (
	"slices"
	"sync"
	"testing"

	"i4.energy/across/vmu/notify"
)

func TestDrainOnePriority(t *testing.T) {
	tests := []struct {
		name     string
		requests []notify.Kind
		expected []notify.Kind
	}{
		{
			name:     "Single status",
			requests: []notify.Kind{notify.KindStatus},
			expected: []notify.Kind{notify.KindStatus},
		},
		{
			name:     "Environment before status",
			requests: []notify.Kind{notify.KindStatus, notify.KindEnvironment},
			expected: []notify.Kind{notify.KindEnvironment, notify.KindStatus},
		},
		{
			name:     "Alerts in fixed order",
			requests: []notify.Kind{notify.KindCharge, notify.KindTrunk, notify.KindAlarm, notify.KindLow12V},
			expected: []notify.Kind{notify.KindAlarm, notify.KindLow12V, notify.KindTrunk, notify.KindCharge},
		},
		{
			name:     "Repeated requests collapse",
			requests: []notify.Kind{notify.KindStatus, notify.KindStatus, notify.KindStatus},
			expected: []notify.Kind{notify.KindStatus},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := notify.NewQueue()
			for _, k := range tt.requests {
				q.Request(k)
			}

			var got []notify.Kind
			for {
				n, ok := q.DrainOne()
				if !ok {
					break
				}
				got = append(got, n.Kind)
			}
			if !slices.Equal(got, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestDrainOneReturnsOneKindPerCall(t *testing.T) {
	q := notify.NewQueue()
	q.Request(notify.KindStatus)
	q.Request(notify.KindEnvironment)
	q.RequestError(3, 7)

	n, ok := q.DrainOne()
	if !ok || n.Kind != notify.KindErrorCode || n.Code != 3 || n.Data != 7 {
		t.Fatalf("Expected error code 3/7 first, got %+v (ok=%v)", n, ok)
	}
	if pending := q.Pending(); !slices.Equal(pending, []notify.Kind{notify.KindEnvironment, notify.KindStatus}) {
		t.Errorf("Expected environment and status to stay pending, got %v", pending)
	}
}

func TestRequestErrorSuppression(t *testing.T) {
	q := notify.NewQueue()

	if !q.RequestError(4, 1) {
		t.Fatal("First error must be accepted")
	}
	q.DrainOne()

	if q.RequestError(4, 1) {
		t.Error("Identical error inside the window must be suppressed")
	}
	if _, ok := q.DrainOne(); ok {
		t.Error("Suppressed error must not be pending")
	}

	for i := 0; i < notify.ErrorSuppression; i++ {
		q.Tick()
	}
	if !q.RequestError(4, 1) {
		t.Error("Error must be accepted again after the window")
	}
}

func TestRequestErrorDifferentData(t *testing.T) {
	q := notify.NewQueue()
	q.RequestError(4, 1)
	if !q.RequestError(4, 2) {
		t.Error("Different data must not be suppressed")
	}
	n, _ := q.DrainOne()
	if n.Data != 2 {
		t.Errorf("Expected latest data 2, got %d", n.Data)
	}
}

func TestParseKind(t *testing.T) {
	for k := notify.KindErrorCode; k <= notify.KindStatus; k++ {
		got, ok := notify.ParseKind(k.String())
		if !ok || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), got, ok)
		}
	}
	if _, ok := notify.ParseKind("bogus"); ok {
		t.Error("Expected unknown kind to fail")
	}
}

func TestQueueConcurrentRequests(t *testing.T) {
	q := notify.NewQueue()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Request(notify.KindCharge)
			q.Tick()
		}()
	}
	wg.Wait()

	n, ok := q.DrainOne()
	if !ok || n.Kind != notify.KindCharge {
		t.Errorf("Expected charge, got %+v", n)
	}
	if _, ok := q.DrainOne(); ok {
		t.Error("Expected queue to be empty")
	}
}
