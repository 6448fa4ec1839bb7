package bus

import (
	"sync"
	"testing"

	"github.com/rfnet/nfctap/internal/conftree"
	"github.com/rfnet/nfctap/internal/logging"
)

func newTestRegistry() *Registry {
	return NewRegistry(logging.NopLogger())
}

func TestNamed_SameNameSameInstance(t *testing.T) {
	reg := newTestRegistry()

	a, err := Named[Event](reg, "radio.status")
	if err != nil {
		t.Fatalf("first lookup: %v", err)
	}
	b, err := Named[Event](reg, "radio.status")
	if err != nil {
		t.Fatalf("second lookup: %v", err)
	}
	if a != b {
		t.Error("repeated lookups with the same name must yield the same instance")
	}
}

func TestNamed_IndependentNames(t *testing.T) {
	reg := newTestRegistry()

	a, _ := Named[Event](reg, "radio.command")
	b, _ := Named[Event](reg, "decoder.command")
	if a == b {
		t.Error("different names must yield different subjects")
	}
}

func TestNamed_TypeMismatch(t *testing.T) {
	reg := newTestRegistry()

	if _, err := Named[Event](reg, "decoder.frame"); err != nil {
		t.Fatalf("first lookup: %v", err)
	}
	if _, err := Named[int](reg, "decoder.frame"); err == nil {
		t.Error("lookup with a different element type must fail")
	}
}

func TestSubject_FanOutInSubscriptionOrder(t *testing.T) {
	reg := newTestRegistry()
	subject, _ := Named[int](reg, "fanout")

	var order []string
	subject.Subscribe(func(int) { order = append(order, "first") })
	subject.Subscribe(func(int) { order = append(order, "second") })
	subject.Subscribe(func(int) { order = append(order, "third") })

	subject.Publish(1)

	want := []string{"first", "second", "third"}
	if len(order) != len(want) {
		t.Fatalf("expected %d deliveries, got %d", len(want), len(order))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("delivery %d: got %s, want %s", i, order[i], want[i])
		}
	}
}

func TestSubject_EachSubscriberReceivesEveryValueOnce(t *testing.T) {
	reg := newTestRegistry()
	subject, _ := Named[int](reg, "values")

	const subscribers = 3
	counts := make([]int, subscribers)
	for i := 0; i < subscribers; i++ {
		i := i
		subject.Subscribe(func(int) { counts[i]++ })
	}

	for v := 0; v < 5; v++ {
		subject.Publish(v)
	}

	for i, c := range counts {
		if c != 5 {
			t.Errorf("subscriber %d received %d values, want 5", i, c)
		}
	}
}

func TestSubscription_CancelLeavesOthersUnaffected(t *testing.T) {
	reg := newTestRegistry()
	subject, _ := Named[int](reg, "cancel")

	var a, b int
	subA := subject.Subscribe(func(int) { a++ })
	subject.Subscribe(func(int) { b++ })

	subject.Publish(1)
	subA.Cancel()
	subA.Cancel() // repeated cancel is a no-op
	subject.Publish(2)

	if a != 1 {
		t.Errorf("cancelled subscriber received %d values, want 1", a)
	}
	if b != 2 {
		t.Errorf("remaining subscriber received %d values, want 2", b)
	}
	if n := subject.SubscriberCount(); n != 1 {
		t.Errorf("subscriber count: got %d, want 1", n)
	}
}

func TestSubject_PanicIsolated(t *testing.T) {
	reg := newTestRegistry()
	subject, _ := Named[int](reg, "faulty")

	delivered := false
	subject.Subscribe(func(int) { panic("subscriber fault") })
	subject.Subscribe(func(int) { delivered = true })

	subject.Publish(1) // must not panic

	if !delivered {
		t.Error("a faulting subscriber must not prevent delivery to the rest")
	}
}

func TestSubject_ConcurrentPublishAndSubscribe(t *testing.T) {
	reg := newTestRegistry()
	subject, _ := Named[int](reg, "concurrent")

	var mu sync.Mutex
	received := 0
	subject.Subscribe(func(int) {
		mu.Lock()
		received++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				subject.Publish(j)
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if received != 400 {
		t.Errorf("received %d values, want 400", received)
	}
}

func TestEvent_CompleteFiresOnce(t *testing.T) {
	fired := 0
	ev := NewEvent(1).WithCompletion(func() { fired++ }, nil)

	ev.Complete()
	ev.Complete()

	if fired != 1 {
		t.Errorf("success continuation fired %d times, want 1", fired)
	}
}

func TestEvent_SuccessXorFailure(t *testing.T) {
	tests := []struct {
		name  string
		first func(Event)
		want  string
	}{
		{"complete then fail", func(e Event) { e.Complete(); e.Fail() }, "success"},
		{"fail then complete", func(e Event) { e.Fail(); e.Complete() }, "failure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var outcome string
			ev := NewEvent(2).WithCompletion(
				func() { outcome = "success" },
				func() { outcome = "failure" },
			)
			tt.first(ev)
			if outcome != tt.want {
				t.Errorf("outcome: got %s, want %s", outcome, tt.want)
			}
		})
	}
}

func TestEvent_NoCompletionIsSafe(t *testing.T) {
	ev := NewEvent(3).WithPayload(conftree.Tree{"gainValue": 3})
	ev.Complete()
	ev.Fail()
	if ev.Payload["gainValue"] != 3 {
		t.Error("payload lost")
	}
}
