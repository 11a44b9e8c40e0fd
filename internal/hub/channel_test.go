package hub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestReadingChannel_SendReceive(t *testing.T) {
	ch := NewReadingChannel(4, 50*time.Millisecond, DropOldest)

	want := reading(SensorTemperature, 21.0)
	if err := ch.Send(want); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	got, err := ch.Receive(context.Background())
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if got != want {
		t.Errorf("Receive() = %+v, want %+v", got, want)
	}
}

func TestReadingChannel_FIFO(t *testing.T) {
	ch := NewReadingChannel(8, 50*time.Millisecond, DropOldest)

	for i := 0; i < 5; i++ {
		if err := ch.Send(reading(SensorLight, float64(i))); err != nil {
			t.Fatalf("Send(%d) error = %v", i, err)
		}
	}
	for i := 0; i < 5; i++ {
		got, err := ch.Receive(context.Background())
		if err != nil {
			t.Fatalf("Receive(%d) error = %v", i, err)
		}
		if got.Value != float64(i) {
			t.Errorf("Receive(%d).Value = %.0f, want %d", i, got.Value, i)
		}
	}
}

func TestReadingChannel_ReceiveBlocksUntilSend(t *testing.T) {
	ch := NewReadingChannel(4, 50*time.Millisecond, DropOldest)

	done := make(chan Reading, 1)
	go func() {
		r, err := ch.Receive(context.Background())
		if err != nil {
			return
		}
		done <- r
	}()

	time.Sleep(20 * time.Millisecond)
	if err := ch.Send(reading(SensorMotion, 1)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	select {
	case r := <-done:
		if r.Kind != SensorMotion {
			t.Errorf("received %+v, want motion reading", r)
		}
	case <-time.After(time.Second):
		t.Fatal("Receive() did not wake after Send()")
	}
}

func TestReadingChannel_ReceiveHonoursContext(t *testing.T) {
	ch := NewReadingChannel(4, 50*time.Millisecond, DropOldest)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := ch.Receive(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Receive() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestReadingChannel_DropOldest(t *testing.T) {
	ch := NewReadingChannel(2, 10*time.Millisecond, DropOldest)

	var mu sync.Mutex
	var drops []Reading
	ch.SetOnDrop(func(r Reading, policy DropPolicy) {
		if policy != DropOldest {
			t.Errorf("drop policy = %s, want %s", policy, DropOldest)
		}
		mu.Lock()
		drops = append(drops, r)
		mu.Unlock()
	})

	for i := 0; i < 4; i++ {
		if err := ch.Send(reading(SensorLight, float64(i))); err != nil {
			t.Fatalf("Send(%d) error = %v", i, err)
		}
	}

	// Capacity 2: readings 0 and 1 were evicted, 2 and 3 remain.
	mu.Lock()
	if len(drops) != 2 || drops[0].Value != 0 || drops[1].Value != 1 {
		t.Errorf("drops = %+v, want readings 0 and 1", drops)
	}
	mu.Unlock()

	for _, want := range []float64{2, 3} {
		got, err := ch.Receive(context.Background())
		if err != nil {
			t.Fatalf("Receive() error = %v", err)
		}
		if got.Value != want {
			t.Errorf("Receive().Value = %.0f, want %.0f", got.Value, want)
		}
	}
}

func TestReadingChannel_DropNewest(t *testing.T) {
	ch := NewReadingChannel(2, 10*time.Millisecond, DropNewest)

	var mu sync.Mutex
	var drops []Reading
	ch.SetOnDrop(func(r Reading, _ DropPolicy) {
		mu.Lock()
		drops = append(drops, r)
		mu.Unlock()
	})

	for i := 0; i < 4; i++ {
		if err := ch.Send(reading(SensorLight, float64(i))); err != nil {
			t.Fatalf("Send(%d) error = %v", i, err)
		}
	}

	mu.Lock()
	if len(drops) != 2 || drops[0].Value != 2 || drops[1].Value != 3 {
		t.Errorf("drops = %+v, want readings 2 and 3", drops)
	}
	mu.Unlock()

	for _, want := range []float64{0, 1} {
		got, err := ch.Receive(context.Background())
		if err != nil {
			t.Fatalf("Receive() error = %v", err)
		}
		if got.Value != want {
			t.Errorf("Receive().Value = %.0f, want %.0f", got.Value, want)
		}
	}
}

// Backpressure accounting: under saturation every reading is either
// delivered exactly once or dropped with exactly one callback — never
// both, never neither.
func TestReadingChannel_NoDuplicatesNoSilentLoss(t *testing.T) {
	const producers = 4
	const perProducer = 50

	ch := NewReadingChannel(8, time.Millisecond, DropOldest)

	var mu sync.Mutex
	dropped := 0
	ch.SetOnDrop(func(_ Reading, _ DropPolicy) {
		mu.Lock()
		dropped++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				// Encode producer and sequence so duplicates are detectable.
				_ = ch.Send(reading(SensorLight, float64(p*1000+i)))
			}
		}(p)
	}

	received := make(map[float64]int)
	recvDone := make(chan struct{})
	go func() {
		defer close(recvDone)
		for {
			r, err := ch.Receive(context.Background())
			if err != nil {
				return
			}
			received[r.Value]++
			time.Sleep(time.Millisecond) // slow consumer forces saturation
		}
	}()

	wg.Wait()
	ch.Close()
	<-recvDone

	for v, n := range received {
		if n != 1 {
			t.Errorf("reading %.0f delivered %d times", v, n)
		}
	}
	mu.Lock()
	total := len(received) + dropped
	mu.Unlock()
	if total != producers*perProducer {
		t.Errorf("delivered %d + dropped %d = %d, want %d", len(received), dropped, total, producers*perProducer)
	}
}

func TestReadingChannel_CloseSemantics(t *testing.T) {
	ch := NewReadingChannel(4, 50*time.Millisecond, DropOldest)

	if err := ch.Send(reading(SensorTemperature, 20.0)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if err := ch.Send(reading(SensorTemperature, 21.0)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	ch.Close()
	ch.Close() // idempotent

	// Sends fail fast after close.
	if err := ch.Send(reading(SensorTemperature, 22.0)); !errors.Is(err, ErrChannelClosed) {
		t.Errorf("Send() after close error = %v, want ErrChannelClosed", err)
	}

	// Receive drains buffered readings before reporting closed.
	for _, want := range []float64{20.0, 21.0} {
		got, err := ch.Receive(context.Background())
		if err != nil {
			t.Fatalf("Receive() during drain error = %v", err)
		}
		if got.Value != want {
			t.Errorf("Receive().Value = %.1f, want %.1f", got.Value, want)
		}
	}
	if _, err := ch.Receive(context.Background()); !errors.Is(err, ErrChannelClosed) {
		t.Errorf("Receive() after drain error = %v, want ErrChannelClosed", err)
	}
}

func TestReadingChannel_CloseWakesBlockedSender(t *testing.T) {
	ch := NewReadingChannel(1, 10*time.Second, DropOldest)
	if err := ch.Send(reading(SensorLight, 1)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	errc := make(chan error, 1)
	go func() {
		errc <- ch.Send(reading(SensorLight, 2)) // blocks on full buffer
	}()

	time.Sleep(20 * time.Millisecond)
	ch.Close()

	select {
	case err := <-errc:
		if !errors.Is(err, ErrChannelClosed) {
			t.Errorf("blocked Send() error = %v, want ErrChannelClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("blocked Send() not released by Close()")
	}
}
