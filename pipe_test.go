package tunnelgate

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestPipe_deliversInOrder(t *testing.T) {
	a, b := Pipe()
	defer a.Close()

	got := make(chan string, 16)
	b.OnMessage(func(ctx context.Context, frame []byte) {
		got <- string(frame)
	})

	for _, s := range []string{`one`, `two`, `three`} {
		if err := a.Write([]byte(s)); err != nil {
			t.Fatal(err)
		}
	}
	for _, want := range []string{`one`, `two`, `three`} {
		select {
		case s := <-got:
			if s != want {
				t.Fatalf(`got %q, want %q`, s, want)
			}
		case <-time.After(time.Second * 5):
			t.Fatal(`timed out`)
		}
	}
}

func TestPipe_buffersBeforeCallbackRegistered(t *testing.T) {
	a, b := Pipe()
	defer a.Close()

	if err := a.Write([]byte(`early`)); err != nil {
		t.Fatal(err)
	}

	got := make(chan string, 1)
	b.OnMessage(func(ctx context.Context, frame []byte) {
		got <- string(frame)
	})

	select {
	case s := <-got:
		if s != `early` {
			t.Fatalf(`got %q`, s)
		}
	case <-time.After(time.Second * 5):
		t.Fatal(`timed out`)
	}
}

func TestPipe_writeAfterCloseFails(t *testing.T) {
	a, b := Pipe()
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	if err := a.Write([]byte(`x`)); err != net.ErrClosed {
		t.Fatalf(`got %v, want net.ErrClosed`, err)
	}
	// closing either end tears down both directions
	if err := b.Write([]byte(`x`)); err != net.ErrClosed {
		t.Fatalf(`got %v, want net.ErrClosed`, err)
	}
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestPipe_writeDoesNotDeliverLocally(t *testing.T) {
	a, b := Pipe()
	defer a.Close()

	aGot := make(chan []byte, 1)
	bGot := make(chan []byte, 1)
	a.OnMessage(func(ctx context.Context, frame []byte) { aGot <- frame })
	b.OnMessage(func(ctx context.Context, frame []byte) { bGot <- frame })

	if err := a.Write([]byte(`ping`)); err != nil {
		t.Fatal(err)
	}
	select {
	case <-bGot:
	case <-time.After(time.Second * 5):
		t.Fatal(`timed out`)
	}
	select {
	case <-aGot:
		t.Fatal(`frame looped back to the writing end`)
	default:
	}
}

func TestPipe_pumpsWhileBlocked(t *testing.T) {
	a, _ := Pipe()
	defer a.Close()
	if p, ok := a.(Pumper); !ok || !p.PumpsWhileBlocked() {
		t.Fatal(`pipe must support synchronous call mode`)
	}
}
