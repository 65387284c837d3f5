package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/talgya/railworld/internal/economy"
	"github.com/talgya/railworld/internal/engine"
	"github.com/talgya/railworld/internal/world"
)

func testEngine(t *testing.T) *engine.Engine {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gen := &world.GenResult{Grid: world.NewGrid(8, 8)}
	sim := engine.NewSimulation(engine.DefaultParams(), economy.DefaultConfig(), gen, 7, logger)
	return engine.New(sim, logger)
}

// recvFrame reads one envelope off a client's send queue.
func recvFrame(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case raw := <-c.send:
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("malformed frame: %v", err)
		}
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("no frame within deadline")
	}
	return Envelope{}
}

func TestLateJoinerGetsSnapshotThenDeltas(t *testing.T) {
	eng := testEngine(t)
	h := NewHub(eng)
	go h.Run()

	// The world has been running for a while before the client shows up.
	for i := 0; i < 5; i++ {
		eng.StepOnce(nil)
	}

	c := &Client{id: "late", hub: h, send: make(chan []byte, sendBuffer)}
	h.register <- c

	env := recvFrame(t, c)
	if env.Type != "snapshot" {
		t.Fatalf("first frame %q, want snapshot", env.Type)
	}
	if env.Seq != 5 {
		t.Fatalf("join snapshot at seq %d, want 5", env.Seq)
	}

	last := env.Seq
	for i := 0; i < 3; i++ {
		h.BroadcastDelta(eng.StepOnce(nil))
		env = recvFrame(t, c)
		if env.Type != "delta" {
			t.Fatalf("frame %d is %q, want delta", i, env.Type)
		}
		if env.Seq != last+1 {
			t.Fatalf("delta seq %d after %d, gap in the stream", env.Seq, last)
		}
		last = env.Seq
	}
}

func TestSlowClientResyncsWithSnapshot(t *testing.T) {
	eng := testEngine(t)
	h := NewHub(eng)
	go h.Run()

	// The witness keeps up; receiving on it proves the hub has finished
	// each broadcast pass.
	witness := &Client{id: "witness", hub: h, send: make(chan []byte, sendBuffer)}
	h.register <- witness
	recvFrame(t, witness) // join snapshot

	// A one-frame buffer: the join snapshot fills it, so the next delta
	// cannot be queued and the client falls behind.
	slow := &Client{id: "slow", hub: h, send: make(chan []byte, 1)}
	h.register <- slow

	h.BroadcastDelta(eng.StepOnce(nil))
	if env := recvFrame(t, witness); env.Type != "delta" {
		t.Fatalf("witness got %q, want delta", env.Type)
	}

	// Drain the stale join snapshot. The missed delta must not be
	// replayed; the next broadcast replaces it with a fresh snapshot.
	if env := recvFrame(t, slow); env.Type != "snapshot" {
		t.Fatalf("slow client's first frame %q, want snapshot", env.Type)
	}

	h.BroadcastDelta(eng.StepOnce(nil))
	if env := recvFrame(t, witness); env.Type != "delta" {
		t.Fatalf("witness got %q, want delta", env.Type)
	}

	env := recvFrame(t, slow)
	if env.Type != "snapshot" {
		t.Fatalf("recovering client got %q, want snapshot", env.Type)
	}
	if want := eng.Seq(); env.Seq != want {
		t.Fatalf("recovery snapshot at seq %d, want current seq %d", env.Seq, want)
	}
}
