// Command observer connects to a railworld server over WebSocket, follows
// the delta stream, and prints a rolling summary. It verifies every delta
// digest and sequence number, requesting a resync when it detects a gap,
// which makes it both a spectator client and a protocol checker.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/websocket"

	"github.com/talgya/railworld/internal/api"
	"github.com/talgya/railworld/internal/engine"
	"github.com/talgya/railworld/internal/vehicle"
)

func main() {
	url := flag.String("url", "ws://localhost:8080/ws", "railworld sync endpoint")
	summaryEvery := flag.Int("summary", 50, "print a summary every N deltas")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("observer connecting", "url", *url)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		slog.Error("connect failed", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}()

	var (
		snap    *engine.Snapshot
		lastSeq uint64
		deltas  int
		badSeqs int
		badSums int
		resyncs int
	)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			slog.Info("connection closed", "deltas", deltas, "gaps", badSeqs, "digest_failures", badSums, "resyncs", resyncs)
			return
		}

		var env api.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			slog.Warn("malformed frame", "error", err)
			continue
		}

		switch env.Type {
		case "snapshot":
			var s engine.Snapshot
			if err := json.Unmarshal(env.Data, &s); err != nil {
				slog.Error("snapshot decode failed", "error", err)
				continue
			}
			snap = &s
			lastSeq = env.Seq
			slog.Info("snapshot received",
				"seq", env.Seq,
				"tick", s.Tick,
				"companies", len(s.Companies),
				"vehicles", len(s.Vehicles),
				"stations", len(s.Stations),
			)

		case "delta":
			var d engine.TickDelta
			if err := json.Unmarshal(env.Data, &d); err != nil {
				slog.Error("delta decode failed", "error", err)
				continue
			}

			if ok, err := d.Verify(); err != nil || !ok {
				badSums++
				slog.Error("delta digest mismatch", "seq", d.Seq, "tick", d.Tick)
			}

			if lastSeq != 0 && d.Seq != lastSeq+1 {
				badSeqs++
				resyncs++
				slog.Warn("sequence gap, requesting resync", "have", lastSeq, "got", d.Seq)
				requestResync(conn)
				lastSeq = 0
				continue
			}
			lastSeq = d.Seq
			deltas++

			if snap != nil {
				apply(snap, &d)
			}
			if *summaryEvery > 0 && deltas%*summaryEvery == 0 && snap != nil {
				printSummary(snap, &d)
			}

		case "error":
			slog.Warn("server error", "data", string(env.Data))
		}
	}
}

// requestResync asks the server for a fresh snapshot.
func requestResync(conn *websocket.Conn) {
	frame, _ := json.Marshal(api.Envelope{Type: "resync"})
	conn.WriteMessage(websocket.TextMessage, frame)
}

// apply folds a delta into the locally held snapshot.
func apply(snap *engine.Snapshot, d *engine.TickDelta) {
	snap.Tick = d.Tick
	snap.Seq = d.Seq

	for _, vu := range d.Vehicles {
		for _, v := range snap.Vehicles {
			if v.ID == vu.ID {
				v.State = vu.State
				v.Node = vu.Node
				v.EdgeIndex = vu.EdgeIndex
				v.Progress = vu.Progress
				v.Cargo = vu.Cargo
				v.CargoQty = vu.CargoQty
				v.RouteIndex = vu.RouteIndex
				break
			}
		}
	}
	for _, cu := range d.Companies {
		for _, c := range snap.Companies {
			if c.ID == cu.ID {
				c.Cash = cu.Cash
				c.Reputation = cu.Reputation
				c.Bankrupt = cu.Bankrupt
				break
			}
		}
	}
	for _, pc := range d.Prices {
		snap.Market.Entries[pc.Cargo].Price = pc.Price
	}
}

// printSummary prints the world state as the observer understands it.
func printSummary(snap *engine.Snapshot, d *engine.TickDelta) {
	fmt.Printf("\n── tick %d (seq %d) ────────────────────────────\n", snap.Tick, snap.Seq)
	for _, c := range snap.Companies {
		status := ""
		if c.Bankrupt {
			status = " [BANKRUPT]"
		}
		fmt.Printf("  %-24s cash %14s  rep %5.1f%s\n",
			c.Name, humanize.Comma(c.Cash), c.Reputation, status)
	}
	moving := 0
	for _, v := range snap.Vehicles {
		if v.State == vehicle.StateMoving {
			moving++
		}
	}
	fmt.Printf("  vehicles: %d (%d moving)   events this tick: %d\n",
		len(snap.Vehicles), moving, len(d.Events))
	for _, ev := range d.Events {
		fmt.Printf("    • %s: %s\n", ev.Category, ev.Description)
	}
}
