// Tick deltas: the per-tick change set broadcast to sync clients. The
// digest lets a client verify its applied state matches the server's
// without shipping a full snapshot.
package engine

import (
	"encoding/hex"
	"encoding/json"

	"lukechampine.com/blake3"

	"github.com/talgya/railworld/internal/economy"
	"github.com/talgya/railworld/internal/vehicle"
	"github.com/talgya/railworld/internal/world"
)

// VehicleUpdate is one vehicle's post-tick position and state.
type VehicleUpdate struct {
	ID         uint64          `json:"id"`
	State      vehicle.State   `json:"state"`
	Node       world.NodeID    `json:"node"`
	EdgeIndex  int             `json:"edge_index"`
	Progress   float64         `json:"progress"`
	Cargo      world.CargoType `json:"cargo"`
	CargoQty   int             `json:"cargo_qty"`
	RouteIndex int             `json:"route_index"`
}

// CargoTransfer is one load or unload at a station.
type CargoTransfer struct {
	Vehicle uint64          `json:"vehicle"`
	Station uint64          `json:"station"`
	Cargo   world.CargoType `json:"cargo"`
	Qty     int             `json:"qty"`
	Unload  bool            `json:"unload"`
	Revenue int64           `json:"revenue,omitempty"`
}

// CompanyUpdate is one company's post-tick balance sheet.
type CompanyUpdate struct {
	ID         uint64  `json:"id"`
	Cash       int64   `json:"cash"`
	Reputation float64 `json:"reputation"`
	Bankrupt   bool    `json:"bankrupt"`
}

// TickDelta describes everything that changed in one tick. Slices are
// ordered (command arrival order, then entity-id order) so serialization
// is deterministic and the digest is reproducible.
type TickDelta struct {
	Seq  uint64 `json:"seq"`
	Tick uint64 `json:"tick"`

	Commands  []CommandResult       `json:"commands,omitempty"`
	Vehicles  []VehicleUpdate       `json:"vehicles,omitempty"`
	Transfers []CargoTransfer       `json:"transfers,omitempty"`
	Prices    []economy.PriceChange `json:"prices,omitempty"`
	Companies []CompanyUpdate       `json:"companies,omitempty"`
	Events    []Event               `json:"events,omitempty"`

	Digest string `json:"digest"`
}

// Seal computes the delta's digest over its canonical JSON encoding with
// the digest field empty. Call once, after the delta is complete.
func (d *TickDelta) Seal() error {
	d.Digest = ""
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	sum := blake3.Sum256(raw)
	d.Digest = hex.EncodeToString(sum[:])
	return nil
}

// Verify recomputes the digest and reports whether it matches. Used by
// observer clients after applying the delta.
func (d *TickDelta) Verify() (bool, error) {
	want := d.Digest
	if err := d.Seal(); err != nil {
		return false, err
	}
	return d.Digest == want, nil
}
