// Industry production and town cargo flows. Processing industries are
// throttled proportionally by their scarcest input, so cargo is conserved:
// units consumed always equal units produced for one-to-one chains.
package engine

import "github.com/talgya/railworld/internal/world"

// stepIndustries advances every industry one tick in id order: consume
// inputs, produce outputs, exchange cargo with stations in range, and
// report supply/demand pressure to the market.
func (s *Simulation) stepIndustries(d *TickDelta) {
	for _, id := range sortedIDs(s.Industries) {
		in := s.Industries[id]

		// Throttle by the scarcest input. Raw producers have no inputs and
		// run at full rate.
		throttle := 1.0
		for _, c := range world.AllCargoTypes {
			need := in.Consumption[c]
			if need == 0 {
				continue
			}
			frac := float64(in.Stock[c]) / float64(need)
			if frac < throttle {
				throttle = frac
			}
			// Unmet input is demand pressure on the market.
			if in.Stock[c] < need {
				s.Market.AddDemand(c, float64(need-in.Stock[c]))
			}
		}

		// Inputs are consumed once per tick, however many outputs they
		// feed.
		for _, c := range world.AllCargoTypes {
			need := in.Consumption[c]
			if need == 0 {
				continue
			}
			used := int(float64(need) * throttle)
			if used > in.Stock[c] {
				used = in.Stock[c]
			}
			in.Stock[c] -= used
		}

		for _, c := range world.AllCargoTypes {
			rate := in.Production[c]
			if rate == 0 {
				continue
			}
			out := int(float64(rate) * throttle)
			if out == 0 {
				continue
			}
			room := in.StockLimit - in.Stock[c]
			if out > room {
				in.Waste[c] += out - room
				out = room
			}
			in.Stock[c] += out
		}

		s.exchangeWithStations(in)
	}
}

// exchangeWithStations moves output stock to nearby stations and pulls
// input cargo from them, in station-id order.
func (s *Simulation) exchangeWithStations(in *world.Industry) {
	near := s.stationsNear(in.Node)
	for _, c := range world.AllCargoTypes {
		if in.Produces(c) && in.Stock[c] > 0 {
			for _, sid := range near {
				moved := s.Stations[sid].Accept(c, in.Stock[c])
				in.Stock[c] -= moved
				if in.Stock[c] == 0 {
					break
				}
			}
			// Output still sitting in stock is oversupply.
			if in.Stock[c] > 0 {
				s.Market.AddSupply(c, float64(in.Stock[c]))
			}
		}
		if in.Consumes(c) {
			want := in.StockLimit - in.Stock[c]
			for _, sid := range near {
				if want <= 0 {
					break
				}
				got := s.Stations[sid].Take(c, want)
				in.Stock[c] += got
				want -= got
			}
		}
	}
}

// stepTowns spawns passengers and mail at stations in range on the supply
// cadence and feeds town appetite into the market as demand pressure.
// Deliveries themselves are absorbed directly by deliverCargo.
func (s *Simulation) stepTowns(d *TickDelta) {
	supplying := s.Params.SupplyPeriod > 0 && s.Tick%s.Params.SupplyPeriod == 0

	for _, id := range sortedIDs(s.Towns) {
		t := s.Towns[id]

		if supplying {
			near := s.stationsNear(t.Node)
			pax := t.PassengerSupply()
			mail := int(t.Population / 400)
			for _, sid := range near {
				st := s.Stations[sid]
				pax -= st.Accept(world.CargoPassengers, pax)
				mail -= st.Accept(world.CargoMail, mail)
			}
		}

		for _, c := range []world.CargoType{world.CargoFood, world.CargoGoods, world.CargoMail, world.CargoPassengers} {
			s.Market.AddDemand(c, float64(t.Demand(c))/10)
		}
	}
}

// deliverCargo hands unloaded cargo to consumers in the station's
// catchment: industries take what their stock limit allows, towns absorb
// consumer cargo outright. The remainder stays with the vehicle; station
// inventory is for pickups only, so freight never loops back on itself.
func (s *Simulation) deliverCargo(st *world.Station, c world.CargoType, qty int) int {
	if qty <= 0 {
		return 0
	}
	delivered := 0

	for _, id := range sortedIDs(s.Industries) {
		if delivered == qty {
			break
		}
		in := s.Industries[id]
		if !in.Consumes(c) || s.Grid.Distance(in.Node, st.Node) > float64(st.Catchment) {
			continue
		}
		room := in.StockLimit - in.Stock[c]
		take := min(room, qty-delivered)
		if take > 0 {
			in.Stock[c] += take
			delivered += take
		}
	}

	switch c {
	case world.CargoPassengers, world.CargoMail, world.CargoFood, world.CargoGoods:
		for _, id := range sortedIDs(s.Towns) {
			if delivered == qty {
				break
			}
			if s.Grid.Distance(s.Towns[id].Node, st.Node) <= float64(st.Catchment) {
				delivered = qty
			}
		}
	}
	return delivered
}
