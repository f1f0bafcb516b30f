package engine

import (
	"github.com/cmfunderburk/vmt-dev-sub000/internal/agents"
	"github.com/cmfunderburk/vmt-dev-sub000/internal/economy"
	"github.com/cmfunderburk/vmt-dev-sub000/internal/world"
)

// trade attempts one compensating block per pair in range, visiting pairs by
// their lower id. Failure dissolves the pair with a mutual cooldown.
func (s *Simulation) trade() {
	for _, a := range s.Agents {
		partner, ok := a.Partner()
		if !ok || partner < a.ID {
			continue
		}
		b := s.Agents[partner]
		if world.ManhattanDistance(a.Pos, b.Pos) > s.Params.InteractionRadius {
			continue
		}

		blk, found := economy.FindCompensatingBlock(economy.BlockRequest{
			I:                  a.Trader(),
			J:                  b.Trader(),
			Pairs:              s.pairs,
			MaxQuantity:        s.Params.DAMax,
			MaxPriceCandidates: s.Params.PriceCandidates,
		})
		if !found {
			s.dissolve(a, b)
			continue
		}
		s.execute(blk)
	}
}

func (s *Simulation) execute(blk economy.Block) {
	seller := s.Agents[blk.SellerID]
	buyer := s.Agents[blk.BuyerID]
	seller.Inventory, buyer.Inventory = blk.Apply(seller.Inventory, buyer.Inventory)
	seller.InventoryChanged = true
	buyer.InventoryChanged = true

	s.report.Trades = append(s.report.Trades, TradeRecord{
		Tick:      s.Tick,
		SellerID:  blk.SellerID,
		BuyerID:   blk.BuyerID,
		Pair:      blk.Pair.String(),
		GivenGood: blk.Pair.Given().String(),
		PaidGood:  blk.Pair.Paid().String(),
		DGiven:    blk.DGiven,
		DPaid:     blk.DPaid,
		Price:     blk.Price,
		Ask:       blk.Ask,
		Bid:       blk.Bid,
		SellerDU:  blk.SellerDU,
		BuyerDU:   blk.BuyerDU,
	})
	s.log.Debug("trade",
		"tick", s.Tick,
		"seller", blk.SellerID,
		"buyer", blk.BuyerID,
		"pair", blk.Pair.String(),
		"d_given", blk.DGiven,
		"d_paid", blk.DPaid,
		"price", blk.Price,
	)
}

func (s *Simulation) dissolve(a, b *agents.Agent) {
	until := s.Tick + uint64(s.Params.TradeCooldownTicks)
	a.Unpair()
	b.Unpair()
	a.SetCooldown(b.ID, until)
	b.SetCooldown(a.ID, until)
	s.recordPairing(EventUnpair, a.ID, b.ID, ReasonTradeFailed)
}
