package engine

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"
	"sort"

	"github.com/cmfunderburk/vmt-dev-sub000/internal/agents"
	"github.com/cmfunderburk/vmt-dev-sub000/internal/world"
)

// StateDigest hashes everything that determines future ticks: tick, mode,
// agents in id order, every seeded cell in row-major order and the claim
// table sorted by position. Two runs with equal digests at every tick are
// identical.
func (s *Simulation) StateDigest() string {
	h := sha256.New()
	var tmp [8]byte

	digestWriteU64(h, &tmp, s.Tick)
	h.Write([]byte(s.Mode))

	for _, a := range s.Agents {
		digestAgent(h, &tmp, a)
	}

	for _, c := range s.Grid.Cells() {
		if c.Resource.Type == world.ResourceNone {
			continue
		}
		digestWriteI64(h, &tmp, int64(c.Pos.X))
		digestWriteI64(h, &tmp, int64(c.Pos.Y))
		h.Write([]byte{byte(c.Resource.Type)})
		digestWriteI64(h, &tmp, int64(c.Resource.Amount))
		digestWriteI64(h, &tmp, int64(c.Resource.Original))
		digestWriteU64(h, &tmp, c.Resource.LastHarvested)
	}
	digestWriteU64(h, &tmp, uint64(s.Grid.ActiveCount()))

	claims := make([]world.Position, 0, len(s.Claims))
	for p := range s.Claims {
		claims = append(claims, p)
	}
	sort.Slice(claims, func(i, j int) bool { return claims[i].Less(claims[j]) })
	for _, p := range claims {
		digestWriteI64(h, &tmp, int64(p.X))
		digestWriteI64(h, &tmp, int64(p.Y))
		digestWriteI64(h, &tmp, int64(s.Claims[p]))
	}

	return hex.EncodeToString(h.Sum(nil))
}

func digestAgent(h hash.Hash, tmp *[8]byte, a *agents.Agent) {
	digestWriteI64(h, tmp, int64(a.ID))
	digestWriteI64(h, tmp, int64(a.Pos.X))
	digestWriteI64(h, tmp, int64(a.Pos.Y))
	for _, q := range a.Inventory {
		digestWriteI64(h, tmp, int64(q))
	}
	for _, q := range a.Quotes {
		digestWriteU64(h, tmp, math.Float64bits(q.Ask))
		digestWriteU64(h, tmp, math.Float64bits(q.Bid))
	}
	partner := int64(-1)
	if p, ok := a.Partner(); ok {
		partner = int64(p)
	}
	digestWriteI64(h, tmp, partner)
	if a.ForageTarget != nil {
		h.Write([]byte{1})
		digestWriteI64(h, tmp, int64(a.ForageTarget.X))
		digestWriteI64(h, tmp, int64(a.ForageTarget.Y))
	} else {
		h.Write([]byte{0})
	}
	if a.ForageCommitted {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}

	ids := make([]agents.AgentID, 0, len(a.Cooldowns))
	for id := range a.Cooldowns {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	digestWriteU64(h, tmp, uint64(len(ids)))
	for _, id := range ids {
		digestWriteI64(h, tmp, int64(id))
		digestWriteU64(h, tmp, a.Cooldowns[id])
	}
}

func digestWriteU64(h hash.Hash, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hash.Hash, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}
