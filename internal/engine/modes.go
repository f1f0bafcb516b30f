package engine

import "github.com/cmfunderburk/vmt-dev-sub000/internal/scenario"

// Mode gates which of the trade and forage phases run on a tick.
type Mode string

const (
	ModeBoth   Mode = "both"
	ModeForage Mode = "forage"
	ModeTrade  Mode = "trade"
)

// AllowsTrade reports whether pairing and trading happen in m.
func (m Mode) AllowsTrade() bool { return m != ModeForage }

// AllowsForage reports whether forage targeting and harvesting happen in m.
func (m Mode) AllowsForage() bool { return m != ModeTrade }

// ModeAt returns the mode for a 1-based tick. Without a schedule every tick
// is ModeBoth; a global cycle alternates forage_ticks and trade_ticks blocks
// starting with start_mode.
func ModeAt(sched *scenario.ModeSchedule, tick uint64) Mode {
	if sched == nil || sched.ForageTicks < 1 || sched.TradeTicks < 1 {
		return ModeBoth
	}
	first, second := ModeForage, ModeTrade
	firstLen := uint64(sched.ForageTicks)
	if sched.StartMode == string(ModeTrade) {
		first, second = ModeTrade, ModeForage
		firstLen = uint64(sched.TradeTicks)
	}
	cycle := uint64(sched.ForageTicks + sched.TradeTicks)
	if tick == 0 {
		tick = 1
	}
	if (tick-1)%cycle < firstLen {
		return first
	}
	return second
}
