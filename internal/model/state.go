package model

import "time"

// CooldownRecord is the persisted per-symbol signal state plus the two
// daily idempotence stamps. Day stamps are YYYY-MM-DD in the report timezone.
type CooldownRecord struct {
	Cooldowns       map[string]map[SignalKind]time.Time `json:"cooldowns"`
	LastDailyReport string                              `json:"last_daily"`
	LastHeartbeat   string                              `json:"last_heartbeat"`
}

// NewCooldownRecord returns an empty record.
func NewCooldownRecord() *CooldownRecord {
	return &CooldownRecord{Cooldowns: make(map[string]map[SignalKind]time.Time)}
}

// Clone returns a deep copy.
func (r *CooldownRecord) Clone() *CooldownRecord {
	out := &CooldownRecord{
		Cooldowns:       make(map[string]map[SignalKind]time.Time, len(r.Cooldowns)),
		LastDailyReport: r.LastDailyReport,
		LastHeartbeat:   r.LastHeartbeat,
	}
	for sym, kinds := range r.Cooldowns {
		m := make(map[SignalKind]time.Time, len(kinds))
		for k, ts := range kinds {
			m[k] = ts
		}
		out.Cooldowns[sym] = m
	}
	return out
}
