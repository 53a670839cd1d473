package policy

import "sync/atomic"

// SafelistEntry records the two independent flags a safelisted npub can
// carry: filter_bypass short-circuits to Accept before custom rules run,
// post_allowed is required for any publication that is not accepted
// earlier (by the IP whitelist or filter_bypass).
type SafelistEntry struct {
	FilterBypass bool
	PostAllowed  bool
}

// KindBlacklistEntry matches either a single kind value (Min == Max) or an
// inclusive range of kinds.
type KindBlacklistEntry struct {
	ID      int64
	Enabled bool
	Min     int64
	Max     int64
}

func (e KindBlacklistEntry) matches(kind int64) bool {
	return e.Enabled && kind >= e.Min && kind <= e.Max
}

// Lists is an immutable snapshot of the admin-managed access lists the
// pipeline's IP/npub/kind-blacklist/safelist layers consult. A new
// snapshot replaces the old one atomically (§5 "rule store snapshots"
// design note applies identically here), so pipeline reads never block
// on an admin write.
type Lists struct {
	BannedIPs     map[string]bool
	WhitelistIPs  map[string]bool
	BannedNpubs   map[string]bool
	KindBlacklist []KindBlacklistEntry
	Safelist      map[string]SafelistEntry
}

// Store holds the current Lists snapshot behind an atomic pointer.
type Store struct {
	current atomic.Pointer[Lists]
}

// NewStore creates a Store seeded with an empty snapshot.
func NewStore() *Store {
	s := &Store{}
	s.current.Store(&Lists{
		BannedIPs:    map[string]bool{},
		WhitelistIPs: map[string]bool{},
		BannedNpubs:  map[string]bool{},
		Safelist:     map[string]SafelistEntry{},
	})
	return s
}

// Swap atomically installs a new snapshot, as produced by a reload from
// the admin repository.
func (s *Store) Swap(l *Lists) {
	s.current.Store(l)
}

// Get returns the current snapshot. Callers must not mutate it.
func (s *Store) Get() *Lists {
	return s.current.Load()
}

func (l *Lists) ipBanned(ip string) bool      { return l.BannedIPs[ip] }
func (l *Lists) ipWhitelisted(ip string) bool { return l.WhitelistIPs[ip] }
func (l *Lists) npubBanned(npub string) bool  { return l.BannedNpubs[npub] }

func (l *Lists) matchKindBlacklist(kind int64) (int64, bool) {
	for _, e := range l.KindBlacklist {
		if e.matches(kind) {
			return e.ID, true
		}
	}
	return 0, false
}

func (l *Lists) safelistEntry(npub string) (SafelistEntry, bool) {
	e, ok := l.Safelist[npub]
	return e, ok
}
