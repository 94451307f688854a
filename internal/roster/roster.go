package roster

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"slices"

	"aoe-stats/internal/domain"

	"github.com/pelletier/go-toml/v2"
)

//go:embed default.toml
var defaultRoster []byte

type Roster struct {
	players []domain.Player
	ids     map[string]struct{}
	names   map[string]domain.Player
}

func New(players []domain.Player) (*Roster, error) {
	if len(players) == 0 {
		return nil, fmt.Errorf("roster is empty")
	}

	r := &Roster{
		players: slices.Clone(players),
		ids:     make(map[string]struct{}, len(players)),
		names:   make(map[string]domain.Player, len(players)),
	}
	for i, p := range players {
		if p.Name == "" || p.ExternalID == "" {
			return nil, fmt.Errorf("roster entry %d: name and external_id are required", i)
		}
		if _, dup := r.names[p.Name]; dup {
			return nil, fmt.Errorf("roster entry %d: duplicate name %q", i, p.Name)
		}
		r.ids[p.ExternalID] = struct{}{}
		r.names[p.Name] = p
	}
	return r, nil
}

// Players returns the roster in configured order.
func (r *Roster) Players() []domain.Player {
	return slices.Clone(r.players)
}

func (r *Roster) Len() int {
	return len(r.players)
}

func (r *Roster) Contains(externalID string) bool {
	_, ok := r.ids[externalID]
	return ok
}

func (r *Roster) ByName(name string) (domain.Player, bool) {
	p, ok := r.names[name]
	return p, ok
}

// SyncTargets returns one player per distinct external id, first entry wins.
// Several roster names can point at the same account.
func (r *Roster) SyncTargets() []domain.Player {
	seen := make(map[string]struct{}, len(r.players))
	var out []domain.Player
	for _, p := range r.players {
		if _, ok := seen[p.ExternalID]; ok {
			continue
		}
		seen[p.ExternalID] = struct{}{}
		out = append(out, p)
	}
	return out
}

type Denylist map[string]struct{}

func NewDenylist(ids ...string) Denylist {
	d := make(Denylist, len(ids))
	for _, id := range ids {
		d[id] = struct{}{}
	}
	return d
}

func (d Denylist) Contains(matchID string) bool {
	_, ok := d[matchID]
	return ok
}

func (d Denylist) IDs() []string {
	ids := make([]string, 0, len(d))
	for id := range d {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

type file struct {
	Players  []domain.Player `toml:"players"`
	Denylist struct {
		MatchIDs []string `toml:"match_ids"`
	} `toml:"denylist"`
}

// Parse decodes a roster document. Unknown keys are rejected so typos in the
// hand-maintained file fail loudly.
func Parse(data []byte) (*Roster, Denylist, error) {
	var f file
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, nil, fmt.Errorf("failed to decode roster: %w", err)
	}

	r, err := New(f.Players)
	if err != nil {
		return nil, nil, err
	}
	for _, id := range f.Denylist.MatchIDs {
		if !domain.ValidMatchID(id) {
			return nil, nil, fmt.Errorf("denylist: invalid match id %q", id)
		}
	}
	return r, NewDenylist(f.Denylist.MatchIDs...), nil
}

// Load reads the roster from path, or the embedded default when path is empty.
func Load(path string) (*Roster, Denylist, error) {
	if path == "" {
		return Parse(defaultRoster)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read roster %s: %w", path, err)
	}
	return Parse(data)
}
