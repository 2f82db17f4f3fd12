package diplomacy

import (
	"sort"

	"github.com/talgya/concord/internal/realm"
)

const (
	defaultSecrecy = 0.7

	// Displayed opinion of a realm hiding hostility: cordial, never warm.
	maskedOpinion = 10

	baseIntelligence    = 0.3
	embassyIntelligence = 0.3
	allyIntelligence    = 0.2
)

// maskQuality is how well a personality keeps up a false face. Zero means it does not try.
func maskQuality(p Personality) float64 {
	switch p {
	case PersonalityTreacherous:
		return 0.7
	case PersonalityOpportunistic:
		return 0.5
	default:
		return 0
	}
}

// Intelligence is how well observer reads subject's court, in [0,1]. An embassy at the
// court and an alliance both sharpen it.
func (s *Store) Intelligence(observer, subject realm.ID) float64 {
	v := baseIntelligence
	s.realms.Read(observer, func(r *Realm) {
		if st, ok := r.Relationships[subject]; ok && st.Embassy {
			v += embassyIntelligence
		}
		if r.IsAlliedWith(subject) {
			v += allyIntelligence
		}
	})
	return clamp01(v)
}

// ApparentOpinion is what observer believes subject thinks of it.
func (s *Store) ApparentOpinion(observer, subject realm.ID) int {
	return s.PerceivedOpinion(subject, observer, s.Intelligence(observer, subject))
}

// RefreshDeceptions lets scheming realms hide hostility behind a cordial face. A mask
// drops once the opinion is no longer negative or the two are at war.
func (s *Store) RefreshDeceptions() {
	s.realms.WriteAll(func(_ realm.ID, r *Realm) {
		q := maskQuality(r.Personality)
		for other, st := range r.Relationships {
			switch {
			case q == 0 || st.Opinion >= 0 || r.IsAtWarWith(other):
				st.StopHidingOpinion()
			case st.Deception == nil || st.Deception.Quality != q:
				st.SetDisplayedOpinion(maskedOpinion, q)
			}
		}
	})
}

// SecretTreaties returns every active secret treaty, ordered by ID.
func (s *Store) SecretTreaties() []Treaty {
	s.mu.RLock()
	var out []Treaty
	for _, rec := range s.pairs {
		for _, t := range rec.Treaties {
			if t.Active && t.Secret {
				out = append(out, t.clone())
			}
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
