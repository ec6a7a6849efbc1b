package download

import (
	"slices"
	"strings"

	"github.com/vmunix/reelarr/internal/catalog"
)

// Preferences are ordered quality and type lists. Lower index wins.
type Preferences struct {
	Qualities []string
	Types     []string
}

// Narrow returns preferences where a non-empty explicit quality or type
// replaces the corresponding list.
func (p Preferences) Narrow(quality, typ string) Preferences {
	out := p
	if q := strings.TrimSpace(quality); q != "" {
		out.Qualities = []string{q}
	}
	if t := strings.TrimSpace(typ); t != "" {
		out.Types = []string{t}
	}
	return out
}

// Select picks the best torrent by quality rank, then type rank. Torrents whose
// quality or type is not listed are excluded. Ties keep the first candidate.
func Select(torrents []catalog.Torrent, prefs Preferences) (catalog.Torrent, error) {
	best := -1
	bestQ, bestT := 0, 0
	for i, t := range torrents {
		q := rank(prefs.Qualities, t.Quality)
		ty := rank(prefs.Types, t.Type)
		if q < 0 || ty < 0 {
			continue
		}
		if best < 0 || q < bestQ || (q == bestQ && ty < bestT) {
			best, bestQ, bestT = i, q, ty
		}
	}
	if best < 0 {
		return catalog.Torrent{}, ErrNoAcceptableTorrent
	}
	return torrents[best], nil
}

func rank(list []string, v string) int {
	return slices.IndexFunc(list, func(s string) bool {
		return strings.EqualFold(s, v)
	})
}
