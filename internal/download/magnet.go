package download

import (
	"fmt"

	"github.com/anacrolix/torrent/metainfo"
)

// Magnet builds a magnet URI for the info-hash with a display name and trackers.
func Magnet(hash, name string, trackers []string) (string, error) {
	if len(trackers) == 0 {
		return "", ErrNoTrackers
	}
	var h metainfo.Hash
	if err := h.FromHexString(hash); err != nil {
		return "", fmt.Errorf("%w %q: %v", ErrInvalidHash, hash, err)
	}
	m := metainfo.Magnet{
		InfoHash:    h,
		Trackers:    trackers,
		DisplayName: name,
	}
	return m.String(), nil
}
