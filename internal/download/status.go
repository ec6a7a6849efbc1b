package download

import (
	"context"
	"errors"
	"time"

	"github.com/vmunix/reelarr/internal/catalog"
	"github.com/vmunix/reelarr/pkg/transmission"
)

// LiveStatus is the current view of a movie's download.
type LiveStatus struct {
	Code        string
	Name        string
	JobID       int64
	Quality     string
	Type        string
	Status      catalog.DownloadStatus
	StartedAt   time.Time
	Finished    bool // daemon work is over; placement may still be pending confirmation
	PercentDone float64
	Stalled     bool
	ETA         time.Duration // zero when unknown
	Files       []string
}

// LiveStatus reports the download's progress. Only a Started download queries
// the daemon; anything later, or a job the daemon no longer has, is reported
// as finished.
func (s *Service) LiveStatus(ctx context.Context, code string) (*LiveStatus, error) {
	code = catalog.NormalizeCode(code)
	m, err := s.store.FindByCode(ctx, code)
	if err != nil {
		return nil, &Error{Op: "status", Code: code, Err: err}
	}
	d := m.Download
	if d == nil {
		return nil, &Error{Op: "status", Code: code, Err: ErrNotDownloading}
	}

	st := &LiveStatus{
		Code:      m.Code,
		Name:      d.Name,
		JobID:     d.JobID,
		Quality:   d.Quality,
		Type:      d.Type,
		Status:    d.Status(),
		StartedAt: d.StartedAt(),
	}
	if d.Live != nil {
		st.Files = d.Live.Files
	}
	if st.Status != catalog.StatusStarted {
		return st.finished(), nil
	}

	info, err := s.daemon.GetTorrent(ctx, d.JobID)
	if errors.Is(err, transmission.ErrNotFound) {
		return st.finished(), nil
	}
	if err != nil {
		return nil, &Error{Op: "status", Code: code, Quality: d.Quality, Type: d.Type, JobID: d.JobID, Err: err}
	}

	st.PercentDone = info.PercentDone
	st.Stalled = info.IsStalled
	if info.ETA > 0 {
		st.ETA = time.Duration(info.ETA) * time.Second
	}
	st.Files = info.FileNames()
	return st, nil
}

func (st *LiveStatus) finished() *LiveStatus {
	st.Finished = true
	st.PercentDone = 1
	st.Stalled = false
	st.ETA = 0
	return st
}
