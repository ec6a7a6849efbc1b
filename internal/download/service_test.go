package download_test

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/anacrolix/torrent/metainfo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/vmunix/reelarr/internal/catalog"
	"github.com/vmunix/reelarr/internal/download"
	"github.com/vmunix/reelarr/internal/download/mocks"
	"github.com/vmunix/reelarr/internal/events"
	"github.com/vmunix/reelarr/internal/migrations"
	"github.com/vmunix/reelarr/pkg/transmission"
	_ "modernc.org/sqlite"
)

const (
	code     = "tt0000001"
	hash1080 = "1111111111111111111111111111111111111111"
	hash720  = "2222222222222222222222222222222222222222"
)

var trackers = []string{"udp://tracker.example:1337/announce"}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(ctx context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

type fixture struct {
	store   *catalog.Store
	daemon  *mocks.MockDaemon
	org     *mocks.MockOrganizer
	confirm *mocks.MockConfirmer
	bus     *recorder
	svc     *download.Service
}

func newFixture(t *testing.T, cfg download.Config) *fixture {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(migrations.InitialSQL)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	f := &fixture{
		store:   catalog.NewStore(db),
		daemon:  mocks.NewMockDaemon(ctrl),
		org:     mocks.NewMockOrganizer(ctrl),
		confirm: mocks.NewMockConfirmer(ctrl),
		bus:     &recorder{},
	}
	f.svc = download.NewService(f.store, f.daemon, f.org, f.confirm, f.bus, cfg, testLogger())

	meta := catalog.Meta{Title: "Foo", Year: 2020, Source: "yts", SourceTime: time.Unix(1000, 0)}
	require.NoError(t, f.store.UpsertMeta(context.Background(), code, meta, []catalog.Torrent{
		{Source: "yts", Hash: hash720, Quality: "720p", Type: "bluray"},
		{Source: "yts", Hash: hash1080, Quality: "1080p", Type: "web"},
	}))
	return f
}

func defaultConfig() download.Config {
	return download.Config{
		Preferences: download.Preferences{Qualities: []string{"1080p", "720p"}, Types: []string{"bluray", "web"}},
		Trackers:    trackers,
	}
}

func (f *fixture) seedDownload(t *testing.T, live *catalog.LiveStats, statuses ...catalog.DownloadStatus) {
	t.Helper()
	d := &catalog.Download{JobID: 42, Name: "Foo (2020)", Magnet: "magnet:?xt=urn:btih:" + hash1080,
		Source: "yts", Quality: "1080p", Type: "web", Live: live}
	at := time.Now().Add(-time.Hour)
	for i, s := range statuses {
		d.Events = append(d.Events, catalog.StatusEvent{Status: s, At: at.Add(time.Duration(i) * time.Minute)})
	}
	require.NoError(t, f.store.ReplaceDownload(context.Background(), code, d))
}

func (f *fixture) status(t *testing.T) catalog.DownloadStatus {
	t.Helper()
	m, err := f.store.FindByCode(context.Background(), code)
	require.NoError(t, err)
	require.NotNil(t, m.Download)
	return m.Download.Status()
}

func assertDownloadError(t *testing.T, err error, op string, sentinel error) {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	var de *download.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, op, de.Op)
	assert.Equal(t, code, de.Code)
}

func TestService_Start(t *testing.T) {
	f := newFixture(t, defaultConfig())
	ctx := context.Background()

	f.daemon.EXPECT().ListTorrents(gomock.Any()).Return([]transmission.TorrentInfo{{ID: 1, Name: "Other (1999)"}}, nil)
	f.daemon.EXPECT().AddTorrent(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, uri string) (*transmission.NewTorrentInfo, error) {
			m, err := metainfo.ParseMagnetUri(uri)
			require.NoError(t, err)
			assert.Equal(t, hash1080, m.InfoHash.HexString())
			assert.Equal(t, "Foo (2020)", m.DisplayName)
			assert.Equal(t, trackers, m.Trackers)
			return &transmission.NewTorrentInfo{ID: 7, Name: "Foo (2020)"}, nil
		})

	d, err := f.svc.Start(ctx, " TT0000001 ", download.Request{})
	require.NoError(t, err)
	assert.Equal(t, int64(7), d.JobID)
	assert.Equal(t, "1080p", d.Quality)
	assert.Equal(t, "web", d.Type)

	m, err := f.store.FindByCode(ctx, code)
	require.NoError(t, err)
	require.NotNil(t, m.Download)
	assert.Equal(t, catalog.StatusStarted, m.Download.Status())
	assert.Equal(t, int64(7), m.Download.JobID)
	assert.True(t, strings.HasPrefix(m.Download.Magnet, "magnet:?"))

	require.Len(t, f.bus.events, 1)
	started, ok := f.bus.events[0].(*events.DownloadStarted)
	require.True(t, ok)
	assert.Equal(t, code, started.Code)
	assert.Equal(t, int64(7), started.JobID)
}

func TestService_Start_ExplicitQuality(t *testing.T) {
	f := newFixture(t, defaultConfig())

	f.daemon.EXPECT().ListTorrents(gomock.Any()).Return(nil, nil)
	f.daemon.EXPECT().AddTorrent(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, uri string) (*transmission.NewTorrentInfo, error) {
			assert.Contains(t, uri, hash720)
			return &transmission.NewTorrentInfo{ID: 8}, nil
		})

	d, err := f.svc.Start(context.Background(), code, download.Request{Quality: "720p"})
	require.NoError(t, err)
	assert.Equal(t, "720p", d.Quality)
	assert.Equal(t, "bluray", d.Type)
}

func TestService_Start_AlreadyDownloaded(t *testing.T) {
	f := newFixture(t, defaultConfig())
	ctx := context.Background()
	require.NoError(t, f.store.SetLocalSource(ctx, code, catalog.LocalSource{Source: "plex", SourceTime: time.Unix(5, 0)}))

	// No daemon expectations: any daemon call fails the test.
	_, err := f.svc.Start(ctx, code, download.Request{})
	assertDownloadError(t, err, "start", download.ErrAlreadyDownloaded)
}

func TestService_Start_AlreadyDownloading(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.seedDownload(t, nil, catalog.StatusStarted)

	_, err := f.svc.Start(context.Background(), code, download.Request{})
	assertDownloadError(t, err, "start", download.ErrAlreadyDownloading)
	var de *download.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, int64(42), de.JobID)
}

func TestService_Start_NoAcceptableTorrent(t *testing.T) {
	f := newFixture(t, defaultConfig())

	_, err := f.svc.Start(context.Background(), code, download.Request{Quality: "2160p"})
	assertDownloadError(t, err, "start", download.ErrNoAcceptableTorrent)
	assert.Contains(t, err.Error(), "2160p")
}

func TestService_Start_NoTrackers(t *testing.T) {
	cfg := defaultConfig()
	cfg.Trackers = nil
	f := newFixture(t, cfg)

	_, err := f.svc.Start(context.Background(), code, download.Request{})
	assertDownloadError(t, err, "start", download.ErrNoTrackers)
}

func TestService_Start_UnknownMovie(t *testing.T) {
	f := newFixture(t, defaultConfig())

	_, err := f.svc.Start(context.Background(), "tt9999999", download.Request{})
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestService_Start_DuplicateName(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.daemon.EXPECT().ListTorrents(gomock.Any()).Return([]transmission.TorrentInfo{{ID: 3, Name: "Foo (2020)"}}, nil)

	_, err := f.svc.Start(context.Background(), code, download.Request{})
	assertDownloadError(t, err, "start", download.ErrDuplicateTorrent)

	m, err := f.store.FindByCode(context.Background(), code)
	require.NoError(t, err)
	assert.Nil(t, m.Download)
}

func TestService_Start_DaemonReportsDuplicate(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.daemon.EXPECT().ListTorrents(gomock.Any()).Return(nil, nil)
	f.daemon.EXPECT().AddTorrent(gomock.Any(), gomock.Any()).
		Return(&transmission.NewTorrentInfo{ID: 5, Duplicate: true}, nil)

	_, err := f.svc.Start(context.Background(), code, download.Request{})
	assertDownloadError(t, err, "start", download.ErrDuplicateTorrent)
	assert.Empty(t, f.bus.events)
}

func TestService_Start_DaemonFailure(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.daemon.EXPECT().ListTorrents(gomock.Any()).Return(nil, nil)
	f.daemon.EXPECT().AddTorrent(gomock.Any(), gomock.Any()).Return(nil, transmission.ErrUnavailable)

	_, err := f.svc.Start(context.Background(), code, download.Request{})
	assertDownloadError(t, err, "start", transmission.ErrUnavailable)
}

func TestService_CheckDownloads_RecordsLiveStats(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.seedDownload(t, nil, catalog.StatusStarted)

	f.daemon.EXPECT().GetTorrent(gomock.Any(), int64(42)).Return(&transmission.TorrentInfo{
		ID: 42, Name: "Foo (2020)", PercentDone: 0.5, IsStalled: true, ETA: 600,
		DownloadDir: "/downloads", Files: []transmission.File{{Name: "Foo/foo.mkv"}},
	}, nil)

	require.NoError(t, f.svc.CheckDownloads(context.Background()))

	m, err := f.store.FindByCode(context.Background(), code)
	require.NoError(t, err)
	assert.Equal(t, catalog.StatusStarted, m.Download.Status())
	require.NotNil(t, m.Download.Live)
	assert.InDelta(t, 0.5, m.Download.Live.PercentDone, 0.0001)
	assert.True(t, m.Download.Live.Stalled)
	assert.Equal(t, int64(600), m.Download.Live.ETA)
	assert.Equal(t, "/downloads", m.Download.Live.DownloadDir)
	assert.Equal(t, []string{"Foo/foo.mkv"}, m.Download.Live.Files)
}

func TestService_CheckDownloads_GracePeriod(t *testing.T) {
	cfg := defaultConfig()
	cfg.GracePeriod = 2 * time.Hour
	f := newFixture(t, cfg)
	f.seedDownload(t, nil, catalog.StatusStarted)

	// Younger than the grace period: progress is still recorded.
	f.daemon.EXPECT().GetTorrent(gomock.Any(), int64(42)).Return(&transmission.TorrentInfo{
		ID: 42, PercentDone: 0.1, DownloadDir: "/downloads", Files: []transmission.File{{Name: "Foo/foo.mkv"}},
	}, nil)
	require.NoError(t, f.svc.CheckDownloads(context.Background()))

	m, err := f.store.FindByCode(context.Background(), code)
	require.NoError(t, err)
	require.NotNil(t, m.Download.Live)
	assert.Equal(t, "/downloads", m.Download.Live.DownloadDir)

	// A missing job is not taken as finished yet.
	f.daemon.EXPECT().GetTorrent(gomock.Any(), int64(42)).Return(nil, transmission.ErrNotFound)
	require.NoError(t, f.svc.CheckDownloads(context.Background()))
	assert.Equal(t, catalog.StatusStarted, f.status(t))
}

func TestService_CheckDownloads_EarlyRemovalCompletes(t *testing.T) {
	cfg := defaultConfig()
	cfg.GracePeriod = 90 * time.Minute
	f := newFixture(t, cfg)
	f.seedDownload(t, nil, catalog.StatusStarted)

	// First pass inside the grace period captures where the daemon put the files.
	f.daemon.EXPECT().GetTorrent(gomock.Any(), int64(42)).Return(&transmission.TorrentInfo{
		ID: 42, PercentDone: 1, DownloadDir: "/downloads", Files: []transmission.File{{Name: "Foo/foo.mkv"}},
	}, nil)
	require.NoError(t, f.svc.CheckDownloads(context.Background()))

	// The job is removed; once the grace period passes completion can run.
	m, err := f.store.FindByCode(context.Background(), code)
	require.NoError(t, err)
	m.Download.Events[0].At = m.Download.Events[0].At.Add(-time.Hour)
	require.NoError(t, f.store.ReplaceDownload(context.Background(), code, m.Download))

	gomock.InOrder(
		f.daemon.EXPECT().GetTorrent(gomock.Any(), int64(42)).Return(nil, transmission.ErrNotFound),
		f.org.EXPECT().Place(gomock.Any(), "Foo (2020)", "/downloads", []string{"Foo/foo.mkv"}).Return(nil),
		f.confirm.EXPECT().RefreshLibraries(gomock.Any()).Return(nil),
		f.confirm.EXPECT().ScrapeForMovie(gomock.Any(), code).Return(true, nil),
		f.daemon.EXPECT().RemoveTorrent(gomock.Any(), int64(42)).Return(transmission.ErrNotFound),
	)
	require.NoError(t, f.svc.CheckDownloads(context.Background()))
	assert.Equal(t, catalog.StatusComplete, f.status(t))
}

func liveStats() *catalog.LiveStats {
	return &catalog.LiveStats{PercentDone: 1, DownloadDir: "/downloads",
		Files: []string{"Foo/foo.mkv", "Foo/foo.srt"}, At: time.Now().Add(-time.Minute)}
}

func TestService_CheckDownloads_CompletesWhenDaemonDropsJob(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.seedDownload(t, liveStats(), catalog.StatusStarted)

	gomock.InOrder(
		f.daemon.EXPECT().GetTorrent(gomock.Any(), int64(42)).Return(nil, transmission.ErrNotFound),
		f.org.EXPECT().Place(gomock.Any(), "Foo (2020)", "/downloads", []string{"Foo/foo.mkv", "Foo/foo.srt"}).Return(nil),
		f.confirm.EXPECT().RefreshLibraries(gomock.Any()).Return(nil),
		f.confirm.EXPECT().ScrapeForMovie(gomock.Any(), code).Return(true, nil),
		f.daemon.EXPECT().RemoveTorrent(gomock.Any(), int64(42)).Return(nil),
	)

	require.NoError(t, f.svc.CheckDownloads(context.Background()))
	assert.Equal(t, catalog.StatusComplete, f.status(t))

	require.Len(t, f.bus.events, 1)
	completed, ok := f.bus.events[0].(*events.DownloadCompleted)
	require.True(t, ok)
	assert.Equal(t, code, completed.Code)
}

func TestService_CheckDownloads_UnconfirmedStaysDownloaded(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.seedDownload(t, liveStats(), catalog.StatusStarted)

	f.daemon.EXPECT().GetTorrent(gomock.Any(), int64(42)).Return(nil, transmission.ErrNotFound)
	f.org.EXPECT().Place(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	f.confirm.EXPECT().RefreshLibraries(gomock.Any()).Return(nil)
	f.confirm.EXPECT().ScrapeForMovie(gomock.Any(), code).Return(false, nil)
	f.daemon.EXPECT().RemoveTorrent(gomock.Any(), int64(42)).Return(nil)

	err := f.svc.CheckDownloads(context.Background())
	assert.ErrorIs(t, err, download.ErrNotConfirmed)
	assert.Equal(t, catalog.StatusDownloaded, f.status(t))
	assert.Empty(t, f.bus.events)

	// Later passes wait for a local scrape instead of retrying completion.
	require.NoError(t, f.svc.CheckDownloads(context.Background()))
	assert.Equal(t, catalog.StatusDownloaded, f.status(t))
}

func TestService_CheckDownloads_OrganizerFailureRemovesJob(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.seedDownload(t, liveStats(), catalog.StatusStarted)

	f.daemon.EXPECT().GetTorrent(gomock.Any(), int64(42)).Return(nil, transmission.ErrNotFound)
	f.org.EXPECT().Place(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("disk full"))
	f.daemon.EXPECT().RemoveTorrent(gomock.Any(), int64(42)).Return(nil)

	err := f.svc.CheckDownloads(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, catalog.StatusStarted, f.status(t))
}

func TestService_CheckDownloads_NoLiveStats(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.seedDownload(t, nil, catalog.StatusStarted)

	f.daemon.EXPECT().GetTorrent(gomock.Any(), int64(42)).Return(nil, transmission.ErrNotFound)

	err := f.svc.CheckDownloads(context.Background())
	assert.ErrorIs(t, err, download.ErrNoLiveStats)

	// The record is dropped instead of failing on every pass.
	m, err := f.store.FindByCode(context.Background(), code)
	require.NoError(t, err)
	assert.Nil(t, m.Download)
	require.NoError(t, f.svc.CheckDownloads(context.Background()))
}

func TestService_CheckDownloads_DaemonErrorLeavesState(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.seedDownload(t, nil, catalog.StatusStarted)

	f.daemon.EXPECT().GetTorrent(gomock.Any(), int64(42)).Return(nil, transmission.ErrUnavailable)

	err := f.svc.CheckDownloads(context.Background())
	assert.ErrorIs(t, err, transmission.ErrUnavailable)
	assert.Equal(t, catalog.StatusStarted, f.status(t))
}

func TestService_CheckDownloads_PassiveConfirmation(t *testing.T) {
	f := newFixture(t, defaultConfig())
	ctx := context.Background()
	f.seedDownload(t, liveStats(), catalog.StatusStarted, catalog.StatusDownloaded)
	require.NoError(t, f.store.SetLocalSource(ctx, code, catalog.LocalSource{Source: "plex", SourceTime: time.Unix(9, 0)}))

	// Promotion touches neither the daemon nor the organizer.
	require.NoError(t, f.svc.CheckDownloads(ctx))
	require.Len(t, f.bus.events, 1)
	assert.Equal(t, events.EventDownloadCompleted, f.bus.events[0].EventType())

	m, err := f.store.FindByCode(ctx, code)
	require.NoError(t, err)
	assert.Nil(t, m.Download, "library entry supersedes the download")
	assert.NotNil(t, m.Local)

	require.NoError(t, f.svc.CheckDownloads(ctx))
	assert.Len(t, f.bus.events, 1)
}

func TestService_CheckDownloads_ConfirmedDownloadIsCleared(t *testing.T) {
	f := newFixture(t, defaultConfig())
	ctx := context.Background()
	f.seedDownload(t, liveStats(), catalog.StatusStarted)

	f.daemon.EXPECT().GetTorrent(gomock.Any(), int64(42)).Return(nil, transmission.ErrNotFound)
	f.org.EXPECT().Place(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	f.confirm.EXPECT().RefreshLibraries(gomock.Any()).Return(nil)
	f.confirm.EXPECT().ScrapeForMovie(gomock.Any(), code).DoAndReturn(func(ctx context.Context, c string) (bool, error) {
		err := f.store.SetLocalSource(ctx, c, catalog.LocalSource{Source: "plex", SourceTime: time.Unix(9, 0)})
		return err == nil, err
	})
	f.daemon.EXPECT().RemoveTorrent(gomock.Any(), int64(42)).Return(nil)

	require.NoError(t, f.svc.CheckDownloads(ctx))

	m, err := f.store.FindByCode(ctx, code)
	require.NoError(t, err)
	assert.Nil(t, m.Download)
	require.NotNil(t, m.Local)
	assert.Equal(t, "plex", m.Local.Source)
	require.Len(t, f.bus.events, 1)
	assert.Equal(t, events.EventDownloadCompleted, f.bus.events[0].EventType())
}

func TestService_Complete(t *testing.T) {
	f := newFixture(t, defaultConfig())
	ctx := context.Background()

	err := f.svc.Complete(ctx, code)
	assertDownloadError(t, err, "complete", download.ErrNotDownloading)

	// Nothing is known about the files yet; the daemon job is left alone.
	f.seedDownload(t, nil, catalog.StatusStarted)
	err = f.svc.Complete(ctx, code)
	assertDownloadError(t, err, "complete", download.ErrNoLiveStats)
	assert.Equal(t, catalog.StatusStarted, f.status(t))

	f.seedDownload(t, liveStats(), catalog.StatusStarted)
	f.org.EXPECT().Place(gomock.Any(), "Foo (2020)", "/downloads", gomock.Any()).Return(nil)
	f.confirm.EXPECT().RefreshLibraries(gomock.Any()).Return(errors.New("scan busy"))
	f.confirm.EXPECT().ScrapeForMovie(gomock.Any(), code).Return(true, nil)
	f.daemon.EXPECT().RemoveTorrent(gomock.Any(), int64(42)).Return(nil)

	require.NoError(t, f.svc.Complete(ctx, code))
	assert.Equal(t, catalog.StatusComplete, f.status(t))
}

func TestService_LiveStatus(t *testing.T) {
	f := newFixture(t, defaultConfig())
	ctx := context.Background()

	_, err := f.svc.LiveStatus(ctx, code)
	assertDownloadError(t, err, "status", download.ErrNotDownloading)

	f.seedDownload(t, nil, catalog.StatusStarted)
	f.daemon.EXPECT().GetTorrent(gomock.Any(), int64(42)).Return(&transmission.TorrentInfo{
		ID: 42, PercentDone: 0.25, ETA: 90, Files: []transmission.File{{Name: "Foo/foo.mkv"}},
	}, nil)

	st, err := f.svc.LiveStatus(ctx, code)
	require.NoError(t, err)
	assert.False(t, st.Finished)
	assert.InDelta(t, 0.25, st.PercentDone, 0.0001)
	assert.Equal(t, 90*time.Second, st.ETA)
	assert.Equal(t, catalog.StatusStarted, st.Status)
	assert.Equal(t, []string{"Foo/foo.mkv"}, st.Files)

	f.daemon.EXPECT().GetTorrent(gomock.Any(), int64(42)).Return(nil, transmission.ErrNotFound)
	st, err = f.svc.LiveStatus(ctx, code)
	require.NoError(t, err)
	assert.True(t, st.Finished, "daemon dropped the job")
	assert.Equal(t, 1.0, st.PercentDone)

	f.daemon.EXPECT().GetTorrent(gomock.Any(), int64(42)).Return(nil, transmission.ErrUnauthorized)
	_, err = f.svc.LiveStatus(ctx, code)
	assertDownloadError(t, err, "status", transmission.ErrUnauthorized)
}

func TestService_LiveStatus_AfterStarted(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.seedDownload(t, liveStats(), catalog.StatusStarted, catalog.StatusDownloaded)

	st, err := f.svc.LiveStatus(context.Background(), code)
	require.NoError(t, err)
	assert.True(t, st.Finished)
	assert.Equal(t, catalog.StatusDownloaded, st.Status)
	assert.Equal(t, []string{"Foo/foo.mkv", "Foo/foo.srt"}, st.Files)
}
