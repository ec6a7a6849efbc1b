package organizer

import "errors"

var (
	// ErrDownloadDirMismatch indicates the daemon reported a download directory
	// other than the configured downloads root.
	ErrDownloadDirMismatch = errors.New("download directory does not match downloads root")

	// ErrNoMovieFile indicates no file in the torrent is a movie.
	ErrNoMovieFile = errors.New("no movie file in torrent")

	// ErrInvalidName indicates the canonical name is unusable as a folder name.
	ErrInvalidName = errors.New("invalid canonical name")

	// ErrPathTraversal indicates a torrent file path escapes the download directory.
	ErrPathTraversal = errors.New("path traversal detected")

	// ErrDestinationExists indicates a different file already occupies the destination.
	ErrDestinationExists = errors.New("destination file already exists")

	// ErrCopyFailed indicates the cross-device copy failed.
	ErrCopyFailed = errors.New("failed to copy file")
)
