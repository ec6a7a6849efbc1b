package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func formatETA(seconds int64) string {
	if seconds <= 0 {
		return "-"
	}
	return (time.Duration(seconds) * time.Second).String()
}

func formatTimeAgo(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// movieState summarizes where a movie stands.
func movieState(m MovieResponse) string {
	switch {
	case m.Local != nil:
		return "library"
	case m.Download != nil:
		return m.Download.Status
	default:
		return "available"
	}
}

func printMovies(w io.Writer, movies []MovieResponse, withScore bool) {
	if len(movies) == 0 {
		_, _ = fmt.Fprintln(w, "No movies")
		return
	}

	if withScore {
		_, _ = fmt.Fprintf(w, "  %-11s %-40s %-5s %-11s %s\n", "CODE", "TITLE", "YEAR", "STATE", "SCORE")
	} else {
		_, _ = fmt.Fprintf(w, "  %-11s %-40s %-5s %-11s %s\n", "CODE", "TITLE", "YEAR", "STATE", "TORRENTS")
	}
	for _, m := range movies {
		last := fmt.Sprintf("%d", len(m.Torrents))
		if withScore {
			last = fmt.Sprintf("%.2f", m.Score)
		}
		_, _ = fmt.Fprintf(w, "  %-11s %-40s %-5d %-11s %s\n", m.Code, truncate(m.Title, 40), m.Year, movieState(m), last)
	}
}

func printMovie(w io.Writer, m *MovieResponse, now time.Time) {
	_, _ = fmt.Fprintf(w, "%s (%d)  [%s]\n", m.Title, m.Year, m.Code)
	if m.Rating > 0 {
		_, _ = fmt.Fprintf(w, "  Rating:   %.1f\n", m.Rating)
	}
	if len(m.Genres) > 0 {
		_, _ = fmt.Fprintf(w, "  Genres:   %v\n", m.Genres)
	}
	_, _ = fmt.Fprintf(w, "  Source:   %s (%s)\n", m.Source, formatTimeAgo(m.SourceTime, now))
	_, _ = fmt.Fprintf(w, "  State:    %s\n", movieState(*m))

	if len(m.Torrents) > 0 {
		_, _ = fmt.Fprintln(w, "\n  Torrents:")
		for _, t := range m.Torrents {
			_, _ = fmt.Fprintf(w, "    %-7s %-8s %10s  %s\n", t.Quality, t.Type, formatSize(t.SizeBytes), t.Hash)
		}
	}
	if d := m.Download; d != nil {
		_, _ = fmt.Fprintf(w, "\n  Download: job %d, %s/%s, %s\n", d.JobID, d.Quality, d.Type, d.Status)
		for _, e := range d.Events {
			_, _ = fmt.Fprintf(w, "    %-11s %s\n", e.Status, e.At.Format(time.RFC3339))
		}
	}
}

func printLiveStatus(w io.Writer, st *LiveStatusResponse) {
	_, _ = fmt.Fprintf(w, "%s  [%s]\n", st.Name, st.Code)
	_, _ = fmt.Fprintf(w, "  Job:      %d (%s/%s)\n", st.JobID, st.Quality, st.Type)
	_, _ = fmt.Fprintf(w, "  Status:   %s\n", st.Status)
	progress := fmt.Sprintf("%.1f%%", st.PercentDone*100)
	if st.Stalled {
		progress += " (stalled)"
	}
	_, _ = fmt.Fprintf(w, "  Progress: %s\n", progress)
	if !st.Finished {
		_, _ = fmt.Fprintf(w, "  ETA:      %s\n", formatETA(st.ETASeconds))
	}
	for _, f := range st.Files {
		_, _ = fmt.Fprintf(w, "    %s\n", f)
	}
}

func printScrape(w io.Writer, sc *ScrapeResponse) {
	state := "running"
	if sc.Finished {
		state = "failed"
		if sc.Success {
			state = "ok"
		}
	}
	_, _ = fmt.Fprintf(w, "Scrape %s: %s, %d movies, %d torrents\n", sc.ID, state, sc.Movies, sc.Torrents)
	for _, src := range sc.Sources {
		srcState := "running"
		if src.EndedAt != nil {
			srcState = "ok"
			if !src.Success {
				srcState = "failed: " + src.Error
			}
		}
		_, _ = fmt.Fprintf(w, "  %-8s %-7s %4d movies %5d torrents  %s\n", src.Source, src.Kind, src.Movies, src.Torrents, srcState)
	}
}
