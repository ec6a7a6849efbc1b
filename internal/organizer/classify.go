package organizer

import (
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"
)

// FileClass is the role a torrent file plays in the library.
type FileClass int

const (
	ClassJunk FileClass = iota
	ClassMovie
	ClassSubtitles
)

func (c FileClass) String() string {
	switch c {
	case ClassMovie:
		return "movie"
	case ClassSubtitles:
		return "subtitles"
	default:
		return "junk"
	}
}

var movieExts = map[string]bool{
	"mp4": true, "mkv": true, "avi": true, "m4v": true,
	"mov": true, "wmv": true, "mpg": true, "mpeg": true,
}

var subtitleExts = map[string]bool{
	"srt": true, "sub": true, "idx": true, "ass": true,
	"ssa": true, "vtt": true, "smi": true,
}

// Classify assigns a class by extension. Sample clips are junk.
func Classify(file string) FileClass {
	ext := extension(file)
	switch {
	case movieExts[ext]:
		if isSample(file) {
			return ClassJunk
		}
		return ClassMovie
	case subtitleExts[ext]:
		return ClassSubtitles
	default:
		return ClassJunk
	}
}

var wordSep = regexp.MustCompile(`[^a-z0-9]+`)

// isSample reports whether file is a sample clip: "sample" as a whole word of
// the file name, or a file inside a sample directory.
func isSample(file string) bool {
	parts := strings.Split(strings.ToLower(filepathToSlash(file)), "/")
	for _, dir := range parts[:len(parts)-1] {
		if dir == "sample" || dir == "samples" {
			return true
		}
	}
	base := parts[len(parts)-1]
	for _, word := range wordSep.Split(strings.TrimSuffix(base, path.Ext(base)), -1) {
		if word == "sample" {
			return true
		}
	}
	return false
}

// extension returns the lowercased extension without its dot.
func extension(name string) string {
	return strings.ToLower(rawExtension(name))
}

func rawExtension(name string) string {
	return strings.TrimPrefix(path.Ext(filepathToSlash(name)), ".")
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

// Placement maps one torrent file to its library file name.
type Placement struct {
	File  string // relative to the download directory
	Class FileClass
	Dest  string // file name inside the movie folder
}

var (
	illegalChars = regexp.MustCompile(`[<>:"/\\|?*\x00]`)
	multiSpace   = regexp.MustCompile(`\s+`)
	multiDot     = regexp.MustCompile(`\.{2,}`)
)

// SanitizeName makes a canonical name safe to use as a directory and file stem.
func SanitizeName(name string) string {
	name = illegalChars.ReplaceAllString(name, " ")
	name = multiDot.ReplaceAllString(name, ".")
	name = multiSpace.ReplaceAllString(name, " ")
	return strings.Trim(name, " .")
}

// Plan classifies files and assigns destination names. Every kept file is
// renamed to "{name}.{ext}"; when two kept files share an extension, the later
// one in path order keeps its original stem as "{name}.{stem}.{ext}". The
// result is independent of input order.
func Plan(name string, files []string) ([]Placement, error) {
	name = SanitizeName(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty canonical name", ErrInvalidName)
	}

	sorted := dedupe(files)
	placements := make([]Placement, 0, len(sorted))
	used := make(map[string]bool)
	hasMovie := false

	for _, f := range sorted {
		p := Placement{File: f, Class: Classify(f)}
		if p.Class == ClassJunk {
			placements = append(placements, p)
			continue
		}
		if p.Class == ClassMovie {
			hasMovie = true
		}

		ext := rawExtension(f)
		dest := name + "." + ext
		if used[strings.ToLower(dest)] {
			base := path.Base(filepathToSlash(f))
			stem := SanitizeName(strings.TrimSuffix(base, path.Ext(base)))
			dest = fmt.Sprintf("%s.%s.%s", name, stem, ext)
			for n := 2; used[strings.ToLower(dest)]; n++ {
				dest = fmt.Sprintf("%s.%s.%d.%s", name, stem, n, ext)
			}
		}
		used[strings.ToLower(dest)] = true
		p.Dest = dest
		placements = append(placements, p)
	}

	if !hasMovie {
		return nil, ErrNoMovieFile
	}
	return placements, nil
}

// dedupe returns the unique files grouped by class, then sorted by path.
func dedupe(files []string) []string {
	seen := make(map[string]bool, len(files))
	out := make([]string, 0, len(files))
	for _, f := range files {
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ci, cj := Classify(out[i]), Classify(out[j])
		if ci != cj {
			return ci < cj
		}
		return out[i] < out[j]
	})
	return out
}
