package service

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	slugStrip       = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpace       = regexp.MustCompile(`\s+`)
	dashRun         = regexp.MustCompile(`-+`)
	dotRun          = regexp.MustCompile(`\.{2,}`)
	fileNameStrip   = regexp.MustCompile(`[^a-z0-9.-]`)
	unknownProperty = "unknown-property"

	pathSeparators = strings.NewReplacer("/", "-", "\\", "-")
)

// GenerateSlug builds a listing slug from its title, suffixed with the
// creation time in unix milliseconds so equal titles stay unique.
func GenerateSlug(title string, now time.Time) string {
	base := slugStrip.ReplaceAllString(strings.ToLower(title), "")
	base = slugSpace.ReplaceAllString(base, "-")
	base = strings.Trim(dashRun.ReplaceAllString(base, "-"), "-")
	suffix := strconv.FormatInt(now.UnixMilli(), 10)
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}

// TitleFolder is the object-storage folder for a listing's media.
func TitleFolder(title string) string {
	folder := strings.Join(strings.Fields(strings.ToLower(title)), "-")
	folder = pathSeparators.Replace(folder)
	for strings.Contains(folder, "..") {
		folder = strings.ReplaceAll(folder, "..", ".")
	}
	if folder == "" {
		return unknownProperty
	}
	return folder
}

// FileSlug normalizes an uploaded file name for use in an object key. Dot
// runs collapse to one dot so the result is always a valid key segment.
func FileSlug(name string) string {
	s := fileNameStrip.ReplaceAllString(strings.ToLower(name), "-")
	s = strings.Trim(dashRun.ReplaceAllString(s, "-"), "-")
	s = dotRun.ReplaceAllString(s, ".")
	if s == "" {
		return "file"
	}
	return s
}
