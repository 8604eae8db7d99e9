package downloader

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	urlutil "github.com/law-makers/sourcer/internal/utils/url"
	"github.com/law-makers/sourcer/pkg/models"
)

// MediaType selects which product media to download
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
	MediaTypeAll   MediaType = "all"
)

// ParseMediaType accepts image, video or all
func ParseMediaType(s string) (MediaType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "image", "img", "images":
		return MediaTypeImage, nil
	case "video", "vid", "videos":
		return MediaTypeVideo, nil
	case "", "all":
		return MediaTypeAll, nil
	}
	return "", fmt.Errorf("invalid media type: %s (must be image, video, or all)", s)
}

// Job is one file to fetch
type Job struct {
	URL      string
	Kind     MediaType
	Filename string
}

// Plan lists the downloads for a product. Filenames are prefixed with the
// offer id and numbered in gallery order so repeated runs overwrite rather
// than duplicate.
func Plan(p models.Product, pageURL string, mediaType MediaType) []Job {
	prefix := urlutil.OfferID(pageURL)
	if prefix == "" {
		prefix = "product"
	}

	var jobs []Job
	add := func(urls []string, kind MediaType, tag, fallbackExt string) {
		for i, u := range urls {
			if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
				continue
			}
			jobs = append(jobs, Job{
				URL:      u,
				Kind:     kind,
				Filename: fmt.Sprintf("%s_%s_%02d%s", prefix, tag, i+1, extension(u, fallbackExt)),
			})
		}
	}

	if mediaType == MediaTypeImage || mediaType == MediaTypeAll {
		add(p.ImageURLs, MediaTypeImage, "img", ".jpg")
	}
	if mediaType == MediaTypeVideo || mediaType == MediaTypeAll {
		add(p.VideoURLs, MediaTypeVideo, "video", ".mp4")
	}
	return jobs
}

// extension returns the lower-cased file extension of the URL path, limited
// to known media types
func extension(rawURL, fallback string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fallback
	}
	ext := strings.ToLower(path.Ext(u.Path))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".mp4", ".webm", ".mov", ".m3u8":
		return ext
	}
	return fallback
}
