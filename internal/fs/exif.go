package fs

import (
	"os"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

var captureExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".tif":  true,
	".tiff": true,
}

func hasCaptureMetadata(ext string) bool {
	return captureExts[ext]
}

// readCaptureTime returns the EXIF capture time of a photo. Files without
// EXIF data, or with an implausible date, report false.
func readCaptureTime(path string) (time.Time, bool) {
	f, err := os.Open(path)
	if err != nil {
		return time.Time{}, false
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return time.Time{}, false
	}
	// DateTime prefers DateTimeOriginal and falls back to DateTime.
	t, err := x.DateTime()
	if err != nil || t.Year() < 1900 {
		return time.Time{}, false
	}
	return t, true
}
