package camera

import (
	"strings"

	"moodflix-capture/internal/domain"
)

// Labels of known virtual/software cameras that must never be auto-selected.
var virtualCameraDenylist = []string{
	"droidcam",
	"virtual",
	"obs",
	"snap camera",
}

// Labels that suggest a built-in camera, preferred over external ones.
var builtinCameraPatterns = []string{
	"integrated",
	"webcam",
	"hd camera",
}

// SelectVideoDevice picks the camera to auto-open. Virtual cameras are
// excluded first; among the remainder a built-in looking label wins,
// otherwise the first surviving device. If every device looks virtual the
// very first enumerated device is used. This is a heuristic, not a
// guarantee; ties break by enumeration order. The boolean is false only
// when no video devices exist at all.
func SelectVideoDevice(devices []domain.DeviceDescriptor) (domain.DeviceDescriptor, bool) {
	var video []domain.DeviceDescriptor
	for _, d := range devices {
		if d.Kind == domain.DeviceKindVideo {
			video = append(video, d)
		}
	}
	if len(video) == 0 {
		return domain.DeviceDescriptor{}, false
	}

	var survivors []domain.DeviceDescriptor
	for _, d := range video {
		if !matchesAny(d.Label, virtualCameraDenylist) {
			survivors = append(survivors, d)
		}
	}
	if len(survivors) == 0 {
		return video[0], true
	}

	for _, d := range survivors {
		if matchesAny(d.Label, builtinCameraPatterns) {
			return d, true
		}
	}
	return survivors[0], true
}

func matchesAny(label string, patterns []string) bool {
	l := strings.ToLower(label)
	for _, p := range patterns {
		if strings.Contains(l, p) {
			return true
		}
	}
	return false
}
