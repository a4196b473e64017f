// Package device enumerates audio capture devices and resolves which one
// the transcription pipeline should use.
package device

// ID identifies one audio capture device as reported by the enumerator.
type ID int

// Default is the sentinel meaning "let the pipeline pick the system
// default device." It is the only valid negative ID.
const Default ID = -1

// Catalog maps device IDs to human-readable names. A catalog is built
// fresh on every detection pass and replaced wholesale; holders of a
// stale catalog re-fetch rather than patch.
type Catalog map[ID]string

// ResolveActive returns the device the pipeline should capture from:
// the preferred device when it is currently attached, otherwise Default.
// This is the single fallback rule; the stored preference is never
// cleared when its device is absent, so plugging the device back in
// restores it without reconfiguration.
func ResolveActive(preferred ID, catalog Catalog) ID {
	if preferred >= 0 {
		if _, ok := catalog[preferred]; ok {
			return preferred
		}
	}
	return Default
}
