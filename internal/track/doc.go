// Package track owns per-aircraft track state.
//
// Responsibilities: merging partial feed records into a Track without ever
// clearing known fields, smoothing reported positions into a bounded trail,
// classifying aircraft type into a render colour, and the Registry that
// creates, updates and ages out tracks.
// Key types: Track, Update, Registry, TrackView.
//
// No network, display or file I/O is allowed in this package.
package track
