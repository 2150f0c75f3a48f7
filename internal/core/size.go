// Package core holds the domain types shared by storage, services and HTTP.
//
// This file contains human-readable file size formatting.
package core

import "strconv"

// FormatFileSize renders a byte count as KB below one megabyte and MB above,
// with one decimal place (e.g. "12.3 KB", "1.5 MB").
func FormatFileSize(bytes int64) string {
	kb := float64(bytes) / 1024
	if kb > 1024 {
		return strconv.FormatFloat(kb/1024, 'f', 1, 64) + " MB"
	}
	return strconv.FormatFloat(kb, 'f', 1, 64) + " KB"
}
