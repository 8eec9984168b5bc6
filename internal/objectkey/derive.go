// Package objectkey derives deterministic, sanitized storage keys from
// caller-supplied filenames and the authenticated user's identity.
package objectkey

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/studioforge/upload-gateway/internal/identity"
)

// TimestampLayout is the sortable second-resolution token embedded in
// every derived key. Lexical order matches chronological order.
const TimestampLayout = "20060102_150405"

// Request carries the caller-controlled derivation inputs.
type Request struct {
	OriginalFilename string
	CustomFilename   string
	Folder           string
}

// Derive computes the storage key for one upload:
//
//	[folder/][workspace/]userID/stem_YYYYMMDD_HHMMSS.ext
//
// Every caller-controlled input is reduced to the allow-list
// [A-Za-z0-9._- ] before it reaches the key, so the result can never
// contain traversal segments. Keys for the same user and filename
// within the same second collide; the timestamp resolution is a known
// limit of the key contract, not something Derive papers over.
func Derive(req Request, user *identity.UserContext, now time.Time) string {
	stem, ext := splitName(sanitize(req.OriginalFilename))

	if req.CustomFilename != "" {
		customStem, customExt := splitName(sanitize(req.CustomFilename))
		// A custom name built entirely from disallowed characters
		// collapses to nothing; fall back to the original stem rather
		// than emitting an empty segment.
		if customStem != "" {
			stem = customStem
		}
		if customExt != "" {
			ext = customExt
		}
	}
	if stem == "" {
		stem = strings.ReplaceAll(uuid.NewString(), "-", "")
	}

	name := stem + "_" + now.UTC().Format(TimestampLayout) + ext

	segments := make([]string, 0, 4)
	if folder := sanitizePath(req.Folder); folder != "" {
		segments = append(segments, folder)
	}
	if workspace := sanitize(user.Workspace); workspace != "" {
		segments = append(segments, workspace)
	}
	segments = append(segments, sanitize(user.ID), name)
	return strings.Join(segments, "/")
}

// sanitize strips every rune outside the filename allow-list.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '_', r == '-', r == ' ':
			return r
		default:
			return -1
		}
	}, s)
}

// sanitizePath sanitizes an explicit folder, preserving intentional
// nesting but dropping empty and dots-only segments.
func sanitizePath(folder string) string {
	var kept []string
	for _, seg := range strings.Split(folder, "/") {
		seg = sanitize(seg)
		if seg == "" || strings.Trim(seg, ".") == "" {
			continue
		}
		kept = append(kept, seg)
	}
	return strings.Join(kept, "/")
}

// splitName separates a sanitized filename into stem and extension.
// The extension keeps its leading dot; a name without one yields an
// empty extension.
func splitName(name string) (stem, ext string) {
	idx := strings.LastIndex(name, ".")
	if idx <= 0 || idx == len(name)-1 {
		return name, ""
	}
	return name[:idx], name[idx:]
}
