// Package policy screens uploads before any storage write: blocked
// extensions, a size cap, and optional byte-signature matches.
package policy

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
)

// Violation describes a screening failure.
type Violation struct {
	Rule   string
	Detail string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("upload rejected (%s): %s", v.Rule, v.Detail)
}

// defaultBlockedExtensions applies when no explicit list is configured.
var defaultBlockedExtensions = []string{".exe", ".bat", ".ps1", ".js"}

// Options configures a Screen. Monitor mode records violations without
// enforcing them.
type Options struct {
	Disabled          bool
	Monitor           bool
	BlockedExtensions []string
	MaxBytes          int64
	Signatures        []string
}

// Screen checks one upload at a time. Nil screens pass everything.
type Screen struct {
	blockedExt map[string]struct{}
	maxBytes   int64
	signatures [][]byte
	enforce    bool
}

func NewScreen(opts Options) *Screen {
	if opts.Disabled {
		return nil
	}
	exts := opts.BlockedExtensions
	if len(exts) == 0 {
		exts = defaultBlockedExtensions
	}
	s := &Screen{
		blockedExt: make(map[string]struct{}, len(exts)),
		maxBytes:   opts.MaxBytes,
		enforce:    !opts.Monitor,
	}
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		s.blockedExt[ext] = struct{}{}
	}
	for _, sig := range opts.Signatures {
		if sig = strings.TrimSpace(sig); sig != "" {
			s.signatures = append(s.signatures, []byte(sig))
		}
	}
	return s
}

// Enforced reports whether violations should fail the request.
func (s *Screen) Enforced() bool {
	return s != nil && s.enforce
}

// Check screens a single upload. It returns a *Violation on a policy
// failure and nil otherwise.
func (s *Screen) Check(filename string, size int64, data []byte) error {
	if s == nil {
		return nil
	}
	if filename != "" {
		ext := strings.ToLower(filepath.Ext(filename))
		if _, blocked := s.blockedExt[ext]; blocked {
			return &Violation{
				Rule:   "blocked_extension",
				Detail: fmt.Sprintf("extension %q not allowed", ext),
			}
		}
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		return &Violation{
			Rule:   "max_file_size",
			Detail: fmt.Sprintf("file size %d exceeds limit %d", size, s.maxBytes),
		}
	}
	for _, sig := range s.signatures {
		if len(sig) > 0 && bytes.Contains(data, sig) {
			return &Violation{
				Rule:   "blocked_signature",
				Detail: fmt.Sprintf("%s matched a blocked byte signature", filename),
			}
		}
	}
	return nil
}
