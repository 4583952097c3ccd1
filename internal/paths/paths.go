// Package paths converts between local and share path conventions and
// computes the root-relative keys used to join the local and remote indexes.
//
// A relative comparable path always uses forward slashes and never starts or
// ends with a separator. Share paths (passed to the SMB client) use
// backslashes and are relative to the share root.
package paths

import (
	"path/filepath"
	"strings"
)

// ToSlash replaces every backslash with a forward slash.
func ToSlash(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

// Clean normalizes p into comparable form: forward slashes, no leading or
// trailing separator, no empty or "." segments.
func Clean(p string) string {
	return strings.Join(Segments(p), "/")
}

// Segments splits p on either separator and drops empty and "." segments.
func Segments(p string) []string {
	raw := strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' })
	out := raw[:0]
	for _, s := range raw {
		if s == "." {
			continue
		}
		out = append(out, s)
	}
	return out
}

// ToShare converts p into the share convention: backslash separated with no
// leading or trailing separator.
func ToShare(p string) string {
	return strings.ReplaceAll(Clean(p), "/", `\`)
}

// ToNative converts p into the local OS convention.
func ToNative(p string) string {
	return filepath.FromSlash(ToSlash(p))
}

// Rel strips root from full and returns the comparable relative path. The
// second result is false when full does not lie under root. full == root
// yields "" and true.
func Rel(root, full string) (string, bool) {
	r := Clean(root)
	f := Clean(full)

	if r == "" {
		return f, true
	}
	if f == r {
		return "", true
	}
	if !strings.HasPrefix(f, r+"/") {
		return "", false
	}
	return f[len(r)+1:], true
}

// Join joins a share root and a relative path into a share path.
func Join(root string, rel ...string) string {
	parts := make([]string, 0, len(rel)+1)
	if r := ToShare(root); r != "" {
		parts = append(parts, r)
	}
	for _, p := range rel {
		if s := ToShare(p); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, `\`)
}

// Base returns the final segment of p.
func Base(p string) string {
	p = Clean(p)
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}

// Parent returns everything before the final segment of p, or "" for a
// single-segment path.
func Parent(p string) string {
	p = Clean(p)
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[:i]
	}
	return ""
}

// Depth returns the number of segments in p.
func Depth(p string) int {
	return len(Segments(p))
}

// IsUnder reports whether child is strictly nested under parent. Both are
// compared in comparable form. Every non-empty path is under "".
func IsUnder(child, parent string) bool {
	c := Clean(child)
	p := Clean(parent)
	if p == "" {
		return c != ""
	}
	return strings.HasPrefix(c, p+"/")
}
