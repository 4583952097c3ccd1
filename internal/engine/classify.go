package engine

import (
	"github.com/bamsammich/fdeploy/internal/paths"
	"github.com/bamsammich/fdeploy/internal/transport"
)

// ClassifyConfig lists the paths that change how an entry is deployed.
type ClassifyConfig struct {
	OnlineCopyFolderPaths           []string
	OnlineCopyFilePaths             []string
	AlwaysOverwritePaths            []string
	AlwaysOverwritePathsWithRecurse []string
}

// Classifier computes transport.Flags for local entries.
type Classifier struct {
	onlineFolders    []string
	onlineFiles      map[string]struct{}
	overwrite        []string
	overwriteRecurse []string
}

// NewClassifier normalizes cfg into comparable form.
func NewClassifier(cfg ClassifyConfig) *Classifier {
	c := &Classifier{
		onlineFolders:    cleanAll(cfg.OnlineCopyFolderPaths),
		onlineFiles:      make(map[string]struct{}),
		overwrite:        cleanAll(cfg.AlwaysOverwritePaths),
		overwriteRecurse: cleanAll(cfg.AlwaysOverwritePathsWithRecurse),
	}
	for _, p := range cleanAll(cfg.OnlineCopyFilePaths) {
		c.onlineFiles[p] = struct{}{}
	}
	return c
}

// Classify returns the flags for the entry at rel.
//
// Safe-copy: a file listed in OnlineCopyFilePaths, or anything under an
// OnlineCopyFolderPaths entry. Static: a file listed in AlwaysOverwritePaths
// or directly inside a folder listed there, or anything under an
// AlwaysOverwritePathsWithRecurse entry.
func (c *Classifier) Classify(rel string, isDir bool) transport.Flags {
	if c == nil {
		return 0
	}
	rel = paths.Clean(rel)
	var f transport.Flags

	if !isDir {
		if _, ok := c.onlineFiles[rel]; ok {
			f |= transport.FlagSafeCopy
		}
	}
	for _, p := range c.onlineFolders {
		if paths.IsUnder(rel, p) {
			f |= transport.FlagSafeCopy
			break
		}
	}

	if !isDir {
		parent := paths.Parent(rel)
		for _, p := range c.overwrite {
			if rel == p || parent == p {
				f |= transport.FlagStatic
				break
			}
		}
	}
	for _, p := range c.overwriteRecurse {
		if paths.IsUnder(rel, p) {
			f |= transport.FlagStatic
			break
		}
	}
	return f
}

func cleanAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		if c := paths.Clean(p); c != "" {
			out = append(out, c)
		}
	}
	return out
}
