package engine

import (
	"sort"
	"strings"
	"sync"

	"github.com/bamsammich/fdeploy/internal/filter"
	"github.com/bamsammich/fdeploy/internal/paths"
	"github.com/bamsammich/fdeploy/internal/transport"
)

// Plan is the set of operations needed to make the remote tree match the
// local one.
type Plan struct {
	SafeCopies    []transport.FileEntry // copied while the site is still online
	StaticCopies  []transport.FileEntry // always copied, right after going offline
	Copies        []transport.FileEntry // changed or new files
	Skipped       []transport.FileEntry // unchanged files
	NewFolders    []transport.FileEntry // local folders missing on the server, shallowest first
	DeleteFiles   []transport.FileEntry // orphan files not inside a deleted folder
	DeleteFolders []transport.FileEntry // orphan folders, deepest first

	// MarkerPresent is set when the remote root already holds the
	// maintenance marker, usually left by a cancelled run.
	MarkerPresent bool
}

// CopyCount returns the number of planned uploads.
func (p *Plan) CopyCount() int {
	return len(p.SafeCopies) + len(p.StaticCopies) + len(p.Copies)
}

// CopyBytes returns the total size of planned uploads.
func (p *Plan) CopyBytes() int64 {
	var n int64
	for _, list := range [][]transport.FileEntry{p.SafeCopies, p.StaticCopies, p.Copies} {
		for _, e := range list {
			n += e.Size
		}
	}
	return n
}

// Unchanged reports whether local and remote describe the same file: equal
// size and equal last-write time, and the remote entry is a file.
func Unchanged(local, remote transport.FileEntry) bool {
	return remote.IsFile() &&
		local.Size == remote.Size &&
		local.LastWriteTime() == remote.LastWriteTime()
}

// BuildPlan compares the local and remote indexes by relative path. Paths are
// joined case-insensitively because SMB shares do not distinguish case; a
// renamed-by-case file is overwritten in place, never deleted as an orphan.
func BuildPlan(local, remote []transport.FileEntry, rules *filter.Rules, deleteOrphans bool) *Plan {
	p := &Plan{}

	remoteByKey := make(map[string]transport.FileEntry, len(remote))
	for _, r := range remote {
		remoteByKey[joinKey(r.RelPath)] = r
	}
	marker, hasMarker := remoteByKey[markerKey]
	p.MarkerPresent = hasMarker && marker.IsFile()
	localKeys := make(map[string]struct{}, len(local))

	for _, l := range local {
		key := joinKey(l.RelPath)
		localKeys[key] = struct{}{}
		r, exists := remoteByKey[key]

		if l.IsDir {
			if !exists || !r.IsDir {
				p.NewFolders = append(p.NewFolders, l)
			}
			continue
		}

		safe := l.Flags.Has(transport.FlagSafeCopy)
		static := l.Flags.Has(transport.FlagStatic)
		switch {
		case static && safe:
			p.SafeCopies = append(p.SafeCopies, l)
		case static:
			p.StaticCopies = append(p.StaticCopies, l)
		case exists && Unchanged(l, r):
			p.Skipped = append(p.Skipped, l)
		case safe:
			p.SafeCopies = append(p.SafeCopies, l)
		default:
			p.Copies = append(p.Copies, l)
		}
	}
	sort.SliceStable(p.NewFolders, func(i, j int) bool {
		return p.NewFolders[i].Level() < p.NewFolders[j].Level()
	})

	if deleteOrphans {
		var orphans []transport.FileEntry
		for _, r := range remote {
			key := joinKey(r.RelPath)
			if key == markerKey {
				// Owned by the maintenance window, never an orphan.
				continue
			}
			if _, ok := localKeys[key]; !ok {
				orphans = append(orphans, r)
			}
		}
		p.DeleteFiles, p.DeleteFolders = pruneOrphans(orphans, rules)
	}
	return p
}

// pruneOrphans drops orphan folders that enclose a protected path, then
// collapses every orphan nested under a surviving orphan folder into that
// folder's recursive delete.
func pruneOrphans(orphans []transport.FileEntry, rules *filter.Rules) (files, folders []transport.FileEntry) {
	var candidates []transport.FileEntry
	for _, o := range orphans {
		if o.IsDir {
			if rules.Protects(o.RelPath) {
				continue
			}
			candidates = append(candidates, o)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Level() < candidates[j].Level()
	})
	kept := make(map[string]struct{})
	for _, f := range candidates {
		if hasAncestorIn(f.RelPath, kept) {
			continue
		}
		kept[joinKey(f.RelPath)] = struct{}{}
		folders = append(folders, f)
	}

	for _, o := range orphans {
		if o.IsDir || hasAncestorIn(o.RelPath, kept) {
			continue
		}
		files = append(files, o)
	}

	sort.SliceStable(folders, func(i, j int) bool {
		return folders[i].Level() > folders[j].Level()
	})
	return files, folders
}

func hasAncestorIn(rel string, set map[string]struct{}) bool {
	for p := paths.Parent(rel); p != ""; p = paths.Parent(p) {
		if _, ok := set[joinKey(p)]; ok {
			return true
		}
	}
	return false
}

func joinKey(rel string) string {
	return strings.ToLower(paths.Clean(rel))
}

var markerKey = joinKey(MarkerFileName)

// RemoteIndex is the tracked remote snapshot. Entries are removed as they
// are deleted so later steps do not attempt them again.
type RemoteIndex struct {
	mu      sync.Mutex
	entries map[string]transport.FileEntry
}

// NewRemoteIndex tracks entries.
func NewRemoteIndex(entries []transport.FileEntry) *RemoteIndex {
	ix := &RemoteIndex{entries: make(map[string]transport.FileEntry, len(entries))}
	for _, e := range entries {
		ix.entries[joinKey(e.RelPath)] = e
	}
	return ix
}

// Has reports whether rel is still tracked.
func (ix *RemoteIndex) Has(rel string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	_, ok := ix.entries[joinKey(rel)]
	return ok
}

// Remove stops tracking rel.
func (ix *RemoteIndex) Remove(rel string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.entries, joinKey(rel))
}

// Len returns the number of tracked entries.
func (ix *RemoteIndex) Len() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return len(ix.entries)
}

// Under returns the tracked files and folders strictly nested under folder.
// Folders are ordered deepest first.
func (ix *RemoteIndex) Under(folder string) (files, folders []transport.FileEntry) {
	prefix := joinKey(folder)
	ix.mu.Lock()
	for key, e := range ix.entries {
		if !paths.IsUnder(key, prefix) {
			continue
		}
		if e.IsDir {
			folders = append(folders, e)
		} else {
			files = append(files, e)
		}
	}
	ix.mu.Unlock()

	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	sort.Slice(folders, func(i, j int) bool {
		if folders[i].Level() != folders[j].Level() {
			return folders[i].Level() > folders[j].Level()
		}
		return folders[i].RelPath < folders[j].RelPath
	})
	return files, folders
}
