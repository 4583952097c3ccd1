package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/fdeploy/internal/filter"
	"github.com/bamsammich/fdeploy/internal/transport"
)

func file(rel string, size int64, sec int) transport.FileEntry {
	return transport.FileEntry{RelPath: rel, FullPath: rel, Size: size, ModTime: at(sec)}
}

func folder(rel string) transport.FileEntry {
	return transport.FileEntry{RelPath: rel, FullPath: rel, IsDir: true}
}

func rels(entries []transport.FileEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.RelPath)
	}
	return out
}

func TestUnchanged(t *testing.T) {
	t.Parallel()
	base := file("a.txt", 100, 100)

	assert.True(t, Unchanged(base, file("a.txt", 100, 100)))
	assert.False(t, Unchanged(base, file("a.txt", 101, 100)), "size +1")
	assert.False(t, Unchanged(base, file("a.txt", 99, 100)), "size -1")

	tick := base
	tick.ModTime = base.ModTime.Add(100) // one FILETIME unit
	assert.False(t, Unchanged(base, tick), "time +1 tick")
	tick.ModTime = base.ModTime.Add(-100)
	assert.False(t, Unchanged(base, tick), "time -1 tick")

	assert.False(t, Unchanged(base, folder("a.txt")), "remote is a folder")
}

func TestBuildPlan_EndToEndExample(t *testing.T) {
	t.Parallel()
	local := []transport.FileEntry{
		folder("sub"),
		file("a.txt", 100, 100),
		file("sub/b.txt", 50, 50),
	}
	remote := []transport.FileEntry{
		file("a.txt", 100, 100),
		file("c.txt", 10, 10),
		folder("sub"),
	}

	p := BuildPlan(local, remote, nil, true)

	assert.Equal(t, []string{"sub/b.txt"}, rels(p.Copies))
	assert.Equal(t, []string{"a.txt"}, rels(p.Skipped))
	assert.Equal(t, []string{"c.txt"}, rels(p.DeleteFiles))
	assert.Empty(t, p.DeleteFolders)
	assert.Empty(t, p.NewFolders)
	assert.Equal(t, 1, p.CopyCount())
	assert.Equal(t, int64(50), p.CopyBytes())
}

func TestBuildPlan_NoDeleteWithoutFlag(t *testing.T) {
	t.Parallel()
	p := BuildPlan(nil, []transport.FileEntry{file("c.txt", 1, 1), folder("old")}, nil, false)
	assert.Empty(t, p.DeleteFiles)
	assert.Empty(t, p.DeleteFolders)
}

func TestBuildPlan_JoinIsCaseInsensitive(t *testing.T) {
	t.Parallel()
	local := []transport.FileEntry{folder("Views"), file("Views/Index.cshtml", 5, 5)}
	remote := []transport.FileEntry{folder("views"), file("views/index.cshtml", 5, 5)}

	p := BuildPlan(local, remote, nil, true)
	assert.Equal(t, []string{"Views/Index.cshtml"}, rels(p.Skipped))
	assert.Empty(t, p.NewFolders)
	assert.Empty(t, p.DeleteFiles)
	assert.Empty(t, p.DeleteFolders)
}

func TestBuildPlan_Classification(t *testing.T) {
	t.Parallel()
	safe := file("wwwroot/site.css", 1, 1)
	safe.Flags = transport.FlagSafeCopy
	static := file("config/app.json", 1, 1)
	static.Flags = transport.FlagStatic
	both := file("wwwroot/static/logo.png", 1, 1)
	both.Flags = transport.FlagSafeCopy | transport.FlagStatic
	unchangedSafe := file("wwwroot/same.css", 1, 1)
	unchangedSafe.Flags = transport.FlagSafeCopy

	local := []transport.FileEntry{safe, static, both, unchangedSafe}
	remote := []transport.FileEntry{
		file("config/app.json", 1, 1), // identical but static: still copied
		file("wwwroot/same.css", 1, 1),
	}

	p := BuildPlan(local, remote, nil, false)
	assert.ElementsMatch(t, []string{"wwwroot/site.css", "wwwroot/static/logo.png"}, rels(p.SafeCopies))
	assert.Equal(t, []string{"config/app.json"}, rels(p.StaticCopies))
	assert.Equal(t, []string{"wwwroot/same.css"}, rels(p.Skipped))
	assert.Empty(t, p.Copies)
}

func TestBuildPlan_NewFoldersShallowFirst(t *testing.T) {
	t.Parallel()
	local := []transport.FileEntry{
		folder("a/b/c"),
		folder("a"),
		folder("a/b"),
		folder("exists"),
		folder("clash"),
	}
	remote := []transport.FileEntry{folder("exists"), file("clash", 1, 1)}

	p := BuildPlan(local, remote, nil, false)
	assert.Equal(t, []string{"a", "clash", "a/b", "a/b/c"}, rels(p.NewFolders))
}

func TestBuildPlan_OrphanProtection(t *testing.T) {
	t.Parallel()
	remote := []transport.FileEntry{
		folder("wwwroot"),
		folder("wwwroot/uploads"),
		file("wwwroot/uploads/old.jpg", 1, 1),
	}
	local := []transport.FileEntry{folder("wwwroot")}

	t.Run("protected", func(t *testing.T) {
		t.Parallel()
		rules := filter.New(filter.Config{FilePaths: []string{"wwwroot/uploads/keep.txt"}})
		p := BuildPlan(local, remote, rules, true)
		assert.Empty(t, p.DeleteFolders)
		assert.Equal(t, []string{"wwwroot/uploads/old.jpg"}, rels(p.DeleteFiles))
	})

	t.Run("unprotected", func(t *testing.T) {
		t.Parallel()
		p := BuildPlan(local, remote, nil, true)
		assert.Equal(t, []string{"wwwroot/uploads"}, rels(p.DeleteFolders))
		assert.Empty(t, p.DeleteFiles, "files under a deleted folder go with it")
	})
}

func TestBuildPlan_CollapseAndDeepestFirst(t *testing.T) {
	t.Parallel()
	remote := []transport.FileEntry{
		folder("old"),
		folder("old/inner"),
		file("old/inner/x.txt", 1, 1),
		folder("keep"),
		folder("keep/a"),
		folder("keep/a/b"),
		folder("keep/z"),
		file("stray.txt", 1, 1),
	}
	local := []transport.FileEntry{folder("keep"), folder("keep/a")}

	p := BuildPlan(local, remote, nil, true)
	require.Len(t, p.DeleteFolders, 3)
	assert.Equal(t, "keep/a/b", p.DeleteFolders[0].RelPath)
	assert.ElementsMatch(t, []string{"old", "keep/z"}, rels(p.DeleteFolders[1:]))
	assert.Equal(t, []string{"stray.txt"}, rels(p.DeleteFiles))
}

func TestBuildPlan_MarkerIsNeverAnOrphan(t *testing.T) {
	t.Parallel()
	remote := []transport.FileEntry{
		file("App_Offline.htm", 300, 1),
		folder("old"),
		file("old/x.txt", 1, 1),
		file("old/app_offline.htm", 1, 1),
	}

	p := BuildPlan(nil, remote, nil, true)
	assert.True(t, p.MarkerPresent)
	assert.Empty(t, p.DeleteFiles)
	assert.Equal(t, []string{"old"}, rels(p.DeleteFolders), "only the root marker is exempt")

	p = BuildPlan(nil, []transport.FileEntry{folder("app_offline.htm")}, nil, true)
	assert.False(t, p.MarkerPresent, "a folder by that name is not a marker")
}

func TestRemoteIndex(t *testing.T) {
	t.Parallel()
	ix := NewRemoteIndex([]transport.FileEntry{
		folder("old"),
		folder("old/a"),
		folder("old/a/b"),
		file("old/a/b/1.txt", 1, 1),
		file("old/2.txt", 1, 1),
		file("older.txt", 1, 1),
	})
	assert.Equal(t, 6, ix.Len())
	assert.True(t, ix.Has("OLD/2.txt"))

	files, folders := ix.Under("old")
	assert.Equal(t, []string{"old/2.txt", "old/a/b/1.txt"}, rels(files))
	assert.Equal(t, []string{"old/a/b", "old/a"}, rels(folders))

	ix.Remove("old/2.txt")
	assert.False(t, ix.Has("old/2.txt"))
	assert.Equal(t, 5, ix.Len())
}
