package paths_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bamsammich/fdeploy/internal/paths"
)

func TestClean(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"a", "a"},
		{"/a/b/", "a/b"},
		{`\a\b\`, "a/b"},
		{`wwwroot\css//site.css`, "wwwroot/css/site.css"},
		{"./a/./b", "a/b"},
		{".", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, paths.Clean(tt.in), "Clean(%q)", tt.in)
	}
}

func TestToShare(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `site\wwwroot\app.js`, paths.ToShare("/site/wwwroot/app.js"))
	assert.Equal(t, "", paths.ToShare("/"))
}

func TestToNative(t *testing.T) {
	t.Parallel()

	assert.Equal(t, filepath.Join("a", "b", "c"), paths.ToNative(`a\b/c`))
}

func TestRel(t *testing.T) {
	t.Parallel()

	rel, ok := paths.Rel("/home/me/publish", "/home/me/publish/wwwroot/app.js")
	assert.True(t, ok)
	assert.Equal(t, "wwwroot/app.js", rel)

	rel, ok = paths.Rel(`site`, `site\bin\app.dll`)
	assert.True(t, ok)
	assert.Equal(t, "bin/app.dll", rel)

	rel, ok = paths.Rel("site", "site")
	assert.True(t, ok)
	assert.Equal(t, "", rel)

	_, ok = paths.Rel("site", "sitemap/x")
	assert.False(t, ok)

	rel, ok = paths.Rel("", `a\b`)
	assert.True(t, ok)
	assert.Equal(t, "a/b", rel)
}

func TestJoin(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `site\wwwroot\app.js`, paths.Join("site", "wwwroot/app.js"))
	assert.Equal(t, `wwwroot\app.js`, paths.Join("", "wwwroot/app.js"))
	assert.Equal(t, `site`, paths.Join(`\site\`, ""))
	assert.Equal(t, `site\a\b`, paths.Join("site", "a", "b"))
}

func TestBaseParentDepth(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "app.js", paths.Base("wwwroot/js/app.js"))
	assert.Equal(t, "wwwroot/js", paths.Parent("wwwroot/js/app.js"))
	assert.Equal(t, "", paths.Parent("app.js"))
	assert.Equal(t, 3, paths.Depth("wwwroot/js/app.js"))
	assert.Equal(t, 0, paths.Depth(""))
}

func TestIsUnder(t *testing.T) {
	t.Parallel()

	assert.True(t, paths.IsUnder("wwwroot/uploads/keep.txt", "wwwroot/uploads"))
	assert.False(t, paths.IsUnder("wwwroot/uploads", "wwwroot/uploads"))
	assert.False(t, paths.IsUnder("wwwroot/uploads2/x", "wwwroot/uploads"))
	assert.True(t, paths.IsUnder("a", ""))
}
