package filter

import "github.com/bamsammich/fdeploy/internal/paths"

// Config lists the ignore rules for a deployment. Path rules are compared
// against the root-relative comparable path; name rules against the final
// path segment at any depth.
type Config struct {
	FolderPaths []string
	FilePaths   []string
	FolderNames []string
	FileNames   []string
}

// Rules evaluates ignore rules during indexing and protects ignored paths
// from orphan deletion.
type Rules struct {
	folderPaths map[string]struct{}
	filePaths   map[string]struct{}
	folderNames map[string]struct{}
	fileNames   map[string]struct{}
	protected   []string
}

// New builds Rules from cfg. Path rules are normalized to comparable form so
// "wwwroot\uploads", "/wwwroot/uploads/" and "wwwroot/uploads" are the same rule.
func New(cfg Config) *Rules {
	r := &Rules{
		folderPaths: pathSet(cfg.FolderPaths),
		filePaths:   pathSet(cfg.FilePaths),
		folderNames: nameSet(cfg.FolderNames),
		fileNames:   nameSet(cfg.FileNames),
	}
	for p := range r.folderPaths {
		r.protected = append(r.protected, p)
	}
	for p := range r.filePaths {
		r.protected = append(r.protected, p)
	}
	return r
}

// Ignored reports whether the entry at relPath must be left out of the index.
// Path rules match exactly, never by prefix; an ignored folder is simply not
// descended into, which is what hides its contents.
func (r *Rules) Ignored(relPath string, isDir bool) bool {
	if r == nil {
		return false
	}
	rel := paths.Clean(relPath)
	name := paths.Base(rel)
	if isDir {
		if _, ok := r.folderPaths[rel]; ok {
			return true
		}
		_, ok := r.folderNames[name]
		return ok
	}
	if _, ok := r.filePaths[rel]; ok {
		return true
	}
	_, ok := r.fileNames[name]
	return ok
}

// Protects reports whether any ignore path rule lies strictly under
// folderRel. Deleting such a folder would destroy a path the configuration
// wants preserved.
func (r *Rules) Protects(folderRel string) bool {
	if r == nil {
		return false
	}
	for _, p := range r.protected {
		if paths.IsUnder(p, folderRel) {
			return true
		}
	}
	return false
}

func pathSet(in []string) map[string]struct{} {
	set := make(map[string]struct{}, len(in))
	for _, p := range in {
		if c := paths.Clean(p); c != "" {
			set[c] = struct{}{}
		}
	}
	return set
}

func nameSet(in []string) map[string]struct{} {
	set := make(map[string]struct{}, len(in))
	for _, n := range in {
		if n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}
