package core

import "strings"

// ComputeSharedDir finds the longest common slash-delimited path
// prefix across the component's own file paths and every recorded
// dependency source path in all four classes. A prefix without a path
// separator is not a directory, so nothing is recorded. The "computed"
// marker is distinct from "computed as empty": repeated calls are
// no-ops either way.
func (c *Component) ComputeSharedDir() {
	if c.sharedDirComputed {
		return
	}
	c.sharedDirComputed = true

	var paths []string
	for _, f := range c.Files() {
		paths = append(paths, f.RelativePath)
	}
	for _, list := range c.DependencyLists() {
		paths = append(paths, list.SourcePaths()...)
	}
	if len(paths) == 0 {
		return
	}
	prefix := longestCommonDirPrefix(paths)
	if prefix == "" {
		return
	}
	c.OriginallySharedDir = prefix
}

// StripSharedDir rewrites every own file path, dist path, the main
// file, each class's recorded source paths, and each custom-resolved
// destination by removing the shared directory segment. Guarded by its
// own single-invocation marker: stripping twice would corrupt paths.
// Must run before any disk write of an imported component.
func (c *Component) StripSharedDir() {
	if c.sharedDirStripped {
		return
	}
	c.sharedDirStripped = true
	c.ComputeSharedDir()
	shared := c.OriginallySharedDir
	if shared == "" {
		return
	}

	files := c.Files()
	for i := range files {
		files[i].RelativePath = stripPathPrefix(files[i].RelativePath, shared)
	}
	for i := range c.Dists {
		c.Dists[i].RelativePath = stripPathPrefix(c.Dists[i].RelativePath, shared)
	}
	c.MainFile = stripPathPrefix(c.MainFile, shared)
	for _, list := range c.DependencyLists() {
		list.StripSharedPrefix(shared)
	}
	for i := range c.CustomResolvedPaths {
		c.CustomResolvedPaths[i].DestinationPath =
			stripPathPrefix(c.CustomResolvedPaths[i].DestinationPath, shared)
	}
}

// RestoreSharedDir installs a shared directory value recorded by a
// previous computation (from the workspace map or a persisted
// document), marking it as computed so it is not re-derived from the
// possibly already-stripped paths.
func (c *Component) RestoreSharedDir(dir string) {
	c.OriginallySharedDir = dir
	c.sharedDirComputed = true
}

// longestCommonDirPrefix returns the longest directory prefix shared
// by every path, or "" when the common prefix contains no separator.
func longestCommonDirPrefix(paths []string) string {
	common := strings.Split(paths[0], "/")
	// Last segment is a file name, never part of the directory prefix.
	common = common[:len(common)-1]
	for _, path := range paths[1:] {
		segments := strings.Split(path, "/")
		segments = segments[:len(segments)-1]
		if len(segments) < len(common) {
			common = common[:len(segments)]
		}
		for i := range common {
			if common[i] != segments[i] {
				common = common[:i]
				break
			}
		}
		if len(common) == 0 {
			return ""
		}
	}
	return strings.Join(common, "/")
}
