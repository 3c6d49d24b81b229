package twincat

import (
	"os"
	"path/filepath"
	"strings"
)

// resolveRef turns a TwinCAT reference (backslash separated, usually
// relative) into an absolute path rooted at dir.
func resolveRef(dir, ref string) string {
	p := filepath.FromSlash(strings.ReplaceAll(ref, `\`, "/"))
	if !filepath.IsAbs(p) {
		p = filepath.Join(dir, p)
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

// lookupPath returns path when it exists. Otherwise each missing component
// is matched case-insensitively against its directory, since projects
// authored on Windows rarely agree with the on-disk case.
func lookupPath(path string) (string, bool) {
	if _, err := os.Stat(path); err == nil {
		return path, true
	}
	vol := filepath.VolumeName(path)
	cur := vol + string(filepath.Separator)
	for _, part := range strings.Split(filepath.ToSlash(path[len(vol):]), "/") {
		if part == "" {
			continue
		}
		next := filepath.Join(cur, part)
		if _, err := os.Lstat(next); err == nil {
			cur = next
			continue
		}
		entries, err := os.ReadDir(cur)
		if err != nil {
			return path, false
		}
		found := false
		for _, e := range entries {
			if strings.EqualFold(e.Name(), part) {
				cur = filepath.Join(cur, e.Name())
				found = true
				break
			}
		}
		if !found {
			return path, false
		}
	}
	return cur, true
}

func fileExists(path string) bool {
	p, ok := lookupPath(path)
	if !ok {
		return false
	}
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}
