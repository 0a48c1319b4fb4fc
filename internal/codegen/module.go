package codegen

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
)

// genError is a plain generator error.
type genError struct{ msg string }

func (e *genError) Error() string { return e.msg }

// findModule walks up from startDir to the nearest go.mod and returns its directory
// and module path.
func findModule(startDir string) (modRoot string, modPath string, err error) {
	dir := startDir
	for {
		gomod := filepath.Join(dir, "go.mod")
		if fileExists(gomod) {
			b, rerr := os.ReadFile(gomod)
			if rerr != nil {
				return "", "", rerr
			}
			mod := modfile.ModulePath(b)
			if mod == "" {
				return "", "", &genError{msg: "go.mod has no module path at " + filepath.ToSlash(gomod)}
			}
			return dir, mod, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", "", &genError{msg: "could not find go.mod starting from " + filepath.ToSlash(startDir)}
}

// moduleImportPathForDir returns the import path of dir inside the module rooted at modRoot.
func moduleImportPathForDir(modRoot, modPath, dir string) (string, error) {
	rel, err := filepath.Rel(modRoot, dir)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)

	if rel == "." {
		return modPath, nil
	}
	if strings.HasPrefix(rel, "../") || rel == ".." {
		return "", &genError{msg: "directory is outside module root: dir=" + filepath.ToSlash(dir) + " modRoot=" + filepath.ToSlash(modRoot)}
	}
	return modPath + "/" + rel, nil
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
