//go:build !linux

package mover

import "os"

// renameNoReplace is a plain rename; Move checks the target beforehand.
func renameNoReplace(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}
