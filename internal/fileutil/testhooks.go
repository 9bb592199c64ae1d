package fileutil

// SetFileOpsForTests overrides the rename and remove calls used by MoveFile.
// A nil argument keeps the current function.
func SetFileOpsForTests(renameFn func(string, string) error, removeFn func(string) error) func() {
	prevRename, prevRemove := rename, remove
	if renameFn != nil {
		rename = renameFn
	}
	if removeFn != nil {
		remove = removeFn
	}
	return func() {
		rename, remove = prevRename, prevRemove
	}
}
