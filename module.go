package ape

import "os"

// defaultReadImportSource is compileImport's filesystem-backed default;
// Context.SetFileRead overrides the package-level readImportSource
// pointer so a host can serve modules from memory, an archive, or a
// virtual filesystem instead (spec.md §6 "Host I/O hooks").
func defaultReadImportSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
