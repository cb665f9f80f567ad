package library

import (
	"os"
	"path/filepath"
)

// GameFolder is one on-disk folder the scanner decided holds a game.
type GameFolder struct {
	Path string
	Name string
}

// maxScanDepth bounds category-folder recursion.
const maxScanDepth = 4

// ScanRoot walks a library root. A directory containing at least one
// regular file is a game folder; one containing only directories is a
// category folder and is recursed into.
func ScanRoot(root string) ([]GameFolder, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var folders []GameFolder
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		folders = append(folders, scanDir(filepath.Join(root, entry.Name()), entry.Name(), 0)...)
	}
	return folders, nil
}

func scanDir(path, name string, depth int) []GameFolder {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil
	}

	hasFile := false
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			hasFile = true
			break
		}
	}
	if hasFile {
		return []GameFolder{{Path: path, Name: name}}
	}

	if depth >= maxScanDepth {
		return nil
	}

	var folders []GameFolder
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		folders = append(folders, scanDir(filepath.Join(path, entry.Name()), entry.Name(), depth+1)...)
	}
	return folders
}
