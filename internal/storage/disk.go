package storage

import (
	"os"
	"path/filepath"
)

// DiskUsageBytes returns the total size in bytes of the given paths.
// Each path may be a file or a directory (recursively summed).
// Missing or empty paths are skipped; errors during the walk are returned.
func DiskUsageBytes(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		_, n, err := PathStats(p)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// PathStats returns the number of regular files under path and their total
// size. A missing path reports zero.
func PathStats(path string) (files int, bytes int64, err error) {
	if path == "" {
		return 0, 0, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, 0, nil
		}
		return 0, 0, err
	}
	if !info.IsDir() {
		return 1, info.Size(), nil
	}
	err = filepath.Walk(path, func(_ string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.Mode().IsRegular() {
			files++
			bytes += fi.Size()
		}
		return nil
	})
	return files, bytes, err
}

// DatabaseBytes returns the on-disk size of a SQLite database including its
// WAL and shared-memory sidecar files.
func DatabaseBytes(dbPath string) (int64, error) {
	if dbPath == "" {
		return 0, nil
	}
	return DiskUsageBytes(dbPath, dbPath+"-wal", dbPath+"-shm")
}
