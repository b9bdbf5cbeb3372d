package dedup

import (
	"archive/zip"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"dupecull/internal/identity"
)

// Target is one image scheduled for fingerprinting.
type Target struct {
	ID   identity.Identifier
	Size int64
}

var imageExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".webp": {},
}

func isImagePath(path string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

func isZipContainer(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip", ".cbz":
		return true
	default:
		return false
	}
}

// Discover walks the given roots and returns fingerprinting targets: loose
// image files plus every image entry inside zip containers. Containers that
// cannot be opened are reported through the errs slice without stopping the
// walk.
func Discover(roots []string) (targets []Target, containers []string, errs []error) {
	for _, root := range roots {
		walkErr := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				errs = append(errs, fmt.Errorf("walk %s: %w", path, err))
				return nil
			}
			if entry.IsDir() {
				return nil
			}
			switch {
			case isZipContainer(path):
				containers = append(containers, path)
				entryTargets, err := containerTargets(path)
				if err != nil {
					errs = append(errs, err)
					return nil
				}
				targets = append(targets, entryTargets...)
			case isImagePath(path):
				info, err := entry.Info()
				if err != nil {
					errs = append(errs, fmt.Errorf("stat %s: %w", path, err))
					return nil
				}
				id, err := identity.Canonicalize(path)
				if err != nil {
					errs = append(errs, fmt.Errorf("canonicalize %s: %w", path, err))
					return nil
				}
				targets = append(targets, Target{ID: id, Size: info.Size()})
			}
			return nil
		})
		if walkErr != nil {
			errs = append(errs, fmt.Errorf("walk %s: %w", root, walkErr))
		}
	}
	return targets, containers, errs
}

func containerTargets(container string) ([]Target, error) {
	reader, err := zip.OpenReader(container)
	if err != nil {
		return nil, fmt.Errorf("open container %s: %w", container, err)
	}
	defer reader.Close()

	var targets []Target
	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() || !isImagePath(entry.Name) {
			continue
		}
		id, err := identity.Canonicalize(container + "!" + entry.Name)
		if err != nil {
			return nil, fmt.Errorf("canonicalize %s!%s: %w", container, entry.Name, err)
		}
		targets = append(targets, Target{ID: id, Size: int64(entry.UncompressedSize64)})
	}
	return targets, nil
}
