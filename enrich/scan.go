package enrich

import (
    "fmt"
    "io/fs"
    "path/filepath"

    "github.com/bmatcuk/doublestar/v4"
)

// ScanOptions tunes directory enumeration.
type ScanOptions struct {
    Root     string
    Excludes []string // glob patterns, matched against paths relative to Root
}

// Scan walks root and returns every regular file as a SourceFile, skipping
// any path matching an exclude glob (e.g. "**/@eaDir/**", "**/.thumbnails/**").
func Scan(opts ScanOptions) ([]SourceFile, error) {
    var files []SourceFile

    err := filepath.WalkDir(opts.Root, func(path string, d fs.DirEntry, err error) error {
        if err != nil {
            return err
        }

        rel, relErr := filepath.Rel(opts.Root, path)
        if relErr != nil {
            return relErr
        }

        if excluded(rel, opts.Excludes) {
            if d.IsDir() {
                return fs.SkipDir
            }
            return nil
        }

        if d.IsDir() {
            return nil
        }

        info, infoErr := d.Info()
        if infoErr != nil {
            return infoErr
        }

        files = append(files, SourceFile{
            Path:    path,
            Root:    opts.Root,
            Kind:    DetectKind(path),
            Size:    info.Size(),
            ModTime: info.ModTime(),
        })
        return nil
    })
    if err != nil {
        return nil, fmt.Errorf("scan %s: %w", opts.Root, err)
    }

    return files, nil
}

// excluded reports whether rel matches any of patterns, using
// doublestar's "**" globbing so exclude lists can name whole
// subdirectory trees at any depth.
func excluded(rel string, patterns []string) bool {
    slashed := filepath.ToSlash(rel)
    for _, pattern := range patterns {
        if ok, _ := doublestar.Match(pattern, slashed); ok {
            return true
        }
    }
    return false
}
