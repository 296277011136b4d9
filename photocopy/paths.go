package photocopy

import (
    "fmt"
    "os"
    "path/filepath"
)

// boundaryFileName is the conventional name the search path below looks
// for at each candidate directory (spec.md section 6.4).
const boundaryFileName = "geo.geobounds"

// FindBoundaryFile searches, in order, <gazetteerDir>/, <executableDir>/data/,
// <executableDir>/, and <userHome>/.photocopy/ for geo.geobounds, returning
// the first path that exists (spec.md section 6.5). It returns "" with no
// error if none of the candidates exist; an empty BoundaryPath is a valid,
// optional configuration (reverse-geocoding falls back to the gazetteer
// record's own country_code field).
func FindBoundaryFile(gazetteerDir string) (string, error) {
    candidates, err := boundarySearchPath(gazetteerDir)
    if err != nil {
        return "", err
    }

    for _, candidate := range candidates {
        if _, err := os.Stat(candidate); err == nil {
            return candidate, nil
        }
    }
    return "", nil
}

func boundarySearchPath(gazetteerDir string) ([]string, error) {
    execDir, err := executableDir()
    if err != nil {
        return nil, err
    }

    home, err := os.UserHomeDir()
    if err != nil {
        return nil, fmt.Errorf("resolve user home directory: %w", err)
    }

    return []string{
        filepath.Join(gazetteerDir, boundaryFileName),
        filepath.Join(execDir, "data", boundaryFileName),
        filepath.Join(execDir, boundaryFileName),
        filepath.Join(home, ".photocopy", boundaryFileName),
    }, nil
}

// DefaultLogDir is <user-home>/.photocopy/logs/ (spec.md section 6.5).
func DefaultLogDir() (string, error) {
    home, err := os.UserHomeDir()
    if err != nil {
        return "", fmt.Errorf("resolve user home directory: %w", err)
    }
    return filepath.Join(home, ".photocopy", "logs"), nil
}

func executableDir() (string, error) {
    exe, err := os.Executable()
    if err != nil {
        return "", fmt.Errorf("resolve executable path: %w", err)
    }
    resolved, err := filepath.EvalSymlinks(exe)
    if err != nil {
        resolved = exe
    }
    return filepath.Dir(resolved), nil
}

// GazetteerIndexPath derives the default `.geostreamindex` sidecar path
// for a gazetteer data file, next to it.
func GazetteerIndexPath(gazetteerDataPath string) string {
    return gazetteerDataPath + ".geostreamindex"
}

// PersistentCachePath derives the default `.geocache.pogreb` path, kept
// alongside the gazetteer data (spec.md section 4.2 expansion).
func PersistentCachePath(gazetteerDataPath string) string {
    return filepath.Join(filepath.Dir(gazetteerDataPath), ".geocache.pogreb")
}
