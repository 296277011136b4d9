package plan

import (
    "crypto/sha256"
    "encoding/hex"
    "os"
    "path/filepath"
    "testing"
)

func TestResolveSkipExistingReturnsSkipWhenDestExists(t *testing.T) {
    dir := t.TempDir()
    dest := filepath.Join(dir, "photo.jpg")
    if err := os.WriteFile(dest, []byte("x"), 0o644); err != nil {
        t.Fatalf("write dest: %v", err)
    }

    r := NewResolver(ResolverConfig{Policy: PolicySkipExisting})
    action, path, err := r.Resolve("/src/photo.jpg", dest, "")
    if err != nil {
        t.Fatalf("Resolve: %v", err)
    }
    if action != ActionSkip || path != dest {
        t.Fatalf("expected Skip at %s, got %v %s", dest, action, path)
    }
}

func TestResolveOverwriteReturnsOverwriteWhenDestExists(t *testing.T) {
    dir := t.TempDir()
    dest := filepath.Join(dir, "photo.jpg")
    if err := os.WriteFile(dest, []byte("x"), 0o644); err != nil {
        t.Fatalf("write dest: %v", err)
    }

    r := NewResolver(ResolverConfig{Policy: PolicyOverwrite})
    action, path, err := r.Resolve("/src/photo.jpg", dest, "")
    if err != nil {
        t.Fatalf("Resolve: %v", err)
    }
    if action != ActionOverwrite || path != dest {
        t.Fatalf("expected Overwrite at %s, got %v %s", dest, action, path)
    }
}

func TestResolveSuffixIncrementsUntilFree(t *testing.T) {
    dir := t.TempDir()
    dest := filepath.Join(dir, "photo.jpg")
    if err := os.WriteFile(dest, []byte("x"), 0o644); err != nil {
        t.Fatalf("write dest: %v", err)
    }
    if err := os.WriteFile(filepath.Join(dir, "photo-1.jpg"), []byte("y"), 0o644); err != nil {
        t.Fatalf("write existing suffix: %v", err)
    }

    r := NewResolver(ResolverConfig{Policy: PolicySuffix})
    action, path, err := r.Resolve("/src/photo.jpg", dest, "")
    if err != nil {
        t.Fatalf("Resolve: %v", err)
    }
    if action != ActionSuffixedWrite {
        t.Fatalf("expected SuffixedWrite, got %v", action)
    }
    want := filepath.Join(dir, "photo-2.jpg")
    if path != want {
        t.Fatalf("expected %s, got %s", want, path)
    }
}

func TestResolveReuseIfEqualReusesOnMatchingChecksum(t *testing.T) {
    dir := t.TempDir()
    dest := filepath.Join(dir, "photo.jpg")
    content := []byte("identical content")
    if err := os.WriteFile(dest, content, 0o644); err != nil {
        t.Fatalf("write dest: %v", err)
    }

    sum := shaHex(t, content)

    r := NewResolver(ResolverConfig{Policy: PolicyReuseIfEqual})
    action, path, err := r.Resolve("/src/photo.jpg", dest, sum)
    if err != nil {
        t.Fatalf("Resolve: %v", err)
    }
    if action != ActionReuseExisting || path != dest {
        t.Fatalf("expected ReuseExisting at %s, got %v %s", dest, action, path)
    }
}

func TestResolveReuseIfEqualFallsBackToSuffixOnMismatch(t *testing.T) {
    dir := t.TempDir()
    dest := filepath.Join(dir, "photo.jpg")
    if err := os.WriteFile(dest, []byte("different content"), 0o644); err != nil {
        t.Fatalf("write dest: %v", err)
    }

    r := NewResolver(ResolverConfig{Policy: PolicyReuseIfEqual})
    action, _, err := r.Resolve("/src/photo.jpg", dest, shaHex(t, []byte("source content")))
    if err != nil {
        t.Fatalf("Resolve: %v", err)
    }
    if action != ActionSuffixedWrite {
        t.Fatalf("expected fallback to SuffixedWrite, got %v", action)
    }
}

func TestResolveSkipDuplicatesSkipsSecondOccurrenceOfSameHash(t *testing.T) {
    dir := t.TempDir()
    r := NewResolver(ResolverConfig{Policy: PolicySkipDuplicates})

    sum := shaHex(t, []byte("same content"))

    action1, _, err := r.Resolve("/src/a.jpg", filepath.Join(dir, "a.jpg"), sum)
    if err != nil {
        t.Fatalf("Resolve first: %v", err)
    }
    if action1 != ActionWrite {
        t.Fatalf("expected first occurrence to Write, got %v", action1)
    }

    action2, _, err := r.Resolve("/src/b.jpg", filepath.Join(dir, "b.jpg"), sum)
    if err != nil {
        t.Fatalf("Resolve second: %v", err)
    }
    if action2 != ActionSkip {
        t.Fatalf("expected second occurrence with same hash to Skip, got %v", action2)
    }
}

func TestValidateResolverConfigRejectsMissingNumberToken(t *testing.T) {
    err := ValidateResolverConfig(ResolverConfig{Policy: PolicySuffix, DuplicatesFormat: "-copy"})
    if err == nil {
        t.Fatalf("expected validation error for duplicates_format without {number}")
    }
}

func shaHex(t *testing.T, content []byte) string {
    t.Helper()
    sum := sha256.Sum256(content)
    return hex.EncodeToString(sum[:])
}
