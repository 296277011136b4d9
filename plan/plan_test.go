package plan

import (
    "testing"

    "github.com/dsoprea/go-photocopy/enrich"
)

func TestRelatedDestinationSimpleSidecar(t *testing.T) {
    main := enrich.SourceFile{Path: "/src/photo.jpg"}
    related := enrich.SourceFile{Path: "/src/photo.xmp"}

    got := relatedDestination("/dst/2024/photo.jpg", main, related)
    want := "/dst/2024/photo.xmp"
    if got != want {
        t.Fatalf("expected %q, got %q", want, got)
    }
}

func TestRelatedDestinationDoubleExtensionSidecar(t *testing.T) {
    main := enrich.SourceFile{Path: "/src/photo.jpg"}
    related := enrich.SourceFile{Path: "/src/photo.jpg.json"}

    got := relatedDestination("/dst/2024/photo.jpg", main, related)
    want := "/dst/2024/photo.jpg.json"
    if got != want {
        t.Fatalf("expected %q, got %q", want, got)
    }
}

func TestPlannerPlanComputesRelatedPaths(t *testing.T) {
    tpl, err := ParseTemplate("dst/{year}/{name}{ext}")
    if err != nil {
        t.Fatalf("ParseTemplate: %v", err)
    }

    dir := t.TempDir()
    resolver := NewResolver(ResolverConfig{Policy: PolicyOverwrite})
    planner := NewPlanner(tpl, CasingPreserve, resolver)

    ef := &enrich.EnrichedFile{
        Source: enrich.SourceFile{Path: "/src/photo.jpg", Kind: enrich.KindStillImage},
        Related: []enrich.SourceFile{
            {Path: "/src/photo.xmp", Kind: enrich.KindSidecarXMP},
        },
    }
    ef.Metadata.Datetime = enrich.FileDateTime{Source: enrich.DateTimeFileModification}

    dp, err := planner.Plan(dir, ef)
    if err != nil {
        t.Fatalf("Plan: %v", err)
    }

    relatedDest, ok := dp.RelatedPaths["/src/photo.xmp"]
    if !ok {
        t.Fatalf("expected a related path entry for photo.xmp")
    }
    if relatedDest == dp.PlannedPath {
        t.Fatalf("expected related destination to differ from the main destination")
    }
}
