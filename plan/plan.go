package plan

import (
    "path/filepath"
    "strings"

    "github.com/dsoprea/go-photocopy/enrich"
)

// DestinationPlan is the planner's output for one EnrichedFile (spec.md
// section 3).
type DestinationPlan struct {
    File            *enrich.EnrichedFile
    PlannedPath     string
    CollisionAction CollisionAction
    RelatedPaths    map[string]string // related SourceFile.Path -> its planned path
}

// Planner combines a parsed Template, a casing policy, and a Resolver
// into full DestinationPlans.
type Planner struct {
    template *Template
    casing   CasingPolicy
    resolver *Resolver
}

// NewPlanner builds a Planner.
func NewPlanner(template *Template, casing CasingPolicy, resolver *Resolver) *Planner {
    return &Planner{template: template, casing: casing, resolver: resolver}
}

// Plan expands template against ef, resolves collisions against root, and
// computes related-file destinations.
func (p *Planner) Plan(root string, ef *enrich.EnrichedFile) (DestinationPlan, error) {
    relPath := p.template.Expand(ef, p.casing)
    plannedPath := filepath.Join(root, filepath.FromSlash(relPath))

    action, finalPath, err := p.resolver.Resolve(ef.Source.Path, plannedPath, ef.Metadata.Checksum)
    if err != nil {
        return DestinationPlan{}, err
    }

    dp := DestinationPlan{
        File:            ef,
        PlannedPath:     finalPath,
        CollisionAction: action,
        RelatedPaths:    make(map[string]string),
    }

    for _, related := range ef.Related {
        dp.RelatedPaths[related.Path] = relatedDestination(finalPath, ef.Source, related)
    }

    return dp, nil
}

// relatedDestination transforms mainDest by swapping the stem part that
// matches mainSource's stem for relatedSource's stem, preserving
// relatedSource's extension — special-casing double extensions like
// "photo.jpg.xmp", whose "extension" for this purpose is ".jpg.xmp", not
// just ".xmp" (spec.md section 4.5.1 step 4).
func relatedDestination(mainDest string, mainSource, relatedSource enrich.SourceFile) string {
    dir := filepath.Dir(mainDest)
    mainDestBase := filepath.Base(mainDest)
    mainDestExt := filepath.Ext(mainDestBase)
    mainDestStem := strings.TrimSuffix(mainDestBase, mainDestExt)

    mainBase := filepath.Base(mainSource.Path)
    mainStem := mainSource.Stem()

    relatedBase := filepath.Base(relatedSource.Path)
    relatedExt := filepath.Ext(relatedBase)
    remainder := strings.TrimSuffix(relatedBase, relatedExt)

    switch {
    case strings.EqualFold(remainder, mainBase):
        // Double-extension sidecar: "photo.jpg.xmp" alongside "photo.jpg".
        return filepath.Join(dir, mainDestBase+relatedExt)
    case strings.EqualFold(remainder, mainStem):
        return filepath.Join(dir, mainDestStem+relatedExt)
    default:
        // Companion with an unrelated stem (e.g. a differently-named
        // paired file): keep its own stem, relocate beside the main file.
        return filepath.Join(dir, remainder+relatedExt)
    }
}
