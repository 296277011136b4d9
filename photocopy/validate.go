package photocopy

import (
    "fmt"

    "github.com/dsoprea/go-photocopy/enrich"
    "github.com/dsoprea/go-photocopy/plan"
)

// Validator is the capability set spec.md's design notes describe for
// validation: a name plus a pure check against one already-enriched file.
// Implementations stay flat (no hierarchy) per that note.
type Validator interface {
    Name() string
    Validate(ef *enrich.EnrichedFile) error
}

// ValidationFailure pairs one file with one validator's rejection.
type ValidationFailure struct {
    Path      string
    Validator string
    Err       error
}

func (f ValidationFailure) String() string {
    return fmt.Sprintf("%s: %s: %v", f.Path, f.Validator, f.Err)
}

// checksumPresentValidator rejects files the enrichment pipeline never
// managed to checksum (stepChecksum only fails on an I/O error opening the
// source, which should already have surfaced as a scan/enrich failure, but
// a template/report consumer must not silently treat an empty digest as
// "no duplicates").
type checksumPresentValidator struct{}

func (checksumPresentValidator) Name() string { return "checksum_present" }

func (checksumPresentValidator) Validate(ef *enrich.EnrichedFile) error {
    if ef.Metadata.Checksum == "" {
        return fmt.Errorf("no checksum computed for %s", ef.Source.Path)
    }
    return nil
}

// dateResolvedValidator rejects files whose datetime step never resolved
// anything at all, even a file-modification-time fallback, since every
// destination-path template depends on at least one date token.
type dateResolvedValidator struct{}

func (dateResolvedValidator) Name() string { return "date_resolved" }

func (dateResolvedValidator) Validate(ef *enrich.EnrichedFile) error {
    if ef.Metadata.Datetime.IsZero() {
        return fmt.Errorf("no date of any kind resolved for %s", ef.Source.Path)
    }
    return nil
}

// unknownReasonValidator flags files that slipped past enrichment with an
// explicit unknown_reason — not necessarily a hard failure by itself, but
// worth surfacing distinctly from a plain I/O error.
type unknownReasonValidator struct{}

func (unknownReasonValidator) Name() string { return "no_unresolved_reason" }

func (unknownReasonValidator) Validate(ef *enrich.EnrichedFile) error {
    if ef.Metadata.UnknownReason != enrich.ReasonNone {
        return fmt.Errorf("unresolved: %s", ef.Metadata.UnknownReason)
    }
    return nil
}

// DefaultValidators returns the validator set the validate and scan verbs
// run by default.
func DefaultValidators() []Validator {
    return []Validator{
        checksumPresentValidator{},
        dateResolvedValidator{},
        unknownReasonValidator{},
    }
}

// Validate scans, enriches, and plans like Copy/Move would, then runs
// validators against every enriched file without touching the destination
// filesystem tree. It returns one ValidationFailure per (file, validator)
// rejection.
func (d *Driver) Validate(validators []Validator) ([]ValidationFailure, error) {
    enriched, err := d.scanAndEnrich()
    if err != nil {
        return nil, err
    }

    // Planning surfaces template/duplicate-policy problems even though
    // validate never executes a transfer.
    plans, err := d.planAll(enriched)
    if err != nil {
        return nil, err
    }

    var failures []ValidationFailure
    for _, ef := range enriched {
        for _, v := range validators {
            if err := v.Validate(ef); err != nil {
                failures = append(failures, ValidationFailure{
                    Path:      ef.Source.Path,
                    Validator: v.Name(),
                    Err:       err,
                })
            }
        }
    }

    for _, conflict := range planDestinationConflicts(plans) {
        failures = append(failures, ValidationFailure{
            Path:      conflict,
            Validator: "destination_conflict",
            Err:       fmt.Errorf("more than one source file planned to %s", conflict),
        })
    }

    return failures, nil
}

// planDestinationConflicts finds plans that collided onto the same final
// path without the resolver reconciling them (e.g. two SuffixedWrite
// candidates that still landed on the same path due to a concurrent
// external write) — used by validate's stricter consistency check.
func planDestinationConflicts(plans []plan.DestinationPlan) []string {
    seen := make(map[string]bool, len(plans))
    var conflicts []string
    for _, dp := range plans {
        if dp.CollisionAction == plan.ActionSkip {
            continue
        }
        if seen[dp.PlannedPath] {
            conflicts = append(conflicts, dp.PlannedPath)
            continue
        }
        seen[dp.PlannedPath] = true
    }
    return conflicts
}
