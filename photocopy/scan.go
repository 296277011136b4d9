package photocopy

import (
    "github.com/dsoprea/go-photocopy/enrich"
    "github.com/dsoprea/go-photocopy/xfer"
)

// ScanResult is what the scan verb reports: every enriched file plus any
// validator failures found along the way (spec.md section 6.1: scan exits
// 0 unless canceled/invalid, reporting validation problems per-file
// without failing the run).
type ScanResult struct {
    Files    []*enrich.EnrichedFile
    Failures []ValidationFailure
}

// Scan enriches every discovered file under Options.SourceRoot, runs
// validators against the batch, and reports sweep progress through a
// GroupReporter the way copy_files.go drives its tqdm bar over one
// finished group at a time. A nil group reporter runs silently.
func (d *Driver) Scan(group *xfer.GroupReporter, validators []Validator) (ScanResult, error) {
    sources, err := enrich.Scan(enrich.ScanOptions{
        Root:     d.opts.SourceRoot,
        Excludes: d.opts.Excludes,
    })
    if err != nil {
        return ScanResult{}, err
    }

    pipeline := enrich.NewPipeline(enrich.PipelineConfig{
        Engine:        d.engine,
        SidecarPolicy: d.opts.SidecarPolicy,
    })

    enriched := make([]*enrich.EnrichedFile, len(sources))
    fill := func(i int) bool {
        enriched[i] = pipeline.Enrich(sources[i])
        return false
    }

    if group != nil {
        group.Run(len(sources), fill)
    } else {
        for i := range sources {
            fill(i)
        }
    }

    enrich.ApplyLivePhotoInheritance(enriched)
    if len(d.opts.GPSTrailPaths) > 0 {
        enrich.ApplyCompanionGPS(enriched, d.opts.GPSTrailPaths, d.opts.gpsProximityWindow(), d.engine)
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

    return ScanResult{Files: enriched, Failures: failures}, nil
}
