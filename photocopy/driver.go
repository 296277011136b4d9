package photocopy

import (
    "context"
    "crypto/rand"
    "encoding/hex"
    "fmt"
    "path/filepath"
    "time"

    "github.com/dsoprea/go-logging"

    "github.com/dsoprea/go-photocopy/enrich"
    "github.com/dsoprea/go-photocopy/geocode"
    "github.com/dsoprea/go-photocopy/plan"
    "github.com/dsoprea/go-photocopy/xfer"
)

var driverLogger = log.NewLogger("photocopy.driver")

// Driver owns the reverse-geocoding engine for one or more runs and ties
// together the scan -> enrich -> plan -> execute pipeline (spec.md
// section 2), grounded in
// command/agi_autogroup/main.go:handleGroup's top-level shape (build
// indices, iterate, dispatch to copy, write summaries) generalized from a
// single grouping pass into the five-stage pipeline.
type Driver struct {
    opts   Options
    engine *geocode.Engine
}

// NewDriver opens the reverse-geocoding engine (gazetteer index, optional
// boundary index and persistent cache) for opts.
func NewDriver(opts Options) (*Driver, error) {
    engine, err := geocode.NewEngine(geocode.EngineConfig{
        GazetteerDataPath:   opts.GazetteerDataPath,
        GazetteerIndexPath:  opts.GazetteerIndexPath,
        BoundaryPath:        opts.BoundaryPath,
        PersistentCachePath: opts.PersistentCachePath,
        CellCacheBytes:      opts.cellCacheBytes(),
    })
    if err != nil {
        return nil, fmt.Errorf("open geocoding engine: %w", err)
    }

    return &Driver{opts: opts, engine: engine}, nil
}

// Close releases the underlying geocoding engine's resources.
func (d *Driver) Close() error {
    return d.engine.Close()
}

// Copy runs a full copy pass, writing a transaction log under opts.LogDir
// (or the spec.md section 6.5 default if unset).
func (d *Driver) Copy(ctx context.Context, reporter xfer.Reporter) (xfer.CopyResult, error) {
    return d.run(ctx, reporter, false)
}

// Move is identical to Copy except the source files are removed once each
// transfer succeeds.
func (d *Driver) Move(ctx context.Context, reporter xfer.Reporter) (xfer.CopyResult, error) {
    return d.run(ctx, reporter, true)
}

// Plan runs scan -> enrich -> cross-file enrichment -> plan without
// executing any transfer, for callers (validate, scan, report) that only
// need the resulting DestinationPlan batch.
func (d *Driver) Plan() ([]plan.DestinationPlan, error) {
    enriched, err := d.scanAndEnrich()
    if err != nil {
        return nil, err
    }
    return d.planAll(enriched)
}

func (d *Driver) run(ctx context.Context, reporter xfer.Reporter, move bool) (xfer.CopyResult, error) {
    plans, err := d.Plan()
    if err != nil {
        return xfer.CopyResult{}, err
    }

    moveSet := make(map[string]bool, len(plans))
    if move {
        for _, dp := range plans {
            moveSet[dp.File.Source.Path] = true
        }
    }

    logWriter, operationID, err := d.openTransactionLog(move)
    if err != nil {
        return xfer.CopyResult{}, err
    }

    executor := xfer.NewExecutor(xfer.ExecutorConfig{
        Workers:   d.opts.workers(),
        Reporter:  reporter,
        LogWriter: logWriter,
    })

    result := executor.Run(ctx, plans, moveSet)

    status := "Completed"
    if result.Canceled {
        status = "Aborted"
    }
    if err := logWriter.Close(status, result.FilesProcessed, result.FilesFailed); err != nil {
        driverLogger.Warningf(nil, "failed to close transaction log for operation %s: %v", operationID, err)
    }

    return result, nil
}

func (d *Driver) scanAndEnrich() ([]*enrich.EnrichedFile, error) {
    sources, err := enrich.Scan(enrich.ScanOptions{
        Root:     d.opts.SourceRoot,
        Excludes: d.opts.Excludes,
    })
    if err != nil {
        return nil, fmt.Errorf("scan %s: %w", d.opts.SourceRoot, err)
    }

    pipeline := enrich.NewPipeline(enrich.PipelineConfig{
        Engine:        d.engine,
        SidecarPolicy: d.opts.SidecarPolicy,
    })

    enriched := make([]*enrich.EnrichedFile, 0, len(sources))
    for _, source := range sources {
        enriched = append(enriched, pipeline.Enrich(source))
    }

    enrich.ApplyLivePhotoInheritance(enriched)

    if len(d.opts.GPSTrailPaths) > 0 {
        enrich.ApplyCompanionGPS(enriched, d.opts.GPSTrailPaths, d.opts.gpsProximityWindow(), d.engine)
    }

    return enriched, nil
}

func (d *Driver) planAll(enriched []*enrich.EnrichedFile) ([]plan.DestinationPlan, error) {
    tpl, err := plan.ParseTemplate(d.opts.Template)
    if err != nil {
        return nil, fmt.Errorf("parse destination template: %w", err)
    }

    resolverCfg := plan.ResolverConfig{
        Policy:           d.opts.DuplicatePolicy,
        DuplicatesFormat: d.opts.DuplicatesFormat,
    }
    if err := plan.ValidateResolverConfig(resolverCfg); err != nil {
        return nil, fmt.Errorf("invalid duplicate-resolver configuration: %w", err)
    }

    planner := plan.NewPlanner(tpl, d.opts.Casing, plan.NewResolver(resolverCfg))

    plans := make([]plan.DestinationPlan, 0, len(enriched))
    for _, ef := range enriched {
        dp, err := planner.Plan(d.opts.DestRoot, ef)
        if err != nil {
            driverLogger.Warningf(nil, "failed to plan destination for %s: %v", ef.Source.Path, err)
            continue
        }
        plans = append(plans, dp)
    }
    return plans, nil
}

func (d *Driver) openTransactionLog(move bool) (*xfer.TransactionLogWriter, string, error) {
    logDir := d.opts.LogDir
    if logDir == "" {
        defaultDir, err := DefaultLogDir()
        if err != nil {
            return nil, "", err
        }
        logDir = defaultDir
    }

    fileName, err := xfer.DefaultLogFileName(time.Now())
    if err != nil {
        return nil, "", err
    }
    logPath := filepath.Join(logDir, fileName)

    operationID, err := newOperationID()
    if err != nil {
        return nil, "", err
    }

    op := "copy"
    if move {
        op = "move"
    }

    writer, err := xfer.OpenTransactionLog(logPath, operationID, map[string]interface{}{
        "operation":         op,
        "source_root":       d.opts.SourceRoot,
        "dest_root":         d.opts.DestRoot,
        "template":          d.opts.Template,
        "duplicate_policy":  int(d.opts.DuplicatePolicy),
        "workers":           d.opts.workers(),
    })
    if err != nil {
        return nil, "", fmt.Errorf("open transaction log %s: %w", logPath, err)
    }

    return writer, operationID, nil
}

func newOperationID() (string, error) {
    var buf [8]byte
    if _, err := rand.Read(buf[:]); err != nil {
        return "", fmt.Errorf("generate operation id: %w", err)
    }
    return hex.EncodeToString(buf[:]), nil
}
