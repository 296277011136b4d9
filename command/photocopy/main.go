package main

import (
    "context"
    "fmt"
    "os"
    "os/signal"
    "path/filepath"
    "strings"
    "time"

    "github.com/dsoprea/go-logging"
    "github.com/jessevdk/go-flags"

    "github.com/dsoprea/go-photocopy/enrich"
    "github.com/dsoprea/go-photocopy/photocopy"
    "github.com/dsoprea/go-photocopy/plan"
    "github.com/dsoprea/go-photocopy/xfer"
)

var mainLogger = log.NewLogger("main")

const (
    exitOK                = 0
    exitFileFailure       = 1
    exitCancellation      = 2
    exitInvalidArguments  = 3
    exitValidationFailure = 4
    exitIOError           = 5
    exitPartialRollback   = 6
)

// engineParameters are the gazetteer/boundary/cache flags common to every
// verb that needs a reverse-geocoding Driver.
type engineParameters struct {
    GazetteerPath       string `long:"gazetteer-path" description:"GeoNames-format gazetteer TSV file" required:"true"`
    GazetteerIndexPath  string `long:"gazetteer-index-path" description:"Gazetteer stream-index path (defaults alongside the gazetteer file)"`
    BoundaryPath        string `long:"boundary-path" description:"Country-boundary (.geobounds) file (searched automatically if omitted)"`
    PersistentCachePath string `long:"geocode-cache-path" description:"Persistent reverse-geocode cache path (defaults alongside the gazetteer file)"`
    CellCacheBytes      int    `long:"cell-cache-bytes" description:"In-memory gazetteer cell cache budget in bytes"`
}

type planParameters struct {
    SourcePath       string   `long:"source-path" description:"Source directory to scan" required:"true"`
    Excludes         []string `long:"exclude" description:"Glob pattern to exclude from the scan (can be provided more than once)"`
    Template         string   `long:"template" description:"Destination path template" default:"{year}/{month}/{city}/{name}{ext}"`
    Casing           string   `long:"casing" description:"Path-segment casing: preserve, lower, title" default:"preserve"`
    DuplicatePolicy  string   `long:"duplicate-policy" description:"skip_existing, overwrite, suffix, reuse_if_equal, skip_duplicates" default:"skip_existing"`
    DuplicatesFormat string   `long:"duplicates-format" description:"Suffix format for the suffix/reuse_if_equal policies" default:"-{number}"`
    SidecarPolicy    string   `long:"sidecar-policy" description:"embedded_first, sidecar_first, merge_prefer_embedded" default:"embedded_first"`
    GPSTrailPaths    []string `long:"gps-trail" description:"GPX companion-track file (can be provided more than once)"`
    GPSWindowMinutes int      `long:"gps-proximity-window-minutes" description:"Companion-GPS nearest-timestamp search window"`
}

type copyMoveParameters struct {
    engineParameters
    planParameters

    DestPath string `long:"dest-path" description:"Destination root" required:"true"`
    Workers  int    `long:"workers" description:"Parallel transfer worker count"`
    LogDir   string `long:"log-dir" description:"Transaction log directory (defaults to <user-home>/.photocopy/logs)"`
    JSON     bool   `long:"json-progress" description:"Emit JSON progress lines to stdout (silent otherwise)"`
}

type scanParameters struct {
    engineParameters
    planParameters
}

type validateParameters struct {
    engineParameters
    planParameters
}

type rollbackParameters struct {
    LogPath string `long:"log-path" description:"Transaction log file to replay"`
    List    string `long:"list" description:"List transaction logs under this directory instead of rolling one back"`
    Yes     bool   `long:"yes" description:"Don't prompt for confirmation before rolling back"`
}

type reportParameters struct {
    LogPath   string `long:"log-path" description:"Transaction log file to report on" required:"true"`
    OutputDir string `long:"output-dir" description:"Directory to write the HTML catalog into" required:"true"`
}

type subcommands struct {
    Copy     copyMoveParameters `command:"copy" description:"Copy files into an organized destination tree"`
    Move     copyMoveParameters `command:"move" description:"Move files into an organized destination tree"`
    Scan     scanParameters     `command:"scan" description:"Enumerate and enrich source files without writing anything"`
    Validate validateParameters `command:"validate" description:"Enrich and validate source files without writing anything"`
    Rollback rollbackParameters `command:"rollback" description:"Undo, or list, a previously recorded transfer"`
    Report   reportParameters   `command:"report" description:"Render a catalog from a previously recorded transaction log"`
}

var rootArguments = new(subcommands)

func parseCasing(s string) (plan.CasingPolicy, error) {
    switch s {
    case "", "preserve":
        return plan.CasingPreserve, nil
    case "lower":
        return plan.CasingLower, nil
    case "title":
        return plan.CasingTitle, nil
    default:
        return 0, fmt.Errorf("unknown casing policy %q", s)
    }
}

func parseDuplicatePolicy(s string) (plan.DuplicatePolicy, error) {
    switch s {
    case "", "skip_existing":
        return plan.PolicySkipExisting, nil
    case "overwrite":
        return plan.PolicyOverwrite, nil
    case "suffix":
        return plan.PolicySuffix, nil
    case "reuse_if_equal":
        return plan.PolicyReuseIfEqual, nil
    case "skip_duplicates":
        return plan.PolicySkipDuplicates, nil
    default:
        return 0, fmt.Errorf("unknown duplicate policy %q", s)
    }
}

func parseSidecarPolicy(s string) (enrich.SidecarMergePolicy, error) {
    switch s {
    case "", "embedded_first":
        return enrich.PolicyEmbeddedFirst, nil
    case "sidecar_first":
        return enrich.PolicySidecarFirst, nil
    case "merge_prefer_embedded":
        return enrich.PolicyMergePreferEmbedded, nil
    default:
        return 0, fmt.Errorf("unknown sidecar policy %q", s)
    }
}

// buildOptions assembles photocopy.Options from the flags common to every
// verb that drives a Driver.
func buildOptions(ep engineParameters, pp planParameters, destPath string) (photocopy.Options, error) {
    casing, err := parseCasing(pp.Casing)
    if err != nil {
        return photocopy.Options{}, err
    }

    duplicatePolicy, err := parseDuplicatePolicy(pp.DuplicatePolicy)
    if err != nil {
        return photocopy.Options{}, err
    }

    sidecarPolicy, err := parseSidecarPolicy(pp.SidecarPolicy)
    if err != nil {
        return photocopy.Options{}, err
    }

    gazetteerIndexPath := ep.GazetteerIndexPath
    if gazetteerIndexPath == "" {
        gazetteerIndexPath = photocopy.GazetteerIndexPath(ep.GazetteerPath)
    }

    persistentCachePath := ep.PersistentCachePath
    if persistentCachePath == "" {
        persistentCachePath = photocopy.PersistentCachePath(ep.GazetteerPath)
    }

    boundaryPath := ep.BoundaryPath
    if boundaryPath == "" {
        found, ferr := photocopy.FindBoundaryFile(filepath.Dir(ep.GazetteerPath))
        if ferr == nil {
            boundaryPath = found
        }
    }

    opts := photocopy.Options{
        SourceRoot:          pp.SourcePath,
        DestRoot:            destPath,
        Excludes:            pp.Excludes,
        Template:            pp.Template,
        Casing:              casing,
        DuplicatePolicy:     duplicatePolicy,
        DuplicatesFormat:    pp.DuplicatesFormat,
        SidecarPolicy:       sidecarPolicy,
        GPSTrailPaths:       pp.GPSTrailPaths,
        GazetteerDataPath:   ep.GazetteerPath,
        GazetteerIndexPath:  gazetteerIndexPath,
        BoundaryPath:        boundaryPath,
        PersistentCachePath: persistentCachePath,
        CellCacheBytes:      ep.CellCacheBytes,
    }

    if pp.GPSWindowMinutes > 0 {
        opts.GPSProximityWindow = minutesToDuration(pp.GPSWindowMinutes)
    }

    return opts, nil
}

func handleCopyMove(params copyMoveParameters, move bool) int {
    opts, err := buildOptions(params.engineParameters, params.planParameters, params.DestPath)
    if err != nil {
        fmt.Fprintf(os.Stderr, "invalid arguments: %v\n", err)
        return exitInvalidArguments
    }
    opts.Workers = params.Workers
    opts.LogDir = params.LogDir
    opts.Move = move

    d, err := photocopy.NewDriver(opts)
    if err != nil {
        fmt.Fprintf(os.Stderr, "%v\n", err)
        return exitIOError
    }
    defer d.Close()

    ctx, cancel := signalContext()
    defer cancel()

    var reporter xfer.Reporter
    if params.JSON {
        reporter = xfer.NewJSONReporter(os.Stdout)
    }

    var result xfer.CopyResult
    if move {
        result, err = d.Move(ctx, reporter)
    } else {
        result, err = d.Copy(ctx, reporter)
    }
    if err != nil {
        fmt.Fprintf(os.Stderr, "%v\n", err)
        return exitIOError
    }

    fmt.Printf("processed %d, failed %d, skipped %d, %d bytes\n", result.FilesProcessed, result.FilesFailed, result.FilesSkipped, result.BytesProcessed)

    switch {
    case result.Canceled:
        return exitCancellation
    case result.FilesFailed > 0:
        return exitFileFailure
    default:
        return exitOK
    }
}

func handleScan(params scanParameters) int {
    opts, err := buildOptions(params.engineParameters, params.planParameters, "")
    if err != nil {
        fmt.Fprintf(os.Stderr, "invalid arguments: %v\n", err)
        return exitInvalidArguments
    }

    d, err := photocopy.NewDriver(opts)
    if err != nil {
        fmt.Fprintf(os.Stderr, "%v\n", err)
        return exitIOError
    }
    defer d.Close()

    group := xfer.NewGroupReporter("scan")
    result, err := d.Scan(group, photocopy.DefaultValidators())
    if err != nil {
        fmt.Fprintf(os.Stderr, "%v\n", err)
        return exitIOError
    }

    fmt.Printf("scanned %d files, %d validation failures\n", len(result.Files), len(result.Failures))
    for _, f := range result.Failures {
        fmt.Println(f.String())
    }

    return exitOK
}

func handleValidate(params validateParameters) int {
    opts, err := buildOptions(params.engineParameters, params.planParameters, "")
    if err != nil {
        fmt.Fprintf(os.Stderr, "invalid arguments: %v\n", err)
        return exitInvalidArguments
    }

    d, err := photocopy.NewDriver(opts)
    if err != nil {
        fmt.Fprintf(os.Stderr, "%v\n", err)
        return exitIOError
    }
    defer d.Close()

    failures, err := d.Validate(photocopy.DefaultValidators())
    if err != nil {
        fmt.Fprintf(os.Stderr, "%v\n", err)
        return exitIOError
    }

    for _, f := range failures {
        fmt.Println(f.String())
    }

    if len(failures) > 0 {
        return exitValidationFailure
    }
    return exitOK
}

func handleRollback(params rollbackParameters) int {
    if params.List != "" {
        summaries, err := photocopy.ListTransactionLogs(params.List)
        if err != nil {
            fmt.Fprintf(os.Stderr, "%v\n", err)
            return exitIOError
        }
        for _, s := range summaries {
            fmt.Printf("%s\t%s\t%s\t%d files\n", s.Path, s.OperationID, s.Status, s.FileCount)
        }
        return exitOK
    }

    if params.LogPath == "" {
        fmt.Fprintln(os.Stderr, "rollback requires --log-path or --list")
        return exitInvalidArguments
    }

    confirm := xfer.ConfirmFunc(func(summary xfer.LogSummary) bool {
        if params.Yes {
            return true
        }
        fmt.Printf("Roll back operation %s (%d files, status %s)? [y/N] ", summary.OperationID, summary.FileCount, summary.Status)
        var reply string
        fmt.Scanln(&reply)
        return strings.EqualFold(strings.TrimSpace(reply), "y")
    })

    result, err := photocopy.RunRollback(params.LogPath, confirm)
    if err != nil {
        fmt.Fprintf(os.Stderr, "%v\n", err)
        return exitIOError
    }

    fmt.Printf("reverted %d, skipped %d, failed %d\n", result.Reverted, result.Skipped, result.Failed)

    switch {
    case result.PartialSuccess:
        return exitPartialRollback
    default:
        return exitOK
    }
}

func handleReport(params reportParameters) int {
    if err := photocopy.ReportFromLog(params.LogPath, params.OutputDir); err != nil {
        fmt.Fprintf(os.Stderr, "%v\n", err)
        return exitIOError
    }
    return exitOK
}

func minutesToDuration(minutes int) (d time.Duration) {
    return time.Duration(minutes) * time.Minute
}

func signalContext() (context.Context, context.CancelFunc) {
    return signal.NotifyContext(context.Background(), os.Interrupt)
}

func main() {
    defer func() {
        if state := recover(); state != nil {
            err := log.Wrap(state.(error))
            log.PrintError(err)
            os.Exit(exitIOError)
        }
    }()

    p := flags.NewParser(rootArguments, flags.Default)

    _, err := p.Parse()
    if err != nil {
        os.Exit(exitInvalidArguments)
    }

    mainLogger.Debugf(nil, "dispatching subcommand %s", p.Active.Name)

    var code int
    switch p.Active.Name {
    case "copy":
        code = handleCopyMove(rootArguments.Copy, false)
    case "move":
        code = handleCopyMove(rootArguments.Move, true)
    case "scan":
        code = handleScan(rootArguments.Scan)
    case "validate":
        code = handleValidate(rootArguments.Validate)
    case "rollback":
        code = handleRollback(rootArguments.Rollback)
    case "report":
        code = handleReport(rootArguments.Report)
    default:
        fmt.Printf("Subcommand not handled: [%s]\n", p.Active.Name)
        code = exitInvalidArguments
    }

    os.Exit(code)
}

func init() {
    scp := log.NewStaticConfigurationProvider()
    scp.SetLevelName(log.LevelNameError)

    log.LoadConfiguration(scp)

    cla := log.NewConsoleLogAdapter()
    log.AddAdapter("console", cla)
}
