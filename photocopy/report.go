package photocopy

import (
    "encoding/xml"
    "fmt"
    "os"
    "path/filepath"
    "sort"

    "github.com/dsoprea/go-logging"
    sitebuilder "github.com/dsoprea/go-static-site-builder"
    markdowndialect "github.com/dsoprea/go-static-site-builder/markdown"
    "github.com/twpayne/go-kml"

    "github.com/dsoprea/go-photocopy/plan"
    "github.com/dsoprea/go-photocopy/xfer"
)

var reportLogger = log.NewLogger("photocopy.report")

const (
    catalogSiteName    = "PhotoCopy Catalog"
    catalogImageWidth  = 600
    catalogImageHeight = 0
)

// placeTally accumulates how many files landed at one resolved place, for
// the KML placemark's description (spec.md section 4.5 expansion).
type placeTally struct {
    name      string
    latitude  float64
    longitude float64
    count     int
}

// BuildHTMLCatalog writes an HTML catalog of plans to outputDir, one page
// per destination directory, linking every file planned into it — grounded
// in command/agi_autogroup/main.go:writeDestHtmlCatalog /
// writeDestHtmlCatalogGroup, generalized from "one page per time/city
// group" to "one page per destination directory" since DestinationPlan
// doesn't carry the teacher's GroupKey.
func BuildHTMLCatalog(outputDir string, plans []plan.DestinationPlan) (err error) {
    defer func() {
        if state := recover(); state != nil {
            err = log.Wrap(state.(error))
        }
    }()

    sc := sitebuilder.NewSiteContext(outputDir)
    md := markdowndialect.NewMarkdownDialect()
    sb := sitebuilder.NewSiteBuilder(catalogSiteName, md, sc)

    byDir := groupByDestinationDir(plans)

    dirs := make([]string, 0, len(byDir))
    for dir := range byDir {
        dirs = append(dirs, dir)
    }
    sort.Strings(dirs)

    root := sb.Root()
    links := make([]sitebuilder.LinkWidget, 0, len(dirs))

    for _, dir := range dirs {
        group := byDir[dir]
        pageID := sanitizePageID(dir)
        title := fmt.Sprintf("%s (%d)", dir, len(group))

        childNode, childErr := root.AddChildNode(pageID, title)
        log.PanicIf(childErr)

        childBuilder := childNode.Builder()
        for _, dp := range group {
            rel, relErr := filepath.Rel(outputDir, dp.PlannedPath)
            if relErr != nil {
                rel = dp.PlannedPath
            }
            locator := sitebuilder.NewLocalResourceLocator(rel)
            iw := sitebuilder.NewImageWidget(filepath.Base(dp.PlannedPath), locator, catalogImageWidth, catalogImageHeight)

            addErr := childBuilder.AddContentImage(iw)
            log.PanicIf(addErr)
        }

        lw := sitebuilder.NewLinkWidget(title, sitebuilder.NewSitePageLocalResourceLocator(sb, pageID))
        links = append(links, lw)
    }

    nw := sitebuilder.NewNavbarWidget(links)
    navErr := root.Builder().AddVerticalNavbar(nw, "Destinations")
    log.PanicIf(navErr)

    writeErr := sb.WriteToPath()
    log.PanicIf(writeErr)

    return nil
}

// BuildKML writes one placemark per distinct resolved city/district in
// plans to path, with its file count in the description — grounded in
// command/agi_autogroup/main.go:writeGroupInfoAsKml.
func BuildKML(path string, plans []plan.DestinationPlan) (err error) {
    defer func() {
        if state := recover(); state != nil {
            err = log.Wrap(state.(error))
        }
    }()

    tallies := tallyByPlace(plans)
    if len(tallies) == 0 {
        reportLogger.Warningf(nil, "no geocoded files to plot; writing an empty KML document")
    }

    elements := make([]kml.Element, 0, len(tallies))
    for _, t := range tallies {
        description := fmt.Sprintf("%d pictures", t.count)

        coordinate := kml.Coordinate{
            Lon: t.longitude,
            Lat: t.latitude,
        }

        placemark := kml.Placemark(
            kml.Name(t.name),
            kml.Description(description),
            kml.Point(
                kml.Coordinates(coordinate),
            ),
        )
        elements = append(elements, placemark)
    }

    k := kml.KML(
        kml.Document(elements...),
    )

    f, createErr := os.Create(path)
    log.PanicIf(createErr)
    defer f.Close()

    enc := xml.NewEncoder(f)
    enc.Indent("", "  ")

    encodeErr := enc.Encode(k)
    log.PanicIf(encodeErr)

    return nil
}

// ReportFromLog builds an HTML catalog from a previously recorded
// transaction log without touching the source filesystem tree again
// (spec.md section 6 expansion: the report verb is read-only over the
// log). Transaction log records carry no location data, so the catalog
// here groups only by destination directory; KML is skipped since no
// coordinates survive into the log format (use BuildKML directly with the
// plans from the run that produced the log, while they're still in
// memory, for a located KML).
func ReportFromLog(logPath, outputDir string) error {
    summary, entries, err := xfer.ReadEntries(logPath)
    if err != nil {
        return fmt.Errorf("read transaction log %s: %w", logPath, err)
    }
    reportLogger.Infof(nil, "reporting on operation %s (%d files, status %s)", summary.OperationID, summary.FileCount, summary.Status)

    byDir := make(map[string][]xfer.TransactionLogEntry)
    for _, e := range entries {
        if e.Status != xfer.StatusSuccess {
            continue
        }
        dir := filepath.Dir(e.Dest)
        byDir[dir] = append(byDir[dir], e)
    }

    if err := buildHTMLCatalogFromEntries(outputDir, byDir); err != nil {
        return err
    }

    reportLogger.Warningf(nil, "skipping KML: transaction log records carry no coordinates")
    return nil
}

// buildHTMLCatalogFromEntries is BuildHTMLCatalog's log-only counterpart:
// same one-page-per-destination-directory shape, sourced from completed
// transaction log entries instead of a live DestinationPlan batch.
func buildHTMLCatalogFromEntries(outputDir string, byDir map[string][]xfer.TransactionLogEntry) (err error) {
    defer func() {
        if state := recover(); state != nil {
            err = log.Wrap(state.(error))
        }
    }()

    sc := sitebuilder.NewSiteContext(outputDir)
    md := markdowndialect.NewMarkdownDialect()
    sb := sitebuilder.NewSiteBuilder(catalogSiteName, md, sc)

    dirs := make([]string, 0, len(byDir))
    for dir := range byDir {
        dirs = append(dirs, dir)
    }
    sort.Strings(dirs)

    root := sb.Root()
    links := make([]sitebuilder.LinkWidget, 0, len(dirs))

    for _, dir := range dirs {
        group := byDir[dir]
        pageID := sanitizePageID(dir)
        title := fmt.Sprintf("%s (%d)", dir, len(group))

        childNode, childErr := root.AddChildNode(pageID, title)
        log.PanicIf(childErr)

        childBuilder := childNode.Builder()
        for _, e := range group {
            rel, relErr := filepath.Rel(outputDir, e.Dest)
            if relErr != nil {
                rel = e.Dest
            }
            locator := sitebuilder.NewLocalResourceLocator(rel)
            iw := sitebuilder.NewImageWidget(filepath.Base(e.Dest), locator, catalogImageWidth, catalogImageHeight)

            addErr := childBuilder.AddContentImage(iw)
            log.PanicIf(addErr)
        }

        lw := sitebuilder.NewLinkWidget(title, sitebuilder.NewSitePageLocalResourceLocator(sb, pageID))
        links = append(links, lw)
    }

    nw := sitebuilder.NewNavbarWidget(links)
    navErr := root.Builder().AddVerticalNavbar(nw, "Destinations")
    log.PanicIf(navErr)

    writeErr := sb.WriteToPath()
    log.PanicIf(writeErr)

    return nil
}

func groupByDestinationDir(plans []plan.DestinationPlan) map[string][]plan.DestinationPlan {
    byDir := make(map[string][]plan.DestinationPlan)
    for _, dp := range plans {
        if dp.CollisionAction == plan.ActionSkip {
            continue
        }
        dir := filepath.Dir(dp.PlannedPath)
        byDir[dir] = append(byDir[dir], dp)
    }
    return byDir
}

func tallyByPlace(plans []plan.DestinationPlan) []placeTally {
    byName := make(map[string]*placeTally)
    order := make([]string, 0)

    for _, dp := range plans {
        if dp.File == nil || dp.File.Metadata.Location == nil || dp.File.Metadata.Coordinates == nil {
            continue
        }
        loc := dp.File.Metadata.Location
        name := loc.City
        if name == "" {
            name = loc.District
        }
        if name == "" {
            continue
        }

        if t, found := byName[name]; found {
            t.count++
            continue
        }

        byName[name] = &placeTally{
            name:      name,
            latitude:  dp.File.Metadata.Coordinates.Latitude,
            longitude: dp.File.Metadata.Coordinates.Longitude,
            count:     1,
        }
        order = append(order, name)
    }

    sort.Strings(order)
    tallies := make([]placeTally, 0, len(order))
    for _, name := range order {
        tallies = append(tallies, *byName[name])
    }
    return tallies
}

func sanitizePageID(dir string) string {
    replacer := make([]rune, 0, len(dir))
    for _, r := range dir {
        switch {
        case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
            replacer = append(replacer, r)
        default:
            replacer = append(replacer, '_')
        }
    }
    return string(replacer)
}
