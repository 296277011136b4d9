package main

import (
    "fmt"
    "os"

    "github.com/akrylysov/pogreb"
    "github.com/dsoprea/go-logging"
    "github.com/jessevdk/go-flags"

    "github.com/dsoprea/go-photocopy/geocode"
)

// parameters mirrors agi_dump_cities_kv's single-required-path shape,
// extended to the three on-disk formats this system persists instead of
// just one pogreb database.
type parameters struct {
    GazetteerIndexPath  string `long:"gazetteer-index-path" description:"Inspect a .geostreamindex gazetteer stream index"`
    BoundaryPath        string `long:"boundary-path" description:"Inspect a .geobounds country-boundary file"`
    PersistentCachePath string `long:"geocode-cache-path" description:"Inspect a .geocache.pogreb reverse-geocode cache"`
}

var arguments = new(parameters)

func inspectGazetteerIndex(path string) error {
    idx, err := geocode.ReadGazetteerIndex(path)
    if err != nil {
        return err
    }
    fmt.Printf("Gazetteer index %s\n", path)
    fmt.Printf("  entries: %d\n", idx.TotalEntries())
    fmt.Printf("  cells:   %d\n", idx.CellCount())
    return nil
}

func inspectBoundary(path string) error {
    bi, err := geocode.OpenBoundaryIndex(path)
    if err != nil {
        return err
    }
    defer bi.Close()

    countries, polygons := bi.Stats()
    fmt.Printf("Boundary file %s\n", path)
    fmt.Printf("  countries: %d\n", countries)
    fmt.Printf("  polygons:  %d\n", polygons)
    return nil
}

func inspectPersistentCache(path string) error {
    kv, err := pogreb.Open(path, nil)
    if err != nil {
        return err
    }
    defer kv.Close()

    fmt.Printf("Geocode cache %s\n", path)
    fmt.Printf("  records: %d\n", kv.Count())
    return nil
}

func main() {
    defer func() {
        if state := recover(); state != nil {
            err := log.Wrap(state.(error))
            log.PrintError(err)
            os.Exit(1)
        }
    }()

    p := flags.NewParser(arguments, flags.Default)

    _, err := p.Parse()
    if err != nil {
        os.Exit(1)
    }

    if arguments.GazetteerIndexPath == "" && arguments.BoundaryPath == "" && arguments.PersistentCachePath == "" {
        fmt.Fprintln(os.Stderr, "at least one of --gazetteer-index-path, --boundary-path, --geocode-cache-path is required")
        os.Exit(1)
    }

    if arguments.GazetteerIndexPath != "" {
        if err := inspectGazetteerIndex(arguments.GazetteerIndexPath); err != nil {
            fmt.Fprintf(os.Stderr, "%v\n", err)
            os.Exit(1)
        }
    }

    if arguments.BoundaryPath != "" {
        if err := inspectBoundary(arguments.BoundaryPath); err != nil {
            fmt.Fprintf(os.Stderr, "%v\n", err)
            os.Exit(1)
        }
    }

    if arguments.PersistentCachePath != "" {
        if err := inspectPersistentCache(arguments.PersistentCachePath); err != nil {
            fmt.Fprintf(os.Stderr, "%v\n", err)
            os.Exit(1)
        }
    }
}

func init() {
    scp := log.NewStaticConfigurationProvider()
    scp.SetLevelName(log.LevelNameError)

    log.LoadConfiguration(scp)

    cla := log.NewConsoleLogAdapter()
    log.AddAdapter("console", cla)
}
