package xfer

import "testing"

func TestGroupReporterRunVisitsEveryIndex(t *testing.T) {
    r := NewGroupReporter("test sweep")

    seen := make([]bool, 5)
    r.Run(5, func(i int) bool {
        seen[i] = true
        return false
    })

    for i, ok := range seen {
        if !ok {
            t.Fatalf("index %d not visited", i)
        }
    }
}

func TestGroupReporterRunStopsEarlyOnTrue(t *testing.T) {
    r := NewGroupReporter("test sweep")

    visited := 0
    r.Run(10, func(i int) bool {
        visited++
        return i == 2
    })

    if visited != 3 {
        t.Fatalf("expected to stop after 3 visits, got %d", visited)
    }
}
