// Package flightlog decodes ArduPilot binary flight logs (.BIN) into
// a time-ordered stream of typed telemetry records.
//
// The file's self-describing FMT frames are collected first, the file
// is segmented at verified frame boundaries, and the segments decode
// in parallel. Each worker spills its records to disk; a k-way merge
// over the spills yields one stream ordered by the TimeUS timestamp,
// with ties broken by segment index and byte offset. The output is
// identical for any worker count.
//
// Basic usage:
//
//	dec := flightlog.New("flight.bin",
//	    flightlog.WithWorkers(8),
//	    flightlog.WithRoundFloats(true),
//	)
//
//	result, err := dec.Run(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer result.Close()
//
//	for rec := range result.Records {
//	    fmt.Println(rec.Type, rec.TimeUS)
//	}
//	for _, w := range result.Warnings {
//	    fmt.Println("warning:", w)
//	}
package flightlog
