// Package spill buffers each worker's decoded records on disk between
// the decode and merge phases, decoupling producer speed from consumer
// memory.
//
// A spill file is a series of size-prefixed runs, each internally
// sorted by the merge key (TimeUS, segment, offset). The writer
// buffers records in a btree and flushes a run every maxRecords; the
// reader rediscovers the runs from their size prefixes and merges them
// (and the runs of every other segment) through a loser tree into one
// ordered sequence.
//
// Basic usage:
//
//	w, err := spill.NewWriter(file, 4096)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for rec := range decoded {
//	    if err := w.Write(rec); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//	if err := w.Close(); err != nil {
//	    log.Fatal(err)
//	}
//
//	r := spill.NewReader(file)
//	seq, err := r.All()
//	for rec := range seq {
//	    // records arrive in merge order
//	}
package spill
