// Package worker runs the engine over many bundle files.
//
// Runner processes a fixed list of files and returns the results in input
// order. Pool is a long-lived pool fed one file at a time, used by watch
// mode.
//
// Example usage:
//
//	files, err := worker.Discover([]string{"./export"})
//	if err != nil {
//	    return err
//	}
//
//	runner := worker.NewRunner(eng, 4).
//	    WithProgress(func(done, total int) {
//	        fmt.Printf("\r%d/%d", done, total)
//	    })
//
//	batch := runner.Run(ctx, files)
//	for _, item := range batch.Items {
//	    if item.Err != nil {
//	        // Bundle could not be parsed or was skipped
//	    }
//	    // Process item.Report
//	}
package worker
