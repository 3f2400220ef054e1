// Package batch runs independent tasks on a bounded worker pool.
//
// A batch is enumerated up front as a []Task, executed by Run, and settled
// into one Outcome per task. Every executed task gets its own log file via
// package tasklog. Failures are isolated: a task's error or panic is recorded
// in its Outcome and never stops the other tasks.
//
// # Usage
//
//	result, err := batch.Run(ctx, tasks, batch.Options{
//	    Name:    "unzip",
//	    Workers: batch.TransferPolicy.Workers(cfg.Workers),
//	    LogDir:  filepath.Join(slcDir, "logs"),
//	    Logger:  logger,
//	})
//	if err != nil {
//	    return err // nothing ran
//	}
//
//	summary := result.Summary()
//	summary.Print(os.Stdout)
//	if !summary.OK() {
//	    os.Exit(1)
//	}
//
// # Worker count
//
// Policy sizes the pool as clamp(NumCPU/Divisor, Min, Max). TransferPolicy
// gives 4 workers on 16 CPUs and never fewer than 2.
package batch
