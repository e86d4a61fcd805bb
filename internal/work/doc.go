// Package work owns the single optimization worker.
//
// # Worker model
//
// Exactly one job runs at a time. Start refuses a second job with ErrBusy.
// The job runs on its own goroutine with its own control flags; the HTTP layer
// and the CLI only ever flip those flags (Stop, Pause, Resume) and read Status.
//
// # Scratch space
//
// The scratch root is emptied when the Runner is created. Each job gets
// <scratch>/<job id> for its peer-cache spill files, removed when the job ends.
// Directories that survive a crash are pruned by the scheduler's cleanup job.
//
// # Side effects after a job
//
//   - the terminal outcome is recorded in the run history (when configured)
//   - state files saved during the job and the success artifact are queued
//     for the backup mirror (when configured)
package work
