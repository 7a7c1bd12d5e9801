// Package jobstore keeps a local record of submitted Anything World jobs and
// the last stage the poller observed for each of them.
//
// The record is advisory: the service remains the source of truth, and the
// client never fails a submission or a poll because the store did.
//
// Supported backends:
//   - Memory: for tests and one-shot CLI runs
//   - Redis: shared between several client processes (go-redis)
//   - SQL: postgres, mysql or sqlite through gorm
package jobstore
