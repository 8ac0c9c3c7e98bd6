// Package store keeps the deployment ledger in SQLite.
//
// A run row records the clock and seed an image set was generated with; each
// generated cell image is listed against its run and placement. Recorded
// buffers drained from cores after a run are stored per placement and
// channel, and served back through Buffers, which satisfies
// fabric.BufferSource.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
package store
