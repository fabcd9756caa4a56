// Package ws implements the real-time relay for collaborative boards: the
// connection registry, the board-scoped broadcast router and the per-connection
// session protocol (join/leave/activity/update), plus the service object that
// owns them and the stale-presence sweep.
package ws
