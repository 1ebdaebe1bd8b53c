// Package infusion implements the client for a Vantage InFusion
// controller: the multi-connection line-protocol transport, the inbound
// line dispatcher, the request correlator, the typed vid registry with
// hierarchical naming, and the stateful entity model (Area, Output,
// LoadGroup, Shade, Shade3, Button, Keypad, Variable, Sensor, Task).
//
// The controller speaks a CRLF-terminated ASCII protocol on its command
// port. Outbound lines are `<VERB> <vid> <args...>`; inbound lines are
// `R:<TYPE> ...` command responses or `S:<TYPE> ...` unsolicited status
// updates. A Client owns a Pool of TCP connections and a single dispatch
// worker; all entity mutation driven by the network happens on that
// worker, while caller-side reads and writes synchronize through narrow
// per-entity mutexes and the request correlator.
//
// Entities are created once by the topology builder
// (internal/commissioning/dcimport) and registered into the Client; a
// fresh parse replaces the whole registry. Entities are never destroyed
// mid-session.
package infusion
