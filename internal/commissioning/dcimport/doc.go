// Package dcimport builds the runtime entity graph from a Design
// Center project file (the controller's XML configuration dump).
//
// The XML is a flat object list; cross-references the file does not
// make explicit are reconstructed with domain heuristics: auxiliary
// color loads are paired to their parent lights by name and area,
// separate open/close/stop relays are assembled into one composite
// shade, and load groups of exactly one dimmer plus one color load get
// a brightness delegate. Parsing runs in fixed dependency order
// because later stages reference ids introduced by earlier ones.
//
// A single malformed object is logged and omitted; the rest of the
// parse proceeds. Only an unreadable document fails the build.
package dcimport
