// Package influxdb provides optional time-series recording of load and
// shade state changes to an InfluxDB v2 server.
//
// The client batches points and writes them asynchronously so that
// recording never blocks the dispatch path. When InfluxDB is disabled
// in configuration, Connect returns ErrDisabled and callers simply skip
// time-series recording.
package influxdb
