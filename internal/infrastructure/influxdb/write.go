package influxdb

import (
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
)

// WriteLoadLevel records a load brightness change as a time-series point.
//
// The write is non-blocking: points are buffered and flushed in batches.
// Write errors are delivered asynchronously via the SetOnError callback.
//
// Parameters:
//   - vid: Controller object identifier of the load
//   - name: Registered display name of the load
//   - level: Brightness percentage (0.0 to 100.0)
//
// Returns:
//   - error: ErrNotConnected if the client is closed, nil otherwise
func (c *Client) WriteLoadLevel(vid int, name string, level float64) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	point := influxdb2.NewPoint(
		"load_level",
		map[string]string{
			"vid":  strconv.Itoa(vid),
			"name": name,
		},
		map[string]interface{}{
			"value": level,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)

	return nil
}

// WriteShadePosition records a shade position change as a time-series point.
//
// Like WriteLoadLevel, the write is buffered and non-blocking.
//
// Parameters:
//   - vid: Controller object identifier of the shade
//   - name: Registered display name of the shade
//   - position: Opening percentage (0.0 closed to 100.0 open)
//
// Returns:
//   - error: ErrNotConnected if the client is closed, nil otherwise
func (c *Client) WriteShadePosition(vid int, name string, position float64) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	point := influxdb2.NewPoint(
		"shade_position",
		map[string]string{
			"vid":  strconv.Itoa(vid),
			"name": name,
		},
		map[string]interface{}{
			"value": position,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)

	return nil
}
