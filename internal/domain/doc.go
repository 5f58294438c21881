// Package domain models earthquake and plate boundary feed data and the
// styling rules used to draw it on a map.
//
// # Data Sources
//
// Earthquakes come from the USGS real-time summary feed
// (https://earthquake.usgs.gov/earthquakes/feed/v1.0/geojson.php), by default
// the "all_week" document. Plate boundaries come from the PB2002 model
// published as GeoJSON at https://github.com/fraxen/tectonicplates.
//
// # USGS Feed Conventions
//
// Geometry:
//
//	Point with coordinates [longitude, latitude, depth].
//	Depth is in kilometers, positive downward. Shallow events near the
//	surface or above sea level can report small negative depths (about -4 km).
//
// Properties used here:
//
//	mag    magnitude, may be null for events still under review (read as 0)
//	place  human readable region, e.g. "10 km SW of Volcano, Hawaii"
//	time   origin time in Unix milliseconds
//	url    event page on earthquake.usgs.gov
//
// # Marker Styling
//
// Radius is magnitude × 3. Fill color is a step function over depth, evaluated
// deepest threshold first with strict greater-than:
//
//	> 90 km  #ff3333
//	> 70 km  #ff6633
//	> 50 km  #ff9933
//	> 30 km  #ffcc33
//	> 10 km  #ffff33
//	else     #ccff33
//
// A depth exactly on a threshold takes the shallower color, so 90 km is
// #ff6633. NaN compares false against every threshold and takes #ccff33.
//
// # Legend
//
// The legend lists one swatch per breakpoint (-10, 10, 30, 50, 70, 90). Each
// swatch is [ColorFor] evaluated 1 km past its breakpoint, which keeps the
// legend and the markers in agreement for every depth strictly inside a band.
package domain
