package domain

// TileLayer is a raster base layer the map can switch between.
type TileLayer struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Attribution string `json:"attribution"`
	Default     bool   `json:"default,omitempty"`
}

// Overlay is a toggleable data layer drawn over the base layer.
type Overlay struct {
	Name    string `json:"name"`
	Source  string `json:"source"` // API path the layer is loaded from
	Visible bool   `json:"visible"`
}

// LineStyle is the path style applied to plate boundary geometries.
type LineStyle struct {
	Color  string  `json:"color"`
	Weight float64 `json:"weight"`
}

// MapView is the initial center and zoom of the map.
type MapView struct {
	Center [2]float64 `json:"center"` // [lat, lon]
	Zoom   int        `json:"zoom"`
}

// MapConfig describes everything the front end needs to assemble the map.
type MapConfig struct {
	View           MapView     `json:"view"`
	BaseLayers     []TileLayer `json:"base_layers"`
	Overlays       []Overlay   `json:"overlays"`
	PlateStyle     LineStyle   `json:"plate_style"`
	LegendPosition string      `json:"legend_position"`
}

// Layer names as shown in the layer toggle control.
const (
	LayerStreetMap      = "Street Map"
	LayerTopographicMap = "Topographic Map"
	LayerEarthquakes    = "Earthquakes"
	LayerTectonicPlates = "Tectonic Plates"
)

// PlateStyle is the boundary line style.
var PlateStyle = LineStyle{Color: "orange", Weight: 2}

// DefaultMapConfig returns the base layers, overlays and view of the quake map.
// Base layers and overlays are listed in toggle-control order.
func DefaultMapConfig() MapConfig {
	return MapConfig{
		View: MapView{Center: [2]float64{20.0, 5.0}, Zoom: 2},
		BaseLayers: []TileLayer{
			{
				Name:        LayerStreetMap,
				URL:         "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
				Attribution: `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`,
				Default:     true,
			},
			{
				Name: LayerTopographicMap,
				URL:  "https://{s}.tile.opentopomap.org/{z}/{x}/{y}.png",
				Attribution: `Map data: &copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors, ` +
					`<a href="http://viewfinderpanoramas.org">SRTM</a> | Map style: &copy; <a href="https://opentopomap.org">OpenTopoMap</a> (CC-BY-SA)`,
			},
		},
		Overlays: []Overlay{
			{Name: LayerEarthquakes, Source: "/api/quakes", Visible: true},
			{Name: LayerTectonicPlates, Source: "/api/plates", Visible: true},
		},
		PlateStyle:     PlateStyle,
		LegendPosition: "bottomright",
	}
}
