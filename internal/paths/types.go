// Package paths holds the learned normal-traffic geometry: centerline paths,
// corridor tubes, turn zones, SID/STAR procedures, and the occupancy heatmap.
// Readers work from immutable snapshots; the only runtime mutation is
// emerging-path promotion, serialized through the store's single writer.
package paths

import (
	"github.com/yegors/skywatch/internal/geodesy"
)

// Path types.
const (
	PathTypeLearned   = "learned"
	PathTypeODLearned = "od_learned"
	PathTypeEmerging  = "emerging"
)

// Path is a centerline corridor: an ordered waypoint sequence with a uniform
// lateral width. Origin/Destination are airport codes, empty when unknown.
type Path struct {
	ID          string          `json:"id"`
	Type        string          `json:"type,omitempty"`
	Origin      string          `json:"origin,omitempty"`
	Destination string          `json:"destination,omitempty"`
	Centerline  []geodesy.Point `json:"centerline"`
	WidthNM     float64         `json:"width_nm"`
	NumFlights  int             `json:"num_flights,omitempty"`
	Signature   []int           `json:"created_from_signature,omitempty"`
}

// Tube is a corridor represented as a closed lateral polygon plus an
// altitude band. Tubes only participate in matching when their O/D pair has
// enough member flights.
type Tube struct {
	ID          string          `json:"id"`
	Origin      string          `json:"origin,omitempty"`
	Destination string          `json:"destination,omitempty"`
	MemberCount int             `json:"member_count"`
	MinAltFt    float64         `json:"min_alt_ft"`
	MaxAltFt    float64         `json:"max_alt_ft"`
	Geometry    []geodesy.Point `json:"geometry"`
}

// TurnZone is a circular region where turning traffic is normal.
type TurnZone struct {
	ID       string  `json:"id,omitempty"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	RadiusNM float64 `json:"radius_nm"`
}

// Procedure is a learned SID or STAR centerline fan for an airport.
type Procedure struct {
	ID         string          `json:"id,omitempty"`
	Airport    string          `json:"airport,omitempty"`
	Centerline []geodesy.Point `json:"centerline"`
	WidthNM    float64         `json:"width_nm,omitempty"`
}

// Heatmap is a coarse occupancy grid of historical traffic. Cells are stored
// row-major; a cell is flightable when its count reaches Threshold.
type Heatmap struct {
	Origin      [2]float64 `json:"origin"` // lat, lon of cell (0,0)
	CellSizeDeg float64    `json:"cell_size_deg"`
	Threshold   int        `json:"threshold"`
	Rows        int        `json:"rows"`
	Cols        int        `json:"cols"`
	Cells       []int      `json:"cells"`
}

// Flightable reports whether the position falls in a cell with enough
// historical traffic. Out-of-bounds positions are not flightable.
func (h *Heatmap) Flightable(lat, lon float64) bool {
	if h == nil || len(h.Cells) == 0 || h.CellSizeDeg <= 0 {
		return true
	}
	r := int((lat - h.Origin[0]) / h.CellSizeDeg)
	c := int((lon - h.Origin[1]) / h.CellSizeDeg)
	if r < 0 || c < 0 || r >= h.Rows || c >= h.Cols {
		return false
	}
	idx := r*h.Cols + c
	if idx >= len(h.Cells) {
		return false
	}
	return h.Cells[idx] >= h.Threshold
}

// Bucket accumulates flights sharing an off-path heading signature until
// promotion.
type Bucket struct {
	Signature   []int    `json:"signature"`
	Count       int      `json:"count"`
	FlightIDs   []string `json:"flight_ids"`
	LastUpdated string   `json:"last_updated,omitempty"`
}

// library is the on-disk shape of the main path library document.
type library struct {
	Paths           []Path   `json:"paths"`
	EmergingPaths   []Path   `json:"emerging_paths"`
	EmergingBuckets []Bucket `json:"emerging_buckets"`
	Heatmap         *Heatmap `json:"heatmap,omitempty"`
}

type tubesDocument struct {
	Tubes []Tube `json:"tubes"`
}

type turnsDocument struct {
	Zones []TurnZone `json:"zones"`
}

type proceduresDocument struct {
	Procedures []Procedure `json:"procedures"`
}

type odPathsDocument struct {
	Paths []odPath `json:"paths"`
}

// odPath is the on-disk shape of O/D-clustered paths, which name their flight
// count differently from the main library.
type odPath struct {
	ID          string          `json:"id"`
	Origin      string          `json:"origin,omitempty"`
	Destination string          `json:"destination,omitempty"`
	Centerline  []geodesy.Point `json:"centerline"`
	WidthNM     float64         `json:"width_nm"`
	MemberCount int             `json:"member_count"`
}

// NormalizeCode canonicalizes airport codes for O/D matching: empty and
// "UNK" mean unknown.
func NormalizeCode(code string) string {
	if code == "" || code == "UNK" {
		return ""
	}
	return code
}
