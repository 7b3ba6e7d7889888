// Package teamcolors provides the static team branding palette used when a
// payload format wants color context.
package teamcolors

import "strings"

// RGB is one palette entry.
type RGB struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// Lookup resolves a team abbreviation to its palette.
type Lookup interface {
	Colors(teamAbbrev string) []RGB
}

type staticLookup struct{}

// NewStatic returns the built-in palette table.
func NewStatic() Lookup { return staticLookup{} }

var neutral = []RGB{{R: 51, G: 51, B: 51}, {R: 204, G: 204, B: 204}}

// Primary/secondary colors per franchise. Unknown teams get a neutral pair.
var palettes = map[string][]RGB{
	"ANA": {{252, 76, 2}, {185, 151, 91}},
	"BOS": {{252, 181, 20}, {17, 17, 17}},
	"BUF": {{0, 48, 135}, {255, 184, 28}},
	"CAR": {{206, 17, 38}, {35, 31, 32}},
	"CBJ": {{0, 38, 84}, {206, 17, 38}},
	"CGY": {{200, 16, 46}, {241, 190, 72}},
	"CHI": {{207, 10, 44}, {255, 103, 27}},
	"COL": {{111, 38, 61}, {35, 97, 146}},
	"DAL": {{0, 104, 71}, {143, 143, 140}},
	"DET": {{206, 17, 38}, {255, 255, 255}},
	"EDM": {{4, 30, 66}, {252, 76, 0}},
	"FLA": {{200, 16, 46}, {185, 151, 91}},
	"LAK": {{17, 17, 17}, {162, 170, 173}},
	"MIN": {{2, 73, 48}, {175, 35, 36}},
	"MTL": {{175, 30, 45}, {25, 33, 104}},
	"NJD": {{206, 17, 38}, {0, 0, 0}},
	"NSH": {{255, 184, 28}, {4, 30, 66}},
	"NYI": {{0, 83, 155}, {244, 125, 48}},
	"NYR": {{0, 56, 168}, {206, 17, 38}},
	"OTT": {{218, 26, 50}, {178, 147, 83}},
	"PHI": {{247, 73, 2}, {0, 0, 0}},
	"PIT": {{0, 0, 0}, {252, 181, 20}},
	"SEA": {{0, 22, 40}, {153, 217, 217}},
	"SJS": {{0, 109, 117}, {234, 114, 0}},
	"STL": {{0, 47, 135}, {252, 181, 20}},
	"TBL": {{0, 40, 104}, {255, 255, 255}},
	"TOR": {{0, 32, 91}, {255, 255, 255}},
	"UTA": {{105, 179, 231}, {1, 1, 1}},
	"VAN": {{0, 32, 91}, {10, 134, 61}},
	"VGK": {{185, 151, 91}, {51, 63, 72}},
	"WPG": {{4, 30, 66}, {0, 76, 151}},
	"WSH": {{4, 30, 66}, {200, 16, 46}},
}

func (staticLookup) Colors(teamAbbrev string) []RGB {
	if p, ok := palettes[strings.ToUpper(teamAbbrev)]; ok {
		return p
	}
	return neutral
}
