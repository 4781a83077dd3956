package emissions

import (
	"fmt"
	"strings"
)

// Pollutant identifies a regulated air pollutant tracked by the calculator.
type Pollutant string

const (
	// TSP is total suspended particulates.
	TSP Pollutant = "TSP"
	// PM10 is particulate matter up to 10µm.
	PM10 Pollutant = "PM10"
	// PM25 is particulate matter up to 2.5µm.
	PM25 Pollutant = "PM2.5"
	// SO2 is sulfur dioxide.
	SO2 Pollutant = "SO2"
	// NOx is nitrogen oxides. Coal baselines never carry NOx.
	NOx Pollutant = "NOx"
)

// Pollutants is the canonical calculation order.
var Pollutants = []Pollutant{TSP, PM10, PM25, SO2, NOx}

// BaselinePollutants are the pollutants a coal-only baseline and the
// reference plant records report.
var BaselinePollutants = []Pollutant{TSP, PM10, PM25, SO2}

// String implements fmt.Stringer.
func (p Pollutant) String() string {
	return string(p)
}

// IsParticulate reports whether an electrostatic precipitator abates p.
func (p Pollutant) IsParticulate() bool {
	return p == TSP || p == PM10 || p == PM25
}

// IsBaseline reports whether p can carry a coal-only baseline value.
func (p Pollutant) IsBaseline() bool {
	return p.IsParticulate() || p == SO2
}

// ParsePollutant resolves a pollutant name case-insensitively.
// "PM2.5", "pm25" and "pm2_5" all map to PM25.
func ParsePollutant(name string) (Pollutant, error) {
	key := strings.ToUpper(strings.TrimSpace(name))
	key = strings.NewReplacer(".", "", "_", "", "-", "").Replace(key)

	switch key {
	case "TSP":
		return TSP, nil
	case "PM10":
		return PM10, nil
	case "PM25":
		return PM25, nil
	case "SO2":
		return SO2, nil
	case "NOX":
		return NOx, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPollutant, name)
}
