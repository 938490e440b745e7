package matrix

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/routewise/routewise/internal/geo"
	"github.com/routewise/routewise/internal/netutil"
)

// ErrTooManyLocations is returned when a point list exceeds the backend's
// table size limit. The caller falls back rather than splitting the request.
var ErrTooManyLocations = fmt.Errorf("osrm: too many locations for table request")

// OSRMBackend queries an OSRM-compatible table service.
type OSRMBackend struct {
	BaseURL      string
	MaxLocations int
	Fetcher      netutil.Fetcher
}

// NewOSRMBackend creates a backend against the given base URL, for example
// "https://router.project-osrm.org".
func NewOSRMBackend(baseURL string, maxLocations int, fetcher netutil.Fetcher) *OSRMBackend {
	return &OSRMBackend{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		MaxLocations: maxLocations,
		Fetcher:      fetcher,
	}
}

// osrmTableResponse mirrors the OSRM table API response. Distances are
// meters, durations are seconds; both are float matrices.
type osrmTableResponse struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	Distances [][]float64 `json:"distances"`
	Durations [][]float64 `json:"durations"`
}

// Table requests a full distance+duration table. Coordinates are sent as
// lon,lat pairs per the OSRM convention.
func (b *OSRMBackend) Table(ctx context.Context, points []geo.Point) (*Matrix, error) {
	n := len(points)
	if b.MaxLocations > 0 && n > b.MaxLocations {
		return nil, fmt.Errorf("%w: %d points, limit %d", ErrTooManyLocations, n, b.MaxLocations)
	}

	var coords strings.Builder
	for i, p := range points {
		if i > 0 {
			coords.WriteByte(';')
		}
		fmt.Fprintf(&coords, "%f,%f", p.Lng, p.Lat)
	}
	url := fmt.Sprintf("%s/table/v1/driving/%s?annotations=distance,duration", b.BaseURL, coords.String())

	body, err := b.Fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("osrm: table request failed: %w", err)
	}

	var resp osrmTableResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("osrm: invalid response: %w", err)
	}
	if resp.Code != "Ok" {
		return nil, fmt.Errorf("osrm: service error %q: %s", resp.Code, resp.Message)
	}
	if len(resp.Distances) != n || len(resp.Durations) != n {
		return nil, fmt.Errorf("osrm: table size mismatch: want %d rows, got %d/%d", n, len(resp.Distances), len(resp.Durations))
	}

	dist, travel := newEmptyTables(n)
	for i := 0; i < n; i++ {
		if len(resp.Distances[i]) != n || len(resp.Durations[i]) != n {
			return nil, fmt.Errorf("osrm: table row %d size mismatch", i)
		}
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			dist[i][j] = int(math.Round(resp.Distances[i][j]))
			min := int(resp.Durations[i][j] / 60)
			if min < 1 {
				min = 1
			}
			travel[i][j] = min
		}
	}

	return &Matrix{DistanceMeters: dist, TravelMin: travel, Source: SourceOSRM}, nil
}
