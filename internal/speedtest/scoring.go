package speedtest

import (
	"math"

	"github.com/mirrorjump/mirrorjump/internal/country"
)

// Strategy is one of the two orthogonal ways to rank a country's outgoing
// links during a jump.
type Strategy int

const (
	DistanceFirst Strategy = iota
	HubsFirst
)

// rate scores a link under the given strategy, per §4.D. mirrorCount is the
// number of mirrors already known for the link's destination country (0 if
// the destination has none — such links are still scored, but the jump
// loop's ≥1-mirror filter excludes them from being taken as neighbors).
func rate(link country.Link, dest country.Country, mirrorCount int, strategy Strategy) float64 {
	distanceScore := rateDistance(link) * float64(mirrorCount)
	hubsScore := float64(dest.CableConnectionsNumber*1000+dest.InternetExchangesNumber) * float64(mirrorCount)

	switch strategy {
	case HubsFirst:
		return hubsScore
	default:
		return distanceScore
	}
}

func rateDistance(link country.Link) float64 {
	exponent := 0.9
	if link.Type == country.Submarine {
		exponent = 1.0
	}
	return math.Pow(1/link.Distance, exponent) * 15000
}
