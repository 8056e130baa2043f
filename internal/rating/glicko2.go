// internal/rating/glicko2.go
package rating

import "math"

const (
	// GlickoScale converts between the 1500-based display scale and Glicko-2's mu.
	GlickoScale = 173.7178
	// DefaultRating is the display rating of a new player.
	DefaultRating = 1500.0
	// DefaultDeviation is the display rating deviation of a new player.
	DefaultDeviation = 350.0
	// DefaultVolatility is sigma for a new player.
	DefaultVolatility = 0.06
	// Tau constrains volatility changes.
	Tau = 0.5
	// Epsilon is the convergence tolerance of the volatility iteration.
	Epsilon = 0.000001
)

// Rating is a player's strength on the display scale.
type Rating struct {
	Value      float64 `json:"value"`
	Deviation  float64 `json:"deviation"`
	Volatility float64 `json:"volatility"`
}

// New returns the rating of an unplayed seat.
func New() Rating {
	return Rating{Value: DefaultRating, Deviation: DefaultDeviation, Volatility: DefaultVolatility}
}

// glicko is a rating in Glicko-2 internal units.
type glicko struct {
	mu, phi, sigma float64
}

func (r Rating) internal() glicko {
	return glicko{
		mu:    (r.Value - DefaultRating) / GlickoScale,
		phi:   r.Deviation / GlickoScale,
		sigma: r.Volatility,
	}
}

func (s glicko) display() Rating {
	return Rating{
		Value:      s.mu*GlickoScale + DefaultRating,
		Deviation:  s.phi * GlickoScale,
		Volatility: s.sigma,
	}
}

// update applies one rating period against a single opponent with score in [0,1].
func update(r, opp glicko, score float64) glicko {
	gVal := g(opp.phi)
	eVal := expected(r.mu, opp.mu, opp.phi)

	v := 1.0 / (gVal * gVal * eVal * (1 - eVal))
	delta := v * gVal * (score - eVal)

	sigma := volatility(r, v, delta)
	phiStar := math.Sqrt(r.phi*r.phi + sigma*sigma)
	phi := 1.0 / math.Sqrt(1.0/(phiStar*phiStar)+1.0/v)
	return glicko{
		mu:    r.mu + phi*phi*gVal*(score-eVal),
		phi:   phi,
		sigma: sigma,
	}
}

// volatility solves for the new sigma with the Illinois variant of regula falsi.
func volatility(r glicko, v, delta float64) float64 {
	a := math.Log(r.sigma * r.sigma)
	fn := func(x float64) float64 { return f(x, r.phi, v, delta, a) }

	A := a
	var B float64
	if delta*delta > r.phi*r.phi+v {
		B = math.Log(delta*delta - r.phi*r.phi - v)
	} else {
		k := 1.0
		for fn(a-k*Tau) < 0 {
			k++
		}
		B = a - k*Tau
	}

	fA, fB := fn(A), fn(B)
	for i := 0; i < 100 && math.Abs(B-A) > Epsilon; i++ {
		C := A + (A-B)*fA/(fB-fA)
		fC := fn(C)
		if fC*fB <= 0 {
			A, fA = B, fB
		} else {
			fA /= 2
		}
		B, fB = C, fC
	}
	return math.Exp(A / 2)
}

func g(phi float64) float64 {
	return 1.0 / math.Sqrt(1.0+3.0*phi*phi/(math.Pi*math.Pi))
}

// expected is the win probability of mu against an opponent at mu2 with deviation phi2.
func expected(mu, mu2, phi2 float64) float64 {
	return 1.0 / (1.0 + math.Exp(-g(phi2)*(mu-mu2)))
}

func f(x, phi, v, delta, a float64) float64 {
	ex := math.Exp(x)
	num := ex * (delta*delta - phi*phi - v - ex)
	den := 2.0 * (phi*phi + v + ex) * (phi*phi + v + ex)
	return num/den - (x-a)/(Tau*Tau)
}
