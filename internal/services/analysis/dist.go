package analysis

import "math"

// Numerical routines for the p-values used by the randomness and trend
// tests: normal, chi-square, Student's t and Kolmogorov distributions.
// Implementations follow the standard series / continued-fraction forms.

// normalCDF is the standard normal cumulative distribution function.
func normalCDF(z float64) float64 {
	return 0.5 * (1 + math.Erf(z/math.Sqrt2))
}

// chiSquareSurvival returns P(X > x) for a chi-square distribution with df
// degrees of freedom.
func chiSquareSurvival(x float64, df int) float64 {
	if x <= 0 || df <= 0 {
		return 1
	}
	return 1 - gammaIncLower(float64(df)/2, x/2)
}

// gammaIncLower is the regularized lower incomplete gamma function P(a, x).
func gammaIncLower(a, x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x < a+1 {
		return gammaSeries(a, x)
	}
	return 1 - gammaContinuedFraction(a, x)
}

const (
	gammaMaxIter = 200
	gammaEps     = 3e-9
)

func gammaSeries(a, x float64) float64 {
	lnGamma, _ := math.Lgamma(a)
	ap := a
	sum := 1 / a
	del := sum
	for i := 0; i < gammaMaxIter; i++ {
		ap++
		del *= x / ap
		sum += del
		if math.Abs(del) < math.Abs(sum)*gammaEps {
			break
		}
	}
	return sum * math.Exp(-x+a*math.Log(x)-lnGamma)
}

func gammaContinuedFraction(a, x float64) float64 {
	const tiny = 1e-30
	lnGamma, _ := math.Lgamma(a)

	b := x + 1 - a
	c := 1 / tiny
	d := 1 / b
	h := d
	for i := 1; i <= gammaMaxIter; i++ {
		an := -float64(i) * (float64(i) - a)
		b += 2
		d = an*d + b
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = b + an/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1 / d
		del := d * c
		h *= del
		if math.Abs(del-1) < gammaEps {
			break
		}
	}
	return math.Exp(-x+a*math.Log(x)-lnGamma) * h
}

// betaInc is the regularized incomplete beta function I_x(a, b).
func betaInc(a, b, x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}

	lnGammaA, _ := math.Lgamma(a)
	lnGammaB, _ := math.Lgamma(b)
	lnGammaAB, _ := math.Lgamma(a + b)
	front := math.Exp(lnGammaAB - lnGammaA - lnGammaB + a*math.Log(x) + b*math.Log(1-x))

	if x < (a+1)/(a+b+2) {
		return front * betaContinuedFraction(a, b, x) / a
	}
	return 1 - front*betaContinuedFraction(b, a, 1-x)/b
}

func betaContinuedFraction(a, b, x float64) float64 {
	const tiny = 1e-30

	qab := a + b
	qap := a + 1
	qam := a - 1

	c := 1.0
	d := 1 - qab*x/qap
	if math.Abs(d) < tiny {
		d = tiny
	}
	d = 1 / d
	h := d

	for m := 1; m <= gammaMaxIter; m++ {
		fm := float64(m)
		aa := fm * (b - fm) * x / ((qam + 2*fm) * (a + 2*fm))
		d = 1 + aa*d
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = 1 + aa/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1 / d
		h *= d * c

		aa = -(a + fm) * (qab + fm) * x / ((a + 2*fm) * (qap + 2*fm))
		d = 1 + aa*d
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = 1 + aa/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1 / d
		del := d * c
		h *= del
		if math.Abs(del-1) < gammaEps {
			break
		}
	}
	return h
}

// studentTPValue returns the two-sided p-value of a t statistic with df
// degrees of freedom.
func studentTPValue(t float64, df int) float64 {
	if df <= 0 {
		return 1
	}
	nu := float64(df)
	return betaInc(nu/2, 0.5, nu/(nu+t*t))
}

// ksPValue approximates the p-value of a one-sample Kolmogorov-Smirnov
// statistic d over n observations using the asymptotic Kolmogorov series.
func ksPValue(d float64, n int) float64 {
	if n <= 0 || d <= 0 {
		return 1
	}
	sqrtN := math.Sqrt(float64(n))
	lambda := d * (sqrtN + 0.12 + 0.11/sqrtN)

	sum := 0.0
	sign := 1.0
	for k := 1; k <= 100; k++ {
		term := sign * math.Exp(-2*lambda*lambda*float64(k)*float64(k))
		sum += term
		if math.Abs(term) < 1e-10 {
			break
		}
		sign = -sign
	}
	p := 2 * sum
	return math.Max(0, math.Min(1, p))
}
