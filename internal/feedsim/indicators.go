package feedsim

import "math"

// sma returns the n-period simple moving average. Positions without a full
// window are NaN.
func sma(v []float64, n int) []float64 {
	out := make([]float64, len(v))
	sum := 0.0
	for i, x := range v {
		sum += x
		if i >= n {
			sum -= v[i-n]
		}
		if i >= n-1 {
			out[i] = sum / float64(n)
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// ema returns the n-period exponential moving average seeded with the first
// value.
func ema(v []float64, n int) []float64 {
	out := make([]float64, len(v))
	k := 2 / float64(n+1)
	for i, x := range v {
		if i == 0 {
			out[i] = x
			continue
		}
		out[i] = x*k + out[i-1]*(1-k)
	}
	return out
}

// rsi returns Wilder's n-period relative strength index.
func rsi(v []float64, n int) []float64 {
	out := make([]float64, len(v))
	for i := range out {
		out[i] = math.NaN()
	}
	if len(v) <= n {
		return out
	}
	var gain, loss float64
	for i := 1; i <= n; i++ {
		d := v[i] - v[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	gain /= float64(n)
	loss /= float64(n)
	out[n] = rsiValue(gain, loss)
	for i := n + 1; i < len(v); i++ {
		d := v[i] - v[i-1]
		g, l := 0.0, 0.0
		if d > 0 {
			g = d
		} else {
			l = -d
		}
		gain = (gain*float64(n-1) + g) / float64(n)
		loss = (loss*float64(n-1) + l) / float64(n)
		out[i] = rsiValue(gain, loss)
	}
	return out
}

func rsiValue(gain, loss float64) float64 {
	if loss == 0 {
		return 100
	}
	return 100 - 100/(1+gain/loss)
}

// macd returns the 12/26 MACD line, its 9-period signal and the histogram.
func macd(v []float64) (line, signal, hist []float64) {
	fast, slow := ema(v, 12), ema(v, 26)
	line = make([]float64, len(v))
	for i := range v {
		line[i] = fast[i] - slow[i]
	}
	signal = ema(line, 9)
	hist = make([]float64, len(v))
	for i := range v {
		hist[i] = line[i] - signal[i]
	}
	return line, signal, hist
}

// bollinger returns the 20-period bands two standard deviations out.
func bollinger(v []float64, n int, k float64) (upper, mid, lower []float64) {
	mid = sma(v, n)
	upper = make([]float64, len(v))
	lower = make([]float64, len(v))
	for i := range v {
		if i < n-1 {
			upper[i], lower[i] = math.NaN(), math.NaN()
			continue
		}
		var ss float64
		for _, x := range v[i-n+1 : i+1] {
			ss += (x - mid[i]) * (x - mid[i])
		}
		sd := math.Sqrt(ss / float64(n))
		upper[i] = mid[i] + k*sd
		lower[i] = mid[i] - k*sd
	}
	return upper, mid, lower
}

func last(v []float64) float64 {
	if len(v) == 0 {
		return math.NaN()
	}
	return v[len(v)-1]
}

func minMax(v []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, x := range v {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi
}
