package domain

import (
	"math"

	"github.com/shopspring/decimal"
)

// Límites duros del venue para precios de órdenes. El intervalo abierto (0,1)
// se aproxima con un margen de un tick en cada extremo.
const (
	PriceFloor = 0.01
	PriceCeil  = 0.99
)

// RoundToTick redondea p al múltiplo de tick más cercano.
// Usa aritmética decimal para evitar errores de representación binaria
// (0.1+0.2 != 0.3) que desalinearían el precio respecto al tick del venue.
func RoundToTick(p, tick float64) float64 {
	if tick <= 0 {
		return p
	}
	dp := decimal.NewFromFloat(p)
	dt := decimal.NewFromFloat(tick)
	f, _ := dp.Div(dt).Round(0).Mul(dt).Float64()
	return f
}

// CeilToTick redondea p hacia arriba al siguiente múltiplo de tick.
// Usado para pisos de precio que no pueden redondearse por debajo
// (p.ej. el precio mínimo de venta que preserva el profit por share).
func CeilToTick(p, tick float64) float64 {
	if tick <= 0 {
		return p
	}
	dp := decimal.NewFromFloat(p)
	dt := decimal.NewFromFloat(tick)
	f, _ := dp.Div(dt).Ceil().Mul(dt).Float64()
	return f
}

// Clamp limita p al intervalo [lo, hi].
func Clamp(p, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, p))
}

// ClampPrice limita p a los límites de precio del venue.
func ClampPrice(p float64) float64 {
	return Clamp(p, PriceFloor, PriceCeil)
}

// SpreadBps devuelve el spread bid/ask en basis points relativo al mid,
// redondeado al entero más cercano. Devuelve 0 si falta algún lado.
func SpreadBps(bid, ask float64) float64 {
	if bid <= 0 || ask <= 0 {
		return 0
	}
	mid := (bid + ask) / 2
	if mid <= 0 {
		return 0
	}
	return math.Round(10000 * (ask - bid) / mid)
}

// BpsOf devuelve la fracción de p correspondiente a bps basis points.
func BpsOf(p, bps float64) float64 {
	return p * bps / 10000
}

// SharesFor devuelve el tamaño de orden en shares para un notional objetivo:
// floor(notionalUSD / price), con un piso en minSize. Devuelve 0 si el
// precio no es positivo.
func SharesFor(notionalUSD, price, minSize float64) float64 {
	if price <= 0 {
		return 0
	}
	shares := math.Floor(notionalUSD / price)
	if shares < minSize {
		shares = minSize
	}
	return shares
}

// TickAligned devuelve true si p es un múltiplo entero de tick
// (con tolerancia decimal, no binaria).
func TickAligned(p, tick float64) bool {
	if tick <= 0 {
		return true
	}
	dp := decimal.NewFromFloat(p)
	dt := decimal.NewFromFloat(tick)
	return dp.Mod(dt).IsZero()
}
