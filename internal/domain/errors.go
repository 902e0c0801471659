package domain

import "errors"

// Taxonomía de errores del worker. Los adapters envuelven sus fallos con
// estos sentinels para que el engine decida por categoría (errors.Is) sin
// inspeccionar strings.
var (
	// ErrValidation: precio/tamaño/lado malformado antes de cualquier llamada
	// externa. Se rechaza inmediatamente, sin side effects.
	ErrValidation = errors.New("validation failed")

	// ErrTransientFetch: fallo de red o timeout en un fetch de book/listing.
	// Se salta el token/asset este ciclo; sin retry dentro del ciclo.
	ErrTransientFetch = errors.New("transient fetch failure")

	// ErrStaleData: la latencia del fetch superó el límite configurado.
	// Tratado igual que ErrTransientFetch.
	ErrStaleData = errors.New("stale market data")

	// ErrVenueRejected: el venue rechazó un placement o una cancelación.
	// Se persiste como FAILED; el re-planning del siguiente ciclo reintenta.
	ErrVenueRejected = errors.New("venue rejected request")

	// ErrStore: fallo de persistencia. No revierte órdenes ya colocadas —
	// la orden y su registro pueden divergir (gap de reconciliación conocido).
	ErrStore = errors.New("store failure")
)
