package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrDuplicateReference = errors.New("la referencia de factura ya existe")
	ErrInvalidInput       = errors.New("entrada inválida")
)
