package service

import "errors"

// Errores terminales de las operaciones de custodia. Se devuelven envueltos
// con la precondición concreta que falló (fmt.Errorf("...: %w", Err...)),
// de modo que el handler pueda mapearlos a un código HTTP con errors.Is y el
// cliente sepa si reintentar tiene sentido. Cualquier otro error es un fallo
// de dependencia (almacén o lookup caído) y sí es reintentable.
var (
	// ErrNoEncontrado: el movimiento o la entrega referenciada no existe.
	ErrNoEncontrado = errors.New("registro no encontrado")
	// ErrEstadoInvalido: transición sobre un movimiento ya confirmado o
	// rechazado, o una escritura condicional que perdió la carrera.
	ErrEstadoInvalido = errors.New("estado invalido")
	// ErrProhibido: la puerta de autorización denegó la operación.
	ErrProhibido = errors.New("permiso denegado")
	// ErrTipoDesconocido: el tipo de incidencia no pertenece al vocabulario.
	ErrTipoDesconocido = errors.New("tipo de incidencia desconocido")
)
