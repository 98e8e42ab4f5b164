package effect

import "errors"

// Apply failures. Every failure leaves the registry unchanged.
var (
	// ErrNilClass is returned when no effect class is given.
	ErrNilClass = errors.New("effect: class must not be nil")
	// ErrInvalidTarget is returned when the registry's target actor is gone.
	ErrInvalidTarget = errors.New("effect: target actor is not alive")
	// ErrRegistryClosed is returned by a registry that has been torn down.
	ErrRegistryClosed = errors.New("effect: registry is torn down")
	// ErrInstigatorRequired is returned when a per-instigator effect is
	// applied without a live instigator.
	ErrInstigatorRequired = errors.New("effect: per_instigator scope requires an instigator")
	// ErrActivationRejected is returned when CanBeActivated vetoes the effect.
	ErrActivationRejected = errors.New("effect: activation rejected")
)
