// Package apperr définit les erreurs métier et leur traduction en codes HTTP.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation         Kind = "validation_error"
	KindNotFound           Kind = "not_found"
	KindOrderNotFound      Kind = "order_not_found"
	KindUnauthorized       Kind = "unauthorized"
	KindInvalidTransition  Kind = "invalid_transition"
	KindNotAvailable       Kind = "not_available"
	KindVendorUndetermined Kind = "vendor_undetermined"
	KindMixedVendors       Kind = "mixed_vendors"
	KindNotPaid            Kind = "not_paid"
	KindInvalidOrExpired   Kind = "promo_invalid_or_expired"
	KindLimitReached       Kind = "promo_limit_reached"
	KindBelowMinimum       Kind = "promo_below_minimum"
	KindNoEligibleItems    Kind = "promo_no_eligible_items"
	KindConflict           Kind = "conflict"
	KindPaymentGateway     Kind = "payment_gateway_error"
)

// Error est une erreur métier typée
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is permet errors.Is(err, apperr.ErrNotPaid) en comparant uniquement le Kind
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " introuvable"}
}

// Sentinelles utilisables avec errors.Is
var (
	ErrOrderNotFound      = New(KindOrderNotFound, "Commande introuvable")
	ErrUnauthorized       = New(KindUnauthorized, "Action non autorisée")
	ErrInvalidTransition  = New(KindInvalidTransition, "Transition de statut invalide")
	ErrNotAvailable       = New(KindNotAvailable, "Article indisponible")
	ErrVendorUndetermined = New(KindVendorUndetermined, "Impossible de déterminer le restaurant")
	ErrMixedVendors       = New(KindMixedVendors, "Le panier contient des articles de plusieurs restaurants")
	ErrNotPaid            = New(KindNotPaid, "Aucun paiement réussi pour cette commande")
	ErrInvalidOrExpired   = New(KindInvalidOrExpired, "Code promo invalide ou expiré")
	ErrLimitReached       = New(KindLimitReached, "Ce code promo a atteint sa limite d'utilisation")
	ErrBelowMinimum       = New(KindBelowMinimum, "Montant minimum non atteint pour ce code promo")
	ErrNoEligibleItems    = New(KindNoEligibleItems, "Aucun article éligible pour ce code promo")
	ErrNotFound           = New(KindNotFound, "Ressource introuvable")
	ErrConflict           = New(KindConflict, "Conflit")
)

// KindOf retourne le Kind d'une erreur, ou "" si elle n'est pas typée
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// HTTPStatus traduit une erreur en code HTTP
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindInvalidTransition, KindVendorUndetermined, KindMixedVendors,
		KindNotPaid, KindInvalidOrExpired, KindLimitReached, KindBelowMinimum, KindNoEligibleItems:
		return http.StatusBadRequest
	case KindNotFound, KindOrderNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusForbidden
	case KindNotAvailable, KindConflict:
		return http.StatusConflict
	case KindPaymentGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage retourne le message à exposer au client
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Kind == KindPaymentGateway && e.Err != nil {
			return e.Err.Error()
		}
		return e.Message
	}
	return "Erreur serveur"
}
