package utils

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Round2 arrondit un montant à 2 décimales
func Round2(amount float64) float64 {
	return decimal.NewFromFloat(amount).Round(2).InexactFloat64()
}

// LineTotal calcule (prix de base + suppléments) × quantité
func LineTotal(basePrice float64, modifiers []float64, quantity int) float64 {
	unit := decimal.NewFromFloat(basePrice)
	for _, m := range modifiers {
		unit = unit.Add(decimal.NewFromFloat(m))
	}
	return unit.Mul(decimal.NewFromInt(int64(quantity))).Round(2).InexactFloat64()
}

// SumAmounts additionne des montants sans dérive flottante
func SumAmounts(amounts ...float64) float64 {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(decimal.NewFromFloat(a))
	}
	return total.Round(2).InexactFloat64()
}

// SubAmounts retourne a - b arrondi à 2 décimales
func SubAmounts(a, b float64) float64 {
	return decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Round(2).InexactFloat64()
}

// ToMinorUnits convertit un montant en centimes (arrondi à l'entier le plus proche)
func ToMinorUnits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(hundred).Round(0).IntPart()
}

// FromMinorUnits convertit des centimes en montant
func FromMinorUnits(minor int64) float64 {
	return decimal.NewFromInt(minor).Div(hundred).InexactFloat64()
}
