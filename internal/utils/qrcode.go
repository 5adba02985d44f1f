package utils

import (
	"github.com/skip2/go-qrcode"
)

// PickupQRCode génère le QR code PNG présenté au retrait de la commande
func PickupQRCode(orderNumber string) ([]byte, error) {
	return qrcode.Encode(orderNumber, qrcode.Medium, 256)
}
