package utils

import (
	"fmt"
	"html"
	"strings"

	"miam_back_end/internal/models"
)

const brand = "Miam"

// layout habille un contenu HTML avec l'en-tête et le pied de page communs
func layout(title, icon, body string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="fr">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>%s</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; background-color: #f5f5f5;">
    <table role="presentation" style="width: 100%%; border-collapse: collapse;">
        <tr>
            <td style="padding: 40px 20px;">
                <table role="presentation" style="max-width: 600px; margin: 0 auto; background-color: #ffffff; border-radius: 12px;">
                    <tr>
                        <td style="background: linear-gradient(135deg, #ff7a18 0%%, #d9480f 100%%); padding: 36px 30px; text-align: center; border-radius: 12px 12px 0 0;">
                            <h1 style="margin: 0; color: #ffffff; font-size: 26px;">%s %s</h1>
                        </td>
                    </tr>
                    <tr>
                        <td style="padding: 30px; color: #333333; font-size: 15px; line-height: 1.6;">%s</td>
                    </tr>
                    <tr>
                        <td style="padding: 20px 30px; text-align: center; color: #999999; font-size: 12px;">
                            L'équipe %s
                        </td>
                    </tr>
                </table>
            </td>
        </tr>
    </table>
</body>
</html>`, html.EscapeString(title), icon, html.EscapeString(title), body, brand)
}

func itemsTable(items []models.OrderLineItem) string {
	var rows strings.Builder
	for _, it := range items {
		name := html.EscapeString(it.Name)
		if len(it.Instructions) > 0 {
			opts := make([]string, 0, len(it.Instructions))
			for _, in := range it.Instructions {
				opts = append(opts, html.EscapeString(in.Name))
			}
			name += `<br><small style="color:#777">` + strings.Join(opts, ", ") + `</small>`
		}
		style := ""
		if it.Rejected {
			style = ` style="text-decoration: line-through; color: #aaa;"`
		}
		fmt.Fprintf(&rows, `<tr%s><td style="padding:8px;border-bottom:1px solid #eee">%s</td><td style="padding:8px;border-bottom:1px solid #eee">%d</td><td style="padding:8px;border-bottom:1px solid #eee;text-align:right">%.2f€</td></tr>`,
			style, name, it.Quantity, it.LineTotal)
	}
	return `<table style="width:100%;border-collapse:collapse;margin:20px 0">` + rows.String() + `</table>`
}

// OrderConfirmationEmail prépare l'email de confirmation avec le QR code de retrait en pièce jointe
func OrderConfirmationEmail(to string, order *models.Order, qrPNG []byte) Email {
	body := fmt.Sprintf(`<p>Bonjour,</p>
<p>Votre commande <strong>%s</strong> a bien été enregistrée.</p>
%s
<p style="text-align:right"><strong>Total : %.2f€</strong></p>`,
		html.EscapeString(order.OrderNumber), itemsTable(order.Items), order.TotalAmount)

	if order.DiscountAmount > 0 {
		body += fmt.Sprintf(`<p style="text-align:right">Remise (%s) : -%.2f€<br><strong>À payer : %.2f€</strong></p>`,
			html.EscapeString(order.PromoCode), order.DiscountAmount, order.PayableAmount())
	}
	if len(qrPNG) > 0 {
		body += `<p>Présentez le QR code joint lors du retrait de votre commande.</p>`
	}

	email := Email{
		To:      to,
		Subject: fmt.Sprintf("🍽️ Commande %s confirmée - %s", order.OrderNumber, brand),
		HTML:    layout("Confirmation de commande", "🍽️", body),
	}
	if len(qrPNG) > 0 {
		email.Attachments = []Attachment{{Name: "retrait-" + order.OrderNumber + ".png", Content: qrPNG}}
	}
	return email
}

// StatusLabel retourne le libellé français d'un statut de commande
func StatusLabel(status models.OrderStatus) string {
	switch status {
	case models.StatusPending:
		return "en attente"
	case models.StatusAccepted:
		return "acceptée"
	case models.StatusPreparing:
		return "en préparation"
	case models.StatusOutForDelivery:
		return "en cours de livraison"
	case models.StatusDelivered:
		return "livrée"
	case models.StatusCancelled:
		return "annulée"
	case models.StatusRejected:
		return "refusée"
	case models.StatusPartiallyRejected:
		return "partiellement refusée"
	default:
		return string(status)
	}
}

func statusIcon(status models.OrderStatus) string {
	switch status {
	case models.StatusAccepted:
		return "✅"
	case models.StatusPreparing:
		return "👨‍🍳"
	case models.StatusOutForDelivery:
		return "🛵"
	case models.StatusDelivered:
		return "🎉"
	case models.StatusCancelled, models.StatusRejected:
		return "❌"
	case models.StatusPartiallyRejected:
		return "⚠️"
	default:
		return "📋"
	}
}

// OrderStatusEmail prépare l'email envoyé à chaque changement de statut
func OrderStatusEmail(to string, order *models.Order) Email {
	body := fmt.Sprintf(`<p>Bonjour,</p><p>Votre commande <strong>%s</strong> est désormais <strong>%s</strong>.</p>`,
		html.EscapeString(order.OrderNumber), StatusLabel(order.Status))

	if order.RejectionReason != "" {
		body += fmt.Sprintf(`<p>Motif : %s</p>`, html.EscapeString(order.RejectionReason))
	}
	if order.Status == models.StatusPartiallyRejected {
		body += itemsTable(order.Items)
	}
	if order.RefundAmount > 0 {
		body += fmt.Sprintf(`<p>Un remboursement de <strong>%.2f€</strong> est prévu.</p>`, order.RefundAmount)
	}

	return Email{
		To:      to,
		Subject: fmt.Sprintf("%s Commande %s %s - %s", statusIcon(order.Status), order.OrderNumber, StatusLabel(order.Status), brand),
		HTML:    layout("Mise à jour de votre commande", statusIcon(order.Status), body),
	}
}

// SignupCodeEmail envoie le code OTP de vérification d'inscription
func SignupCodeEmail(to, name, code string) Email {
	body := fmt.Sprintf(`<p>Bonjour %s,</p>
<p>Voici votre code de vérification :</p>
<p style="font-size: 32px; letter-spacing: 8px; text-align: center;"><strong>%s</strong></p>
<p>Ce code expire dans 10 minutes.</p>`, html.EscapeString(name), html.EscapeString(code))

	return Email{
		To:      to,
		Subject: "🔐 Votre code de vérification - " + brand,
		HTML:    layout("Vérification de votre compte", "🔐", body),
	}
}
