package email

import (
	"fmt"
	"strings"
)

// BuildPaymentReceiptBody builds the HTML body for the payment receipt email
func BuildPaymentReceiptBody(r Receipt) string {
	name := r.ProductName
	if name == "" {
		name = "Subscription"
	}

	subscriptionHTML := ""
	if r.SubscriptionID != "" {
		subscriptionHTML = fmt.Sprintf(`
		<div style="background: #f8f9fa; padding: 15px; border-radius: 5px; margin: 20px 0;">
			<p style="margin: 0; font-size: 14px; color: #666;">Subscription</p>
			<p style="margin: 5px 0 0 0; font-size: 16px; font-family: monospace;">%s</p>
		</div>`, r.SubscriptionID)
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background: linear-gradient(135deg, #667eea 0%%, #764ba2 100%%); padding: 30px; border-radius: 10px 10px 0 0;">
		<h1 style="color: white; margin: 0; font-size: 24px;">Thank you for your payment</h1>
	</div>

	<div style="background: #fff; padding: 30px; border: 1px solid #eee; border-top: none; border-radius: 0 0 10px 10px;">
		<p style="margin-top: 0;">Your payment has been received and your order is complete.</p>

		<div style="background: #f8f9fa; padding: 15px; border-radius: 5px; margin: 20px 0;">
			<p style="margin: 0; font-size: 14px; color: #666;">Order number</p>
			<p style="margin: 5px 0 0 0; font-size: 18px; font-weight: bold; font-family: monospace;">%s</p>
		</div>

		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background: #f8f9fa;">
					<th style="padding: 12px; text-align: left; font-weight: 600;">Item</th>
					<th style="padding: 12px; text-align: center; font-weight: 600;">Qty</th>
					<th style="padding: 12px; text-align: right; font-weight: 600;">Unit price</th>
				</tr>
			</thead>
			<tbody>
				<tr>
					<td style="padding: 12px; border-bottom: 1px solid #eee;">%s</td>
					<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: center;">%d</td>
					<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">%s %s</td>
				</tr>
			</tbody>
		</table>

		<div style="text-align: right; padding: 20px; background: #f8f9fa; border-radius: 5px;">
			<span style="font-size: 14px; color: #666;">Total paid</span>
			<span style="font-size: 24px; font-weight: bold; color: #667eea; margin-left: 10px;">%s %s</span>
		</div>
		%s
		<hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">

		<p style="font-size: 12px; color: #999; margin-bottom: 0;">
			This is an automated message. If anything looks wrong, please contact support.
		</p>
	</div>
</body>
</html>`,
		r.OrderID,
		name, r.Quantity, r.Currency, formatAmount(r.UnitPrice),
		r.Currency, formatAmount(r.Amount),
		subscriptionHTML)
}

// formatAmount renders minor currency units as a decimal string with comma
// separators, e.g. 150000 -> "1,500.00".
func formatAmount(minor int64) string {
	units := minor / 100
	cents := minor % 100
	if cents < 0 {
		cents = -cents
	}
	return fmt.Sprintf("%s.%02d", formatNumber(units), cents)
}

// formatNumber formats a number with comma separators
func formatNumber(n int64) string {
	str := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(str, "-")
	if neg {
		str = str[1:]
	}

	var result strings.Builder
	remainder := len(str) % 3
	if remainder > 0 {
		result.WriteString(str[:remainder])
		if len(str) > remainder {
			result.WriteString(",")
		}
	}

	for i := remainder; i < len(str); i += 3 {
		result.WriteString(str[i : i+3])
		if i+3 < len(str) {
			result.WriteString(",")
		}
	}

	if neg {
		return "-" + result.String()
	}
	return result.String()
}
