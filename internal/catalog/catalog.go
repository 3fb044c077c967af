// Package catalog maps notification types to ready-to-send email content.
// Each notification type has a formatter that turns the recipient name and
// the free-form data payload into a subject plus HTML and plain-text bodies.
package catalog

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/courierhq/courier/internal/models"
)

// siteName appears in email copy and the shared footer.
const siteName = "Lesser"

// FormatNotification produces email content for the given notification type.
// Returns models.ErrUnknownNotificationType for types outside the catalog.
func FormatNotification(notificationType models.NotificationType, recipientName string, data map[string]interface{}) (models.EmailContent, error) {
	switch notificationType {
	// Auction/Bidding
	case models.NotificationAuctionWon:
		return formatAuctionWon(recipientName, data), nil
	case models.NotificationAuctionEndingSoon:
		return formatAuctionEndingSoon(recipientName, data), nil
	case models.NotificationNewBidOnYourItem:
		return formatNewBidOnYourItem(recipientName, data), nil
	case models.NotificationOutbid:
		return formatOutbid(recipientName, data), nil

	// Sales
	case models.NotificationItemSold:
		return formatItemSold(recipientName, data), nil
	case models.NotificationPurchaseConfirmed:
		return formatPurchaseConfirmed(recipientName, data), nil

	// Messaging
	case models.NotificationNewItemChatMessage:
		return formatNewItemChatMessage(recipientName, data), nil
	case models.NotificationNewDirectMessage:
		return formatNewDirectMessage(recipientName, data), nil

	// Account/Trust
	case models.NotificationNewFollower:
		return formatNewFollower(recipientName, data), nil
	case models.NotificationNewReview:
		return formatNewReview(recipientName, data), nil
	case models.NotificationVouchedForYou:
		return formatVouchedForYou(recipientName, data), nil
	case models.NotificationVerificationApproved:
		return formatVerificationApproved(recipientName, data), nil

	// Watchlist/Alerts
	case models.NotificationWatchedItemPriceDrop:
		return formatWatchedItemPriceDrop(recipientName, data), nil
	case models.NotificationWatchedItemEndingSoon:
		return formatWatchedItemEndingSoon(recipientName, data), nil
	case models.NotificationSavedSearchMatch:
		return formatSavedSearchMatch(recipientName, data), nil

	// Moderation
	case models.NotificationItemRemoved:
		return formatItemRemoved(recipientName, data), nil
	case models.NotificationItemApproved:
		return formatItemApproved(recipientName, data), nil
	case models.NotificationAccountWarning:
		return formatAccountWarning(recipientName, data), nil

	default:
		return models.EmailContent{}, fmt.Errorf("%w: %s", models.ErrUnknownNotificationType, notificationType)
	}
}

// formatPrice renders an amount as a dollar string with two decimals.
func formatPrice(amount float64) string {
	return fmt.Sprintf("$%.2f", amount)
}

// wrapHTML wraps body content in the shared email shell with the footer.
func wrapHTML(content string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
  %s
  <hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">
  <p style="color: #999; font-size: 12px;">This email was sent by %s. You received this because of activity on your account.</p>
</body>
</html>`, content, siteName)
}

// fieldString reads a payload field as a string, coercing numbers. Missing or
// unusable fields come back empty.
func fieldString(data map[string]interface{}, key string) string {
	switch v := data[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

// fieldNumber reads a payload field as a number. Missing or unusable fields
// come back as zero.
func fieldNumber(data map[string]interface{}, key string) float64 {
	switch v := data[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// hasField reports whether the payload carries the key at all.
func hasField(data map[string]interface{}, key string) bool {
	_, ok := data[key]
	return ok
}
