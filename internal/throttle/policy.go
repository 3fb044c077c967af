// Package throttle holds the static per-notification-type throttle policy:
// how long to suppress repeat sends and which payload field groups them.
package throttle

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/courierhq/courier/internal/models"
)

// ContextNone marks notification types with no contextual grouping.
const ContextNone = "none"

// ContextUnknown is the fallback when the grouping field is absent or has an
// unusable type.
const ContextUnknown = "unknown"

// intervals maps each notification type to its throttle window. Types absent
// from the map are never throttled.
var intervals = map[models.NotificationType]time.Duration{
	models.NotificationNewBidOnYourItem:   15 * time.Minute,
	models.NotificationOutbid:             15 * time.Minute,
	models.NotificationNewItemChatMessage: 8 * time.Hour,
	models.NotificationNewDirectMessage:   8 * time.Hour,
	models.NotificationNewFollower:        time.Hour,
	models.NotificationSavedSearchMatch:   time.Hour,
}

// Interval returns the throttle window for the given notification type, or
// zero when the type is never throttled.
func Interval(notificationType models.NotificationType) time.Duration {
	return intervals[notificationType]
}

// ShouldThrottle reports whether sends of the given type are rate limited.
func ShouldThrottle(notificationType models.NotificationType) bool {
	return Interval(notificationType) > 0
}

// ContextIDFromData extracts the grouping key for a notification from its
// free-form data payload. Types with no contextual grouping return a fixed
// sentinel; a missing or non-stringable field falls back to "unknown". Never
// fails on odd payloads.
func ContextIDFromData(notificationType models.NotificationType, data map[string]interface{}) string {
	switch notificationType {
	case models.NotificationNewItemChatMessage,
		models.NotificationNewBidOnYourItem,
		models.NotificationOutbid,
		models.NotificationAuctionEndingSoon,
		models.NotificationWatchedItemEndingSoon,
		models.NotificationWatchedItemPriceDrop:
		return stringValue(data["itemId"], ContextUnknown)
	case models.NotificationNewDirectMessage:
		return stringValue(data["senderId"], ContextUnknown)
	case models.NotificationNewFollower:
		return stringValue(data["followerId"], ContextUnknown)
	case models.NotificationSavedSearchMatch:
		return stringValue(data["searchId"], ContextUnknown)
	default:
		return ContextNone
	}
}

// stringValue coerces string and numeric payload values to a string and
// returns the fallback for anything else.
func stringValue(value interface{}, fallback string) string {
	switch v := value.(type) {
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
		return fallback
	}
}
