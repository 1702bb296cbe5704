package enums

// NotificationType classifies in-app notification rows.
type NotificationType string

const (
	NotificationTypePurchaseConfirmation NotificationType = "purchase_confirmation"
	NotificationTypeFeedbackReward       NotificationType = "feedback_reward"
	NotificationTypeSystemAnnouncement   NotificationType = "system_announcement"
)

var validNotificationTypes = []NotificationType{
	NotificationTypePurchaseConfirmation,
	NotificationTypeFeedbackReward,
	NotificationTypeSystemAnnouncement,
}

// IsValid reports whether the notification type is one of the known values.
func (t NotificationType) IsValid() bool {
	for _, valid := range validNotificationTypes {
		if t == valid {
			return true
		}
	}
	return false
}
