package realtime

// Channel and event names understood by the realtime gateway. Row-level
// change feeds use "table:" channels carrying the affected row; the rest
// are ephemeral broadcast channels.
const (
	ChannelMessages  = "table:messages"
	ChannelReactions = "table:message_reactions"

	ChannelChatUpdates   = "chat_updates"
	ChannelTyping        = "typing_status"
	ChannelMessageStatus = "message_status_updates"
	ChannelProfiles      = "profile_updates"

	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"

	EventUserJoined    = "user_joined"
	EventTypingStatus  = "typing_status"
	EventMessageStatus = "message_status"
	EventProfileUpdate = "profile_update"

	// EventAny subscribes to every event on a channel.
	EventAny = "*"
)
