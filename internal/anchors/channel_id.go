package anchors

import "strings"

// ChannelID identifies a channel as "<channelAddress>:<announceMessageId>".
type ChannelID struct {
	Address    string
	AnnounceID string
}

// ParseChannelID parses the string form of a channel id.
// It must have exactly two non-empty colon separated components.
func ParseChannelID(s string) (ChannelID, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return ChannelID{}, NewInvalidChannelIdentifierError(s)
	}
	return ChannelID{Address: parts[0], AnnounceID: parts[1]}, nil
}

func (id ChannelID) String() string {
	return id.Address + ":" + id.AnnounceID
}

// IsZero reports whether id is unset
func (id ChannelID) IsZero() bool {
	return id.Address == "" && id.AnnounceID == ""
}
