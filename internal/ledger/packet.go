package ledger

import (
	"crypto/ed25519"
	"time"

	"github.com/google/uuid"

	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/crypto"
)

// PacketVersion is the only packet version understood by the node.
const PacketVersion = 1

// Kind identifies what a packet does on the channel
type Kind string

const (
	KindAnnounce     Kind = "announce"
	KindSubscribe    Kind = "subscribe"
	KindSignedPacket Kind = "signed_packet"
)

// Packet is the signed content of a ledger message.
// Its RFC 8785 canonical form is what gets hashed into the message id and signed.
type Packet struct {
	Version        int    `json:"version"`
	Kind           Kind   `json:"kind"`
	ChannelAddress string `json:"channelAddress"`

	// LinkID is the anchorage: the id of the message this packet extends.
	// Empty for announce packets.
	LinkID string `json:"linkId,omitempty"`

	// PublicKey is the hex Ed25519 key of the signer
	PublicKey string `json:"publicKey"`

	// Nonce makes otherwise identical packets distinct messages
	Nonce string `json:"nonce"`

	Payload []byte `json:"payload,omitempty"`

	// Restricted is only meaningful on announce packets: only the author may bind.
	Restricted bool `json:"restricted,omitempty"`
}

// Message is a packet together with its id, its signature and the commit position
// assigned by the node.
type Message struct {
	Packet

	ID        string `json:"id"`
	Signature string `json:"signature"`

	// Seq is the channel-wide commit order, starting at 1 for the announce.
	// Zero until the node accepts the message.
	Seq       uint64    `json:"seq,omitempty"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// Channel is the node's record of a created channel
type Channel struct {
	Address    string    `json:"channelAddress"`
	AuthorKey  string    `json:"authorKey"`
	AnnounceID string    `json:"announceMessageId"`
	Restricted bool      `json:"restricted"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ChannelInfo is returned when a channel is created
type ChannelInfo struct {
	ChannelAddress    string `json:"channelAddress"`
	AnnounceMessageID string `json:"announceMessageId"`
}

type Role string

const (
	RoleAuthor     Role = "author"
	RoleSubscriber Role = "subscriber"
)

// Subscription grants a public key write access to a channel
type Subscription struct {
	ChannelAddress string    `json:"channelAddress"`
	PublicKey      string    `json:"publicKey"`
	MessageID      string    `json:"messageId,omitempty"`
	Role           Role      `json:"role"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ListQuery selects the accepted signed packets of a channel in commit order.
type ListQuery struct {
	ChannelAddress string

	// LinkID restricts the result to messages anchored at this message id. Empty means any anchorage.
	LinkID string

	// AfterSeq excludes messages with Seq <= AfterSeq
	AfterSeq uint64

	// Limit caps the result size; values <= 0 use the node maximum.
	Limit int
}

// DeriveChannelAddress returns the address of a channel announced by publicKey with nonce.
func DeriveChannelAddress(publicKey ed25519.PublicKey, nonce string) string {
	return crypto.SHA3Hex(publicKey, []byte(nonce))
}

// NewNonce returns a fresh packet nonce
func NewNonce() string {
	return uuid.NewString()
}

// NewAnnounce builds the announce packet of a new channel owned by publicKey.
func NewAnnounce(publicKey ed25519.PublicKey, restricted bool) Packet {
	nonce := NewNonce()
	return Packet{
		Version:        PacketVersion,
		Kind:           KindAnnounce,
		ChannelAddress: DeriveChannelAddress(publicKey, nonce),
		PublicKey:      crypto.KeyIDFromPublicKey(publicKey),
		Nonce:          nonce,
		Restricted:     restricted,
	}
}

// NewSubscribe builds a subscribe packet linked to the announce of channelAddress.
func NewSubscribe(publicKey ed25519.PublicKey, channelAddress, announceID string) Packet {
	return Packet{
		Version:        PacketVersion,
		Kind:           KindSubscribe,
		ChannelAddress: channelAddress,
		LinkID:         announceID,
		PublicKey:      crypto.KeyIDFromPublicKey(publicKey),
		Nonce:          NewNonce(),
	}
}

// NewSignedPacket builds a packet carrying payload anchored at linkID.
func NewSignedPacket(publicKey ed25519.PublicKey, channelAddress, linkID string, payload []byte) Packet {
	return Packet{
		Version:        PacketVersion,
		Kind:           KindSignedPacket,
		ChannelAddress: channelAddress,
		LinkID:         linkID,
		PublicKey:      crypto.KeyIDFromPublicKey(publicKey),
		Nonce:          NewNonce(),
		Payload:        payload,
	}
}

// Canonical returns the RFC 8785 form of the packet.
func (p *Packet) Canonical() ([]byte, error) {
	b, err := crypto.Canonicalize(p)
	if err != nil {
		return nil, WrapValidationError(err, "failed to canonicalize packet")
	}
	return b, nil
}

// Validate checks the structural rules of a packet.
func (p *Packet) Validate() error {
	if p.Version != PacketVersion {
		return NewValidationError("unsupported packet version")
	}
	if p.ChannelAddress == "" {
		return NewValidationError("channelAddress is required")
	}
	if _, err := crypto.PublicKeyFromKeyID(p.PublicKey); err != nil {
		return WrapValidationError(err, "invalid publicKey")
	}
	if p.Nonce == "" {
		return NewValidationError("nonce is required")
	}

	switch p.Kind {
	case KindAnnounce:
		if p.LinkID != "" {
			return NewValidationError("announce packets cannot carry a linkId")
		}
	case KindSubscribe, KindSignedPacket:
		if p.LinkID == "" {
			return NewValidationError("linkId is required")
		}
		if p.Restricted {
			return NewValidationError("restricted is only valid on announce packets")
		}
	default:
		return NewValidationError("unknown packet kind: " + string(p.Kind))
	}
	return nil
}

// Sign canonicalises p, computes its message id and signs it with privateKey.
func Sign(p Packet, privateKey ed25519.PrivateKey) (*Message, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	canonical, err := p.Canonical()
	if err != nil {
		return nil, err
	}
	id, err := crypto.ContentID(canonical)
	if err != nil {
		return nil, WrapInternalError(err, "failed to compute message id")
	}
	sig, err := crypto.SignEd25519(canonical, privateKey, p.PublicKey)
	if err != nil {
		return nil, WrapValidationError(err, "failed to sign packet")
	}
	return &Message{Packet: p, ID: id, Signature: sig}, nil
}

// Verify checks that the message id is the content id of the packet and that the signature
// was produced by the packet's public key over the canonical packet.
func (m *Message) Verify() error {
	if err := m.Packet.Validate(); err != nil {
		return err
	}
	canonical, err := m.Packet.Canonical()
	if err != nil {
		return err
	}
	if !crypto.VerifyContentID(canonical, m.ID) {
		return NewValidationError("message id does not match packet content")
	}

	header, err := crypto.ParseHeader(m.Signature)
	if err != nil {
		return WrapValidationError(err, "invalid signature header")
	}
	if header.KeyID != m.PublicKey {
		return NewValidationError("signature kid does not match publicKey")
	}

	publicKey, err := crypto.PublicKeyFromKeyID(m.PublicKey)
	if err != nil {
		return WrapValidationError(err, "invalid publicKey")
	}
	if err := crypto.VerifyDetached(m.Signature, canonical, publicKey); err != nil {
		return WrapValidationError(err, "invalid signature")
	}
	return nil
}
