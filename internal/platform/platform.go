package platform

import (
	"context"
	"time"

	"github.com/ca-srg/chatbridge/internal/types"
)

// DefaultHTTPTimeout is the per-request deadline adapters apply when no
// override is given.
const DefaultHTTPTimeout = 30 * time.Second

// MessagingPlatform is the capability contract every platform adapter
// implements. Adapters that cannot perform an operation return a
// well-formed "not supported" result instead of failing, so callers
// never branch on the platform name.
type MessagingPlatform interface {
	// Name returns the platform identifier ("slack", "discord").
	Name() string

	// SendMessage posts text to a channel. Adapters bound to a fixed
	// destination (webhooks) ignore channel.
	SendMessage(ctx context.Context, channel, text, threadID string, opts *types.SendOptions) types.SendResult

	// GetMessages returns recent messages, newest first. Adapters
	// without read capability return an empty slice and a nil error.
	GetMessages(ctx context.Context, channel string, limit int, before string) ([]types.Message, error)

	// AddReaction attaches an emoji reaction to a message. Leading and
	// trailing colons on the emoji name are stripped before transmission.
	AddReaction(ctx context.Context, channel, messageID, emoji string) types.ReactionResult

	// UploadFile posts a file with optional title and comment.
	UploadFile(ctx context.Context, channel, filename string, content []byte, title, comment string) types.FileUploadResult

	// ListChannels enumerates visible channels. Adapters without the
	// capability return an empty slice and a nil error.
	ListChannels(ctx context.Context, includePrivate bool, limit int) ([]types.Channel, error)

	// ValidateCredentials checks the configured secret against the
	// platform and reports the resolved identity.
	ValidateCredentials(ctx context.Context) types.ValidationResult
}
