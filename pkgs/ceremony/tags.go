package ceremony

import (
	"go.uber.org/zap"
)

// Diagnostic tags. They are only ever logged and counted, never returned to a peer.
const (
	TagRequestToSignIgnored       = "REQUEST_TO_SIGN_IGNORED"
	TagRequestToSignDelayed       = "REQUEST_TO_SIGN_DELAYED"
	TagRequestToSignExpired       = "REQUEST_TO_SIGN_EXPIRED"
	TagRequestToKeygenIgnored     = "REQUEST_TO_KEYGEN_IGNORED"
	TagSigningCeremonyFailed      = "SIGNING_CEREMONY_FAILED"
	TagKeygenCeremonyFailed       = "KEYGEN_CEREMONY_FAILED"
	TagUnexpectedStageMessage     = "UNEXPECTED_STAGE_MESSAGE"
	TagDuplicateStageMessage      = "DUPLICATE_STAGE_MESSAGE"
	TagUnknownSender              = "UNKNOWN_SENDER"
	TagMalformedStageMessage      = "MALFORMED_STAGE_MESSAGE"
	TagStageDataForUsedCeremonyID = "STAGE_DATA_FOR_USED_CEREMONY_ID"
	TagUnauthorizedExpired        = "UNAUTHORIZED_CEREMONY_EXPIRED"
	TagTooManyUnauthorized        = "TOO_MANY_UNAUTHORIZED_CEREMONIES"
	TagStageTimedOut              = "STAGE_TIMED_OUT"
)

// TagKey is the zap field name carrying a diagnostic tag.
const TagKey = "tag"

// TagRecorder counts diagnostic tags.
type TagRecorder interface {
	Tag(tag string)
}

type diagnostics struct {
	logger   *zap.Logger
	recorder TagRecorder
}

func (d diagnostics) tag(tag, msg string, fields ...zap.Field) {
	d.logger.Debug(msg, append(fields, zap.String(TagKey, tag))...)
	if d.recorder != nil {
		d.recorder.Tag(tag)
	}
}

func (d diagnostics) warn(tag, msg string, fields ...zap.Field) {
	d.logger.Warn(msg, append(fields, zap.String(TagKey, tag))...)
	if d.recorder != nil {
		d.recorder.Tag(tag)
	}
}
