package session

import (
	"go.uber.org/zap"

	"github.com/driftline/driftline/pkg/algorithm"
)

// TypeResolver looks up a registered algorithm type by name. The plugin
// registry satisfies it.
type TypeResolver interface {
	Resolve(name string) (algorithm.Type, bool)
}

// ResolveAlgorithm reconstructs the session's trained algorithm, or nil
// when the session has none. Resolution never fails the request: an
// unknown type or an undeserializable blob degrades to nil so the caller
// falls back to untrained behavior, with the cause logged.
func ResolveAlgorithm(sess *Session, resolver TypeResolver, logger *zap.Logger) (algorithm.Type, algorithm.Algorithm) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sess == nil || sess.Spec == nil {
		return nil, nil
	}

	typ, ok := resolver.Resolve(sess.Spec.Type)
	if !ok {
		logger.Warn("session references unknown algorithm type",
			zap.String("session_id", sess.ID),
			zap.String("type", sess.Spec.Type),
		)
		return nil, nil
	}

	if len(sess.Model) == 0 {
		return typ, nil
	}

	alg, err := typ.Deserialize(sess.Model)
	if err != nil {
		logger.Warn("failed to deserialize session model",
			zap.String("session_id", sess.ID),
			zap.String("type", sess.Spec.Type),
			zap.Error(err),
		)
		return typ, nil
	}

	return typ, alg
}
