package interceptor

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	apigrpc "medequip-marketplace/internal/api/grpc"
	"medequip-marketplace/internal/config"
	"medequip-marketplace/internal/domain"
	"medequip-marketplace/internal/logger"
)

// IdentityResolver turns a bearer token into the caller's identity.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (domain.Identity, error)
}

type AuthInterceptor struct {
	resolver IdentityResolver
	levelFor func(fullMethod string) config.SecurityLevel
}

func NewAuthInterceptor(resolver IdentityResolver) *AuthInterceptor {
	return &AuthInterceptor{resolver: resolver, levelFor: config.GetSecurityLevel}
}

// Unary resolves the caller once per call and attaches it to the context.
func (i *AuthInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		level := i.levelFor(info.FullMethod)

		// Public endpoint - skip auth
		if level == config.SecurityPublic {
			return handler(ctx, req)
		}

		token, err := extractToken(ctx)
		if err != nil {
			return nil, apigrpc.ToStatus(ctx, err)
		}

		id, err := i.resolver.Resolve(ctx, token)
		if err != nil {
			logger.WarnContext(ctx, "authentication failed", "method", info.FullMethod, "error", err)
			return nil, apigrpc.ToStatus(ctx, err)
		}

		if err := checkSecurityLevel(level, id); err != nil {
			return nil, apigrpc.ToStatus(ctx, err)
		}

		ctx = apigrpc.WithIdentity(ctx, id)
		ctx = logger.WithContext(ctx, "user_id", id.UserID)
		return handler(ctx, req)
	}
}

func extractToken(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", domain.ErrUnauthenticated.WithDetail("thiếu metadata", "metadata is not provided")
	}

	authHeader := md["authorization"]
	if len(authHeader) == 0 {
		return "", domain.ErrUnauthenticated.WithDetail("thiếu mã xác thực", "authorization token is not provided")
	}

	token := authHeader[0]
	// Remove Bearer prefix if present
	if len(token) > 7 && strings.ToUpper(token[0:7]) == "BEARER " {
		token = token[7:]
	}
	if token == "" {
		return "", domain.ErrUnauthenticated
	}
	return token, nil
}

func checkSecurityLevel(level config.SecurityLevel, id domain.Identity) error {
	if level == config.SecurityPlatformAdmin && !id.IsPlatformAdmin() {
		return domain.ErrForbidden
	}
	return nil
}
