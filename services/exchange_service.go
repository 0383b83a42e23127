package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cannerai/cannerd/internal/authbackend"
	"github.com/cannerai/cannerd/internal/authcode"
)

// GenericRejectionMessage is returned for both remote transport failures and
// remote rejections without a usable body. The collapse is deliberate: a
// caller probing code validity must not learn which stage failed.
const GenericRejectionMessage = "Invalid or expired authorization code"

// RemoteExchanger resolves codes this process did not issue.
type RemoteExchanger interface {
	Exchange(ctx context.Context, authCode string) (string, error)
}

// ExchangeResult is the successful outcome of a code exchange.
type ExchangeResult struct {
	JWTToken  string
	UserID    string
	ExpiresIn int
}

// ExchangeService converts one-time authorization codes into bearer tokens.
// Codes are resolved locally first; an unknown code is forwarded to the
// remote authority so a single deployment can defer to a canonical backend
// without changing the caller's contract.
type ExchangeService struct {
	codes         authcode.Store
	tokens        *TokenService
	remote        RemoteExchanger
	remoteTimeout time.Duration
}

// NewExchangeService creates an ExchangeService.
func NewExchangeService(
	codes authcode.Store,
	tokens *TokenService,
	remote RemoteExchanger,
	remoteTimeout time.Duration,
) *ExchangeService {
	return &ExchangeService{
		codes:         codes,
		tokens:        tokens,
		remote:        remote,
		remoteTimeout: remoteTimeout,
	}
}

// Exchange resolves authCode and mints a token. Error values the handler
// must map: authcode.ErrCodeUsed and authcode.ErrCodeExpired (401 with their
// specific message), *authbackend.RejectedError (401 with its message), and
// authbackend.ErrInvalidResponse (500).
func (s *ExchangeService) Exchange(ctx context.Context, authCode string) (*ExchangeResult, error) {
	userID, err := s.codes.TryConsume(ctx, authCode)
	switch {
	case err == nil:
		// Resolved locally.
	case errors.Is(err, authcode.ErrCodeNotFound):
		userID, err = s.exchangeRemote(ctx, authCode)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	token, err := s.tokens.Issue(userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to issue token after code exchange")
		return nil, err
	}

	return &ExchangeResult{
		JWTToken:  token,
		UserID:    userID,
		ExpiresIn: int(TokenTTL.Seconds()),
	}, nil
}

// exchangeRemote forwards the code to the auth backend. Runs strictly after
// the local lookup has conclusively missed, outside any store lock.
func (s *ExchangeService) exchangeRemote(ctx context.Context, authCode string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.remoteTimeout)
	defer cancel()

	userID, err := s.remote.Exchange(ctx, authCode)
	if err != nil {
		var rejected *authbackend.RejectedError
		switch {
		case errors.As(err, &rejected):
			if rejected.Message == "" {
				rejected = &authbackend.RejectedError{Message: GenericRejectionMessage}
			}
			return "", rejected
		case errors.Is(err, authbackend.ErrInvalidResponse):
			return "", err
		default:
			// Timeout, connection refused, DNS: downgrade to the same
			// rejection a probing caller would see for a bad code.
			log.Warn().Err(err).Msg("Auth backend unreachable during code exchange")
			return "", &authbackend.RejectedError{Message: GenericRejectionMessage}
		}
	}
	return userID, nil
}
