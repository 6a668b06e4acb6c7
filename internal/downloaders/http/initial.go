package zouhttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/k0pernicus/zou/internal/auth"
	"github.com/k0pernicus/zou/internal/utils"
)

var (
	ErrProbeFailed              = errors.New("probe request failed")
	ErrUnexpectedStatus         = errors.New("unexpected status")
	ErrUnsupportedAuthScheme    = errors.New("unsupported authorization scheme")
	ErrCredentialsRequired      = errors.New("credentials required")
	ErrAuthRejected             = errors.New("credentials rejected by the server")
	ErrContentLengthUnavailable = errors.New("remote content length unavailable")
)

type UnsupportedAuthSchemeError struct {
	Scheme string
}

func (e *UnsupportedAuthSchemeError) Error() string {
	return fmt.Sprintf("the remote content is protected by %s authorization, which is not supported", e.Scheme)
}

func (e *UnsupportedAuthSchemeError) Is(target error) bool {
	return target == ErrUnsupportedAuthScheme
}

// NegotiationError reports which server a negotiation failed against.
type NegotiationError struct {
	URL string
	Err error
}

func (e *NegotiationError) Error() string {
	return fmt.Sprintf("negotiation with %s failed: %v", e.URL, e.Err)
}

func (e *NegotiationError) Unwrap() error {
	return e.Err
}

// CredentialSource supplies credentials for a Basic challenge.
type CredentialSource interface {
	Credentials(challenge auth.Challenge, link string) (auth.Credentials, error)
}

type CredentialFunc func(challenge auth.Challenge, link string) (auth.Credentials, error)

func (f CredentialFunc) Credentials(challenge auth.Challenge, link string) (auth.Credentials, error) {
	return f(challenge, link)
}

type Negotiator struct {
	transport utils.Transport
	creds     CredentialSource
}

func NewNegotiator(transport utils.Transport, creds CredentialSource) *Negotiator {
	return &Negotiator{transport: transport, creds: creds}
}

// Negotiate probes link for its content length, range support and
// authentication requirements.
func (n *Negotiator) Negotiate(ctx context.Context, link string) (utils.RemoteServerInfo, error) {
	info, err := n.negotiate(ctx, link)
	if err != nil {
		return utils.RemoteServerInfo{}, &NegotiationError{URL: link, Err: err}
	}
	return info, nil
}

func (n *Negotiator) negotiate(ctx context.Context, link string) (utils.RemoteServerInfo, error) {
	log := utils.GetLogger("negotiate").With().Str("url", link).Logger()
	info := utils.RemoteServerInfo{URL: link}

	log.Debug().Msg("Waiting for a response from the remote server")
	resp, err := n.head(ctx, link, nil)
	if err != nil {
		return info, err
	}
	if resp.ProtoMajor == 1 && resp.ProtoMinor == 0 {
		log.Warn().Msg("HTTP version <= 1.0 detected")
	}

	challenge := auth.ParseChallenge(resp.Header.Get("WWW-Authenticate"))
	switch challenge.Kind {
	case auth.KindBasic:
		log.Debug().Str("realm", challenge.Realm).Msg("Remote content is protected by Basic auth")
		if n.creds == nil {
			return info, ErrCredentialsRequired
		}
		creds, err := n.creds.Credentials(challenge, link)
		if err != nil {
			return info, fmt.Errorf("%w: %w", ErrCredentialsRequired, err)
		}
		info.AuthHeader = auth.BasicHeader(creds)
		resp, err = n.head(ctx, link, authHeaders(info))
		if err != nil {
			return info, err
		}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return info, fmt.Errorf("%w: status %d", ErrAuthRejected, resp.StatusCode)
		}
	case auth.KindUnsupported:
		return info, &UnsupportedAuthSchemeError{Scheme: challenge.Scheme}
	}
	if resp.StatusCode >= http.StatusBadRequest && resp.StatusCode != http.StatusMethodNotAllowed {
		return info, fmt.Errorf("%w: server returned %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	info.ContentLength, err = n.contentLength(ctx, resp, info)
	if err != nil {
		return info, err
	}

	log.Debug().Msg("Checking the server's support for partial content")
	headers := authHeaders(info)
	headers.Set("Range", utils.ByteRange{Start: 0, End: 2}.Header())
	resp, err = n.head(ctx, link, headers)
	if err != nil {
		return info, err
	}
	info.AcceptsPartialContent = resp.StatusCode == http.StatusPartialContent

	log.Debug().Uint64("contentLength", info.ContentLength).Bool("partialContent", info.AcceptsPartialContent).Bool("auth", info.AuthHeader != "").Msg("Negotiation complete")
	return info, nil
}

// contentLength reads the length from the authoritative probe, falling back
// once to a GET for the whole resource.
func (n *Negotiator) contentLength(ctx context.Context, probe *http.Response, info utils.RemoteServerInfo) (uint64, error) {
	log := utils.GetLogger("negotiate").With().Str("url", info.URL).Logger()
	if size, ok := utils.ContentLength(probe); ok {
		return size, nil
	}
	log.Warn().Msg("Cannot get the remote content length from a HEAD request, trying a full-range GET")

	headers := authHeaders(info)
	headers.Set("Range", "bytes=0-")
	resp, err := n.transport.Send(ctx, http.MethodGet, info.URL, headers)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrProbeFailed, err)
	}
	resp.Body.Close()
	if size, ok := utils.ContentLength(resp); ok {
		return size, nil
	}
	log.Error().Msg("Second attempt has failed")
	return 0, fmt.Errorf("%w after %d attempts", ErrContentLengthUnavailable, utils.MaxContentLengthAttempts)
}

func (n *Negotiator) head(ctx context.Context, link string, headers http.Header) (*http.Response, error) {
	resp, err := n.transport.Send(ctx, http.MethodHead, link, headers)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProbeFailed, err)
	}
	resp.Body.Close()
	return resp, nil
}

func authHeaders(info utils.RemoteServerInfo) http.Header {
	headers := http.Header{}
	if info.AuthHeader != "" {
		headers.Set("Authorization", info.AuthHeader)
	}
	return headers
}
