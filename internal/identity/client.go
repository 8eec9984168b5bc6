package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	verifyPath = "/verify-user-token"
	savePath   = "/save-s3-url"

	// verifyTimeout bounds every provider round trip so a slow provider
	// cannot hold a request open indefinitely.
	verifyTimeout = 5 * time.Second

	bearerPrefix = "Bearer "
)

// Client is the HTTP client for the identity provider. It implements
// both Verifier and Notifier and is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

func NewClient(baseURL string, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: verifyTimeout},
		logger:  logger,
	}
}

// verifyResponse mirrors the provider's verify-user-token body shape.
type verifyResponse struct {
	Status   string `json:"status"`
	Response struct {
		User struct {
			ID             string `json:"_id"`
			Name           string `json:"Name"`
			Workspace      string `json:"Workspace"`
			Tool           string `json:"Tool"`
			Role           string `json:"Role"`
			Authentication struct {
				Email struct {
					Email string `json:"email"`
				} `json:"email"`
			} `json:"authentication"`
		} `json:"user"`
	} `json:"response"`
}

// Verify posts the credential to the provider's verification endpoint.
// Success requires all of: HTTP 200, body status "success", and a
// non-empty user id. Anything else is a typed AuthError.
func (c *Client) Verify(ctx context.Context, credential string) (*UserContext, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, &AuthError{Kind: KindMissingCredential, Detail: "no bearer credential supplied"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+verifyPath, bytes.NewReader([]byte("{}")))
	if err != nil {
		return nil, &AuthError{Kind: KindTransport, Detail: "build verify request", Err: err}
	}
	req.Header.Set("Authorization", NormalizeCredential(credential))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &AuthError{Kind: KindTransport, Detail: "identity provider unreachable", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &AuthError{
			Kind:   KindRejected,
			Detail: fmt.Sprintf("identity provider returned status %d", resp.StatusCode),
		}
	}

	var body verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &AuthError{Kind: KindMalformed, Detail: "undecodable verify response", Err: err}
	}
	if body.Status != "success" {
		return nil, &AuthError{
			Kind:   KindRejected,
			Detail: fmt.Sprintf("identity provider reported status %q", body.Status),
		}
	}
	user := body.Response.User
	if user.ID == "" {
		return nil, &AuthError{Kind: KindMalformed, Detail: "verify response carries no user id"}
	}

	workspace := user.Workspace
	if workspace == "" {
		workspace = user.Tool
	}
	return &UserContext{
		ID:          user.ID,
		Workspace:   workspace,
		DisplayName: user.Name,
		Email:       user.Authentication.Email.Email,
		Role:        user.Role,
	}, nil
}

// SaveFileURL posts the stored object reference to the provider. The
// caller treats failure as advisory; nothing here is retried.
func (c *Client) SaveFileURL(ctx context.Context, credential, fileName, fileURL, userID string) error {
	payload, err := json.Marshal(map[string]string{
		"file_name": fileName,
		"file_url":  fileURL,
		"user_id":   userID,
	})
	if err != nil {
		return fmt.Errorf("encode save payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+savePath, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build save request: %w", err)
	}
	req.Header.Set("Authorization", NormalizeCredential(credential))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("identity provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("save-s3-url returned status %d", resp.StatusCode)
	}
	c.logger.Debug().Str("user_id", userID).Str("file_url", fileURL).Msg("file url saved to identity provider")
	return nil
}

// NormalizeCredential ensures the credential carries the Bearer scheme
// prefix exactly once.
func NormalizeCredential(credential string) string {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return credential
	}
	if strings.HasPrefix(credential, bearerPrefix) {
		return credential
	}
	return bearerPrefix + credential
}
