package commands

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/webosctl/internal/errs"
	"github.com/muurk/webosctl/internal/logging"
)

// maxIconSize caps downloaded notification icons.
const maxIconSize = 1 << 20

// Issuer sends a request and returns the response payload.
// *session.Session satisfies it.
type Issuer interface {
	Request(ctx context.Context, uri string, payload any, prefix string) (json.RawMessage, error)
}

// Remote runs catalogue operations over an Issuer.
type Remote struct {
	issuer Issuer
	client *http.Client
	log    *zap.Logger
}

// NewRemote creates a Remote. A nil client uses a client with a 10 second
// timeout for icon downloads.
func NewRemote(issuer Issuer, client *http.Client) *Remote {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Remote{
		issuer: issuer,
		client: client,
		log:    logging.GetLogger(),
	}
}

// Run looks up name, builds its payload from args and issues it.
func (r *Remote) Run(ctx context.Context, name string, args ...string) (json.RawMessage, error) {
	op, ok := Lookup(name)
	if !ok {
		return nil, errs.NewCommandError("run", fmt.Sprintf("unknown operation %q", name), nil)
	}

	payload, err := op.Payload(args)
	if err != nil {
		return nil, errs.NewCommandError("run", "invalid arguments", err)
	}

	r.log.Debug("Running operation", zap.String("operation", op.Name), zap.String("uri", op.URI))
	return r.issuer.Request(ctx, op.URI, payload, op.Prefix)
}

// NotifyWithIcon downloads iconURL and shows a toast with it embedded.
func (r *Remote) NotifyWithIcon(ctx context.Context, message, iconURL string) (json.RawMessage, error) {
	icon, err := r.fetchIcon(ctx, iconURL)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"message":       message,
		"iconData":      base64.StdEncoding.EncodeToString(icon),
		"iconExtension": iconExtension(iconURL),
	}
	return r.issuer.Request(ctx, uriToast, payload, "")
}

func (r *Remote) fetchIcon(ctx context.Context, iconURL string) ([]byte, error) {
	u, err := url.Parse(iconURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, errs.NewCommandError("notify", "invalid icon URL scheme", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errs.NewCommandError("notify", "invalid icon URL", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, errs.NewCommandError("notify", "failed to fetch icon", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errs.NewCommandError("notify", fmt.Sprintf("icon server returned %s", resp.Status), nil)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxIconSize+1))
	if err != nil {
		return nil, errs.NewCommandError("notify", "failed to read icon", err)
	}
	if len(data) > maxIconSize {
		return nil, errs.NewCommandError("notify", "icon is larger than 1 MiB", nil)
	}
	return data, nil
}

// iconExtension returns the file extension of the icon path, defaulting to
// png.
func iconExtension(iconURL string) string {
	u, err := url.Parse(iconURL)
	if err != nil {
		return "png"
	}
	ext := strings.TrimPrefix(path.Ext(u.Path), ".")
	if ext == "" {
		return "png"
	}
	return strings.ToLower(ext)
}
