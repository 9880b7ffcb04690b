package client

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/evergreen-ci/utility"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	deployonce "github.com/semantic-release/travis-deploy-once"
	"github.com/semantic-release/travis-deploy-once/util"
)

// Options configures the Travis endpoint and credentials of a
// Communicator.
type Options struct {
	// EnterpriseURL is the API endpoint of a Travis Enterprise
	// installation. It takes precedence over Pro.
	EnterpriseURL string
	// Pro selects travis-ci.com instead of travis-ci.org.
	Pro bool
	// ResolvePro, if set, decides Pro lazily on the first request.
	ResolvePro func(context.Context) (bool, error)
	// GithubToken is exchanged for a Travis access token on the first
	// request.
	GithubToken string
}

// travisREST implements Communicator against the Travis API v2.
type travisREST struct {
	opts       Options
	retry      utility.RetryOptions
	httpClient *http.Client

	mu          sync.Mutex
	serverURL   string
	travisToken string
}

// NewCommunicator returns a Communicator for the Travis API described by
// opts. Requests are retried with the default jobs fetch policy; use
// SetRetryOptions to change it.
func NewCommunicator(opts Options) Communicator {
	return &travisREST{
		opts: opts,
		retry: utility.RetryOptions{
			MaxAttempts: deployonce.JobsFetchMaxAttempts,
			MinDelay:    deployonce.JobsFetchMinDelay,
		},
		httpClient: util.GetHTTPClient(),
	}
}

func (c *travisREST) SetRetryOptions(opts utility.RetryOptions) {
	c.retry = opts
}

func (c *travisREST) Close() {
	if c.httpClient != nil {
		util.PutHTTPClient(c.httpClient)
		c.httpClient = nil
	}
}

// ServerURL resolves the endpoint once: the enterprise URL if configured,
// otherwise travis-ci.com or travis-ci.org.
func (c *travisREST) ServerURL(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.serverURL != "" {
		return c.serverURL, nil
	}

	pro := c.opts.Pro
	switch {
	case c.opts.EnterpriseURL != "":
		c.serverURL = c.opts.EnterpriseURL
	default:
		if c.opts.ResolvePro != nil {
			resolved, err := c.opts.ResolvePro(ctx)
			if err != nil {
				return "", errors.Wrap(err, "deciding between Travis Pro and Travis Open Source")
			}
			pro = resolved
		}
		c.serverURL = deployonce.TravisOrgURL
		if pro {
			c.serverURL = deployonce.TravisProURL
		}
	}

	if !strings.HasSuffix(c.serverURL, "/") {
		c.serverURL += "/"
	}

	grip.Debug(message.Fields{
		"message":    "resolved Travis API endpoint",
		"url":        c.serverURL,
		"pro":        pro,
		"enterprise": c.opts.EnterpriseURL != "",
	})

	return c.serverURL, nil
}

// token returns the Travis access token, exchanging the GitHub token for
// it on first use.
func (c *travisREST) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	cached := c.travisToken
	c.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	if c.opts.GithubToken == "" {
		return "", errors.WithStack(deployonce.ErrCredentialMissing)
	}

	token, err := c.authenticate(ctx)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.travisToken = token
	c.mu.Unlock()

	return token, nil
}
