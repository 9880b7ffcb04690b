package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/evergreen-ci/utility"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	deployonce "github.com/semantic-release/travis-deploy-once"
	"github.com/semantic-release/travis-deploy-once/model/job"
)

// ErrNotAuthenticated is returned when Travis does not know the GitHub user
// owning the token. It is not retryable.
var ErrNotAuthenticated = errors.New(`The GitHub user of the "GH_TOKEN" has not authenticated Travis CI yet. ` +
	`Go to https://travis-ci.com/, login with the GitHub user of this token and then restart this job.`)

type requestInfo struct {
	method string
	path   string
	// authenticated requests carry the Travis access token.
	authenticated bool
}

type buildResponse struct {
	Jobs []job.Job `json:"jobs"`
}

type authRequest struct {
	GithubToken string `json:"github_token"`
}

type authResponse struct {
	AccessToken string `json:"access_token"`
}

// travisError is the body Travis sends along some failed responses.
type travisError struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

func (e travisError) notAuthenticated() bool { return e.File == "not found" }

// GetJobs returns the jobs of the build.
func (c *travisREST) GetJobs(ctx context.Context, buildID int64) ([]job.Job, error) {
	info := requestInfo{
		method:        http.MethodGet,
		path:          fmt.Sprintf("builds/%d", buildID),
		authenticated: true,
	}

	out := buildResponse{}
	if err := c.retryRequest(ctx, info, nil, &out); err != nil {
		return nil, errors.Wrapf(err, "getting jobs for build %d", buildID)
	}

	return out.Jobs, nil
}

func (c *travisREST) authenticate(ctx context.Context) (string, error) {
	info := requestInfo{
		method: http.MethodPost,
		path:   "auth/github",
	}

	out := authResponse{}
	if err := c.retryRequest(ctx, info, authRequest{GithubToken: c.opts.GithubToken}, &out); err != nil {
		return "", errors.Wrap(err, "authenticating with Travis")
	}
	if out.AccessToken == "" {
		return "", errors.New("Travis returned an empty access token")
	}

	return out.AccessToken, nil
}

func (c *travisREST) newRequest(ctx context.Context, info requestInfo, body []byte) (*http.Request, error) {
	serverURL, err := c.ServerURL(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	r, err := http.NewRequestWithContext(ctx, info.method, serverURL+strings.TrimPrefix(info.path, "/"), reader)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}

	r.Header.Add("User-Agent", deployonce.TravisUserAgent)
	r.Header.Add("Accept", deployonce.TravisAcceptHeader)
	if body != nil {
		r.Header.Add("Content-Type", "application/json")
	}
	if info.authenticated {
		token, err := c.token(ctx)
		if err != nil {
			return nil, err
		}
		r.Header.Add("Authorization", "token "+token)
	}

	return r, nil
}

// retryRequest sends the request, decoding a successful JSON response into
// out. Transport errors and server errors are retried according to the
// communicator's retry options; client errors are not.
func (c *travisREST) retryRequest(ctx context.Context, info requestInfo, data interface{}, out interface{}) error {
	var body []byte
	if data != nil {
		var err error
		if body, err = json.Marshal(data); err != nil {
			return errors.Wrap(err, "marshalling request body")
		}
	}

	attempt := 0
	return utility.Retry(ctx, func() (bool, error) {
		attempt++
		r, err := c.newRequest(ctx, info, body)
		if err != nil {
			return false, err
		}

		resp, err := c.httpClient.Do(r)
		if err != nil {
			grip.Warning(message.WrapError(err, message.Fields{
				"message": "error response from Travis API",
				"attempt": attempt,
				"max":     c.retry.MaxAttempts,
				"path":    info.path,
			}))
			return true, errors.Wrapf(err, "requesting '%s'", info.path)
		}
		defer resp.Body.Close()

		return handleResponse(resp, out)
	}, c.retry)
}

func handleResponse(resp *http.Response, out interface{}) (bool, error) {
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return true, errors.Wrap(err, "reading response body")
	}

	// Travis reports unknown users with this body, whatever the status.
	travisErr := travisError{}
	if json.Unmarshal(payload, &travisErr) == nil && travisErr.notAuthenticated() {
		return false, errors.WithStack(ErrNotAuthenticated)
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		if err = json.Unmarshal(payload, out); err != nil {
			return false, errors.Wrap(err, "decoding response body")
		}
		return false, nil
	}

	statusErr := errors.Errorf("Response code %d (%s)", resp.StatusCode, http.StatusText(resp.StatusCode))
	if resp.StatusCode >= http.StatusInternalServerError {
		return true, statusErr
	}
	if len(payload) > 0 {
		return false, errors.Wrapf(statusErr, "server returned '%s'", strings.TrimSpace(string(payload)))
	}
	return false, statusErr
}
