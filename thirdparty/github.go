package thirdparty

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/rehttp"
	"github.com/google/go-github/v68/github"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/level"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"github.com/semantic-release/travis-deploy-once/util"
)

const (
	NumGithubRetries    = 5
	GithubSleepTimeSecs = 1 * time.Second
)

func githubShouldRetry(attempt rehttp.Attempt) bool {
	url := attempt.Request.URL.String()

	if attempt.Error != nil {
		grip.Errorf("failed trying to call github %s on %s: %+v", attempt.Request.Method, url, attempt.Error)
		return rehttp.RetryTemporaryErr()(attempt)
	}

	if attempt.Response == nil {
		return true
	}

	if attempt.Response.StatusCode >= http.StatusBadRequest {
		grip.Error(errors.Errorf("calling github %s on %s got a bad response code: %v", attempt.Request.Method, url, attempt.Response.StatusCode))
	}

	limit := parseGithubRateLimit(attempt.Response.Header)
	if limit.Limit > 0 && limit.Remaining == 0 {
		return false
	}

	if attempt.Response.StatusCode == http.StatusBadGateway || attempt.Response.StatusCode == http.StatusServiceUnavailable {
		return true
	}

	rateMessage, loglevel := getGithubRateLimit(attempt.Response.Header)
	grip.Log(loglevel, fmt.Sprintf("Github API response: %s. %s", attempt.Response.Status, rateMessage))

	return false
}

func getGithubClient(token string) (*http.Client, error) {
	all := rehttp.RetryAll(rehttp.RetryMaxRetries(NumGithubRetries-1), githubShouldRetry)
	return util.GetRetryableOauth2HTTPClient(token, all, util.RehttpDelay(GithubSleepTimeSecs, NumGithubRetries))
}

// IsPrivateRepository reports whether the repository identified by slug
// ("owner/repo") is private, which means its builds run on travis-ci.com.
func IsPrivateRepository(ctx context.Context, oauthToken, slug string) (bool, error) {
	httpClient, err := getGithubClient(oauthToken)
	if err != nil {
		return false, errors.Wrap(err, "can't fetch data from github")
	}
	defer util.PutHTTPClient(httpClient)

	return isPrivateRepository(ctx, github.NewClient(httpClient), slug)
}

func isPrivateRepository(ctx context.Context, client *github.Client, slug string) (bool, error) {
	owner, repo, err := splitSlug(slug)
	if err != nil {
		return false, err
	}

	repository, resp, err := client.Repositories.Get(ctx, owner, repo)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return false, errors.Wrapf(err, "querying repository '%s'", slug)
	}

	grip.Debug(message.Fields{
		"message": "fetched repository visibility from github",
		"repo":    slug,
		"private": repository.GetPrivate(),
	})

	return repository.GetPrivate(), nil
}

func splitSlug(slug string) (string, string, error) {
	parts := strings.Split(slug, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.Errorf("invalid repository slug '%s'", slug)
	}
	return parts[0], parts[1], nil
}

func parseGithubRateLimit(h http.Header) github.Rate {
	lim, _ := strconv.Atoi(h.Get("X-Ratelimit-Limit"))
	rem, _ := strconv.Atoi(h.Get("X-Ratelimit-Remaining"))

	return github.Rate{
		Limit:     lim,
		Remaining: rem,
	}
}

// getGithubRateLimit interprets the limit headers, and produces an
// increasingly alarmed message as the remaining quota shrinks.
func getGithubRateLimit(header http.Header) (string, level.Priority) {
	limit := parseGithubRateLimit(header)
	if limit.Limit == 0 {
		return "Could not get rate limit data", level.Debug
	}

	if limit.Remaining > int(0.1*float32(limit.Limit)) {
		return fmt.Sprintf("Rate limit: %v/%v", limit.Remaining, limit.Limit), level.Debug
	}

	if limit.Remaining < 20 {
		return fmt.Sprintf("Rate limit significantly low: %v/%v", limit.Remaining, limit.Limit), level.Warning
	}

	return fmt.Sprintf("Throttling required - rate limit almost exhausted: %v/%v", limit.Remaining, limit.Limit), level.Error
}
