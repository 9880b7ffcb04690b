package util

import (
	"crypto/tls"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/PuerkitoBio/rehttp"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

const httpClientTimeout = 2 * time.Minute

var httpClientPool = &sync.Pool{
	New: func() interface{} { return newBaseConfiguredHTTPClient() },
}

func newConfiguredBaseTransport() *http.Transport {
	return &http.Transport{
		TLSClientConfig:     &tls.Config{},
		Proxy:               http.ProxyFromEnvironment,
		DisableKeepAlives:   true,
		IdleConnTimeout:     20 * time.Second,
		MaxIdleConnsPerHost: 10,
		MaxIdleConns:        50,
		DialContext: (&net.Dialer{
			Timeout: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}

func newBaseConfiguredHTTPClient() *http.Client {
	return &http.Client{
		Timeout:   httpClientTimeout,
		Transport: newConfiguredBaseTransport(),
	}
}

// GetHTTPClient returns a client from the pool. Return it with
// PutHTTPClient once done.
func GetHTTPClient() *http.Client { return httpClientPool.Get().(*http.Client) }

// PutHTTPClient resets the client and returns it to the pool. Retrying and
// authenticating transports are unwrapped first.
func PutHTTPClient(c *http.Client) {
	if c == nil {
		return
	}
	c.Timeout = httpClientTimeout

	switch tr := c.Transport.(type) {
	case *http.Transport:
		tr.TLSClientConfig.InsecureSkipVerify = false
		httpClientPool.Put(c)
	case *rehttp.Transport:
		c.Transport = tr.RoundTripper
		PutHTTPClient(c)
	case *oauth2.Transport:
		c.Transport = tr.Base
		PutHTTPClient(c)
	default:
		c.Transport = newConfiguredBaseTransport()
		httpClientPool.Put(c)
	}
}

// GetOAuth2HTTPClient returns a pooled client that authenticates every
// request with the given token.
func GetOAuth2HTTPClient(oauthToken string) (*http.Client, error) {
	if oauthToken == "" {
		return nil, errors.New("oauth token cannot be empty")
	}

	client := GetHTTPClient()
	client.Transport = &oauth2.Transport{
		Base: client.Transport,
		Source: oauth2.ReuseTokenSource(nil, oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: oauthToken},
		)),
	}
	return client, nil
}

// GetRetryableOauth2HTTPClient is GetOAuth2HTTPClient with a retrying
// transport on top.
func GetRetryableOauth2HTTPClient(oauthToken string, fRetry rehttp.RetryFn, fDelay rehttp.DelayFn) (*http.Client, error) {
	client, err := GetOAuth2HTTPClient(oauthToken)
	if err != nil {
		return nil, errors.Wrap(err, "getting oauth client")
	}

	client.Transport = rehttp.NewTransport(client.Transport, fRetry, fDelay)

	return client, nil
}

// RehttpDelay returns a delay function that waits initialSleep before the
// first retry and backs off exponentially for the following ones.
func RehttpDelay(initialSleep time.Duration, numAttempts int) rehttp.DelayFn {
	return rehttp.ExpJitterDelay(initialSleep, initialSleep*time.Duration(1<<uint(numAttempts)))
}
