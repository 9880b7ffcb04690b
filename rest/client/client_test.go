package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/evergreen-ci/utility"
	"github.com/pkg/errors"
	deployonce "github.com/semantic-release/travis-deploy-once"
	"github.com/semantic-release/travis-deploy-once/model/job"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestCommunicatorConstructor(t *testing.T) {
	comm := NewCommunicator(Options{GithubToken: "token"})
	c, ok := comm.(*travisREST)
	require.True(t, ok)
	assert.Equal(t, deployonce.JobsFetchMaxAttempts, c.retry.MaxAttempts)
	assert.Equal(t, deployonce.JobsFetchMinDelay, c.retry.MinDelay)
	assert.NotNil(t, c.httpClient)

	opts := utility.RetryOptions{MaxAttempts: 2, MinDelay: time.Millisecond}
	comm.SetRetryOptions(opts)
	assert.Equal(t, opts, c.retry)

	comm.Close()
	assert.Nil(t, c.httpClient)
	comm.Close()
}

func TestServerURL(t *testing.T) {
	ctx := context.Background()

	for name, test := range map[string]struct {
		opts     Options
		expected string
	}{
		"Org":                {opts: Options{}, expected: deployonce.TravisOrgURL},
		"Pro":                {opts: Options{Pro: true}, expected: deployonce.TravisProURL},
		"EnterpriseOverPro":  {opts: Options{Pro: true, EnterpriseURL: "https://travis.corp/api"}, expected: "https://travis.corp/api/"},
		"ResolvedPro":        {opts: Options{ResolvePro: func(context.Context) (bool, error) { return true, nil }}, expected: deployonce.TravisProURL},
		"ResolverOverridesPro": {opts: Options{Pro: true, ResolvePro: func(context.Context) (bool, error) { return false, nil }}, expected: deployonce.TravisOrgURL},
	} {
		t.Run(name, func(t *testing.T) {
			comm := NewCommunicator(test.opts)
			defer comm.Close()
			url, err := comm.ServerURL(ctx)
			require.NoError(t, err)
			assert.Equal(t, test.expected, url)
		})
	}

	t.Run("ResolverIsCalledOnce", func(t *testing.T) {
		calls := 0
		comm := NewCommunicator(Options{ResolvePro: func(context.Context) (bool, error) {
			calls++
			return false, nil
		}})
		defer comm.Close()
		for i := 0; i < 3; i++ {
			_, err := comm.ServerURL(ctx)
			require.NoError(t, err)
		}
		assert.Equal(t, 1, calls)
	})
	t.Run("ResolverError", func(t *testing.T) {
		comm := NewCommunicator(Options{ResolvePro: func(context.Context) (bool, error) {
			return false, errors.New("github is down")
		}})
		defer comm.Close()
		_, err := comm.ServerURL(ctx)
		assert.Error(t, err)
	})
}

type travisHandler struct {
	authCalls  int32
	buildCalls int32
	// buildReplies are served in order; the last one repeats.
	buildReplies []reply
	authReply    reply
	lastAuth     string
	lastAccept   string
}

type reply struct {
	status int
	body   interface{}
}

func (h *travisHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var rep reply
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/auth/github":
		atomic.AddInt32(&h.authCalls, 1)
		in := authRequest{}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.GithubToken != "GITHUB_TOKEN" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		rep = h.authReply
	case r.Method == http.MethodGet && r.URL.Path == "/builds/123":
		n := int(atomic.AddInt32(&h.buildCalls, 1)) - 1
		if n >= len(h.buildReplies) {
			n = len(h.buildReplies) - 1
		}
		rep = h.buildReplies[n]
		h.lastAuth = r.Header.Get("Authorization")
		h.lastAccept = r.Header.Get("Accept")
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}

	w.WriteHeader(rep.status)
	switch body := rep.body.(type) {
	case nil:
	case string:
		_, _ = w.Write([]byte(body))
	default:
		_ = json.NewEncoder(w).Encode(body)
	}
}

type CommunicatorSuite struct {
	handler *travisHandler
	server  *httptest.Server
	comm    Communicator
	ctx     context.Context
	cancel  context.CancelFunc
	suite.Suite
}

func TestCommunicatorSuite(t *testing.T) {
	suite.Run(t, new(CommunicatorSuite))
}

func (s *CommunicatorSuite) SetupTest() {
	s.handler = &travisHandler{
		authReply: reply{status: http.StatusOK, body: authResponse{AccessToken: "TRAVIS_TOKEN"}},
	}
	s.server = httptest.NewServer(s.handler)
	s.comm = NewCommunicator(Options{EnterpriseURL: s.server.URL, GithubToken: "GITHUB_TOKEN"})
	s.comm.SetRetryOptions(utility.RetryOptions{MaxAttempts: 3, MinDelay: time.Millisecond, MaxDelay: time.Millisecond})
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 30*time.Second)
}

func (s *CommunicatorSuite) TearDownTest() {
	s.cancel()
	s.comm.Close()
	s.server.Close()
}

func (s *CommunicatorSuite) TestGetJobs() {
	s.handler.buildReplies = []reply{{status: http.StatusOK, body: `{"build": {"id": 123}, "jobs": [
		{"id": 1, "number": "9.1", "state": "passed", "config": {"node_js": 8}},
		{"id": 2, "number": "9.2", "state": "started", "allow_failure": true, "config": {"node_js": "lts/*"}}
	]}`}}

	jobs, err := s.comm.GetJobs(s.ctx, 123)
	s.Require().NoError(err)
	s.Require().Len(jobs, 2)
	s.Equal(job.Passed, jobs[0].State)
	s.Equal(job.Specifier("8"), jobs[0].Specifier("node_js"))
	s.True(jobs[1].AllowFailure)
	s.Equal("token TRAVIS_TOKEN", s.handler.lastAuth)
	s.Equal(deployonce.TravisAcceptHeader, s.handler.lastAccept)

	_, err = s.comm.GetJobs(s.ctx, 123)
	s.Require().NoError(err)
	s.EqualValues(1, atomic.LoadInt32(&s.handler.authCalls), "access token should be cached")
	s.EqualValues(2, atomic.LoadInt32(&s.handler.buildCalls))
}

func (s *CommunicatorSuite) TestRetriesServerErrors() {
	s.handler.buildReplies = []reply{
		{status: http.StatusInternalServerError, body: "server error"},
		{status: http.StatusOK, body: buildResponse{Jobs: []job.Job{{ID: 1, Number: "9.1", State: job.Passed}}}},
	}

	jobs, err := s.comm.GetJobs(s.ctx, 123)
	s.Require().NoError(err)
	s.Len(jobs, 1)
	s.EqualValues(2, atomic.LoadInt32(&s.handler.buildCalls))
}

func (s *CommunicatorSuite) TestGivesUpAfterMaxAttempts() {
	s.handler.buildReplies = []reply{{status: http.StatusBadGateway}}

	_, err := s.comm.GetJobs(s.ctx, 123)
	s.Require().Error(err)
	s.Contains(err.Error(), "Response code 502 (Bad Gateway)")
	s.EqualValues(3, atomic.LoadInt32(&s.handler.buildCalls))
}

func (s *CommunicatorSuite) TestClientErrorsAreNotRetried() {
	s.handler.buildReplies = []reply{{status: http.StatusForbidden, body: `{"error": "forbidden"}`}}

	_, err := s.comm.GetJobs(s.ctx, 123)
	s.Require().Error(err)
	s.NotEqual(ErrNotAuthenticated, errors.Cause(err))
	s.EqualValues(1, atomic.LoadInt32(&s.handler.buildCalls))
}

func (s *CommunicatorSuite) TestNotAuthenticated() {
	s.handler.buildReplies = []reply{{status: http.StatusNotFound, body: travisError{File: "not found"}}}

	_, err := s.comm.GetJobs(s.ctx, 123)
	s.Require().Error(err)
	s.Equal(ErrNotAuthenticated, errors.Cause(err))
	s.EqualValues(1, atomic.LoadInt32(&s.handler.buildCalls))
}

func (s *CommunicatorSuite) TestNotAuthenticatedOnTokenExchange() {
	s.handler.authReply = reply{status: http.StatusForbidden, body: travisError{File: "not found"}}

	_, err := s.comm.GetJobs(s.ctx, 123)
	s.Require().Error(err)
	s.Equal(ErrNotAuthenticated, errors.Cause(err))
	s.Zero(atomic.LoadInt32(&s.handler.buildCalls))
}

func (s *CommunicatorSuite) TestMissingGithubToken() {
	comm := NewCommunicator(Options{EnterpriseURL: s.server.URL})
	defer comm.Close()

	_, err := comm.GetJobs(s.ctx, 123)
	s.Require().Error(err)
	s.Equal(deployonce.ErrCredentialMissing, errors.Cause(err))
}

func (s *CommunicatorSuite) TestCanceledContext() {
	s.handler.buildReplies = []reply{{status: http.StatusOK, body: buildResponse{}}}
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	_, err := s.comm.GetJobs(ctx, 123)
	s.Error(err)
}
