//go:build integration_test

package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/2beens/trainingboard/internal/auth"
)

func (s *IntegrationTestSuite) doLogin(ctx context.Context, username string) string {
	t := s.T()
	session, statusCode := s.login(ctx, username, testPassword)
	if statusCode != http.StatusOK {
		t.Fatalf("login %s: unexpected status %d", username, statusCode)
	}
	return session.Token
}

func (s *IntegrationTestSuite) login(ctx context.Context, username, password string) (*auth.Session, int) {
	body, err := json.Marshal(auth.Credentials{
		Username: username,
		Password: password,
	})
	s.Require().NoError(err)

	statusCode, respBytes := s.doRequest(ctx, "POST", "/a/login", "", body)
	if statusCode != http.StatusOK {
		return nil, statusCode
	}

	var session auth.Session
	s.Require().NoError(json.Unmarshal(respBytes, &session))
	return &session, statusCode
}

func (s *IntegrationTestSuite) doRequest(ctx context.Context, method, path, token string, body []byte) (int, []byte) {
	req, err := http.NewRequestWithContext(ctx, method, fmt.Sprintf("%s%s", serverEndpoint, path), bytes.NewReader(body))
	s.Require().NoError(err)
	req.Header.Set("User-Agent", "test-agent")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(auth.TokenHeader, token)
	}

	resp, err := s.httpClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	return resp.StatusCode, respBytes
}

func (s *IntegrationTestSuite) getJSON(ctx context.Context, path, token string, dst any) {
	statusCode, respBytes := s.doRequest(ctx, "GET", path, token, nil)
	s.Require().Equal(http.StatusOK, statusCode, string(respBytes))
	s.Require().NoError(json.Unmarshal(respBytes, dst))
}
