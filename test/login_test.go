//go:build integration_test

package test

import (
	"context"
	"net/http"

	"github.com/2beens/trainingboard/internal/auth"
)

func (s *IntegrationTestSuite) TestLogin() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	adminSession, statusCode := s.login(ctx, testAdminUsername, testPassword)
	s.Require().Equal(http.StatusOK, statusCode)
	s.NotEmpty(adminSession.Token)
	s.Equal(auth.RoleAdmin, adminSession.Role)

	clientSession, statusCode := s.login(ctx, testClientUsername, testPassword)
	s.Require().Equal(http.StatusOK, statusCode)
	s.Equal(auth.RoleClient, clientSession.Role)

	_, statusCode = s.login(ctx, testClientUsername, "bad-password")
	s.Equal(http.StatusUnauthorized, statusCode)

	_, statusCode = s.login(ctx, "nobody", testPassword)
	s.Equal(http.StatusUnauthorized, statusCode)

	var whoAmI struct {
		Username string    `json:"username"`
		Role     auth.Role `json:"role"`
	}
	s.getJSON(ctx, "/whoami", clientSession.Token, &whoAmI)
	s.Equal(testClientUsername, whoAmI.Username)
	s.Equal(auth.RoleClient, whoAmI.Role)

	statusCode, _ = s.doRequest(ctx, "GET", "/a/logout", clientSession.Token, nil)
	s.Equal(http.StatusOK, statusCode)

	// token no longer valid
	statusCode, _ = s.doRequest(ctx, "GET", "/whoami", clientSession.Token, nil)
	s.Equal(http.StatusUnauthorized, statusCode)
	statusCode, _ = s.doRequest(ctx, "GET", "/a/logout", clientSession.Token, nil)
	s.Equal(http.StatusUnauthorized, statusCode)
}
