package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"account-ledger/internal/config"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		Remaining string `json:"remaining"`
		Balance   string `json:"balance"`
		Requested string `json:"requested"`
	} `json:"error"`
}

type ServerTestSuite struct {
	suite.Suite
	server *Server
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func (s *ServerTestSuite) SetupTest() {
	cfg := &config.Config{
		StoreDriver: config.StoreDriverMemory,
		PinHasher:   "sha256",
		JWTSecret:   "test-secret",
		TokenTTL:    time.Hour,
		ServerPort:  "0",
	}
	srv, err := NewServer(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.Require().NoError(err)
	s.server = srv
}

func (s *ServerTestSuite) TestNewServerRequiresJWTSecret() {
	cfg := &config.Config{
		StoreDriver: config.StoreDriverMemory,
		TokenTTL:    time.Hour,
		ServerPort:  "0",
	}
	_, err := NewServer(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.Error(err)
}

func (s *ServerTestSuite) do(method, path, token string, body interface{}) (int, envelope) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.server.GetRouter().ServeHTTP(rec, req)

	var env envelope
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func (s *ServerTestSuite) openAndLogin(name, pin string) (int64, string) {
	status, env := s.do("POST", "/accounts", "", map[string]string{"name": name, "pin": pin})
	s.Require().Equal(http.StatusCreated, status)
	var created struct {
		AccountNumber int64 `json:"account_number"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &created))

	status, env = s.do("POST", "/login", "", map[string]interface{}{"account_number": created.AccountNumber, "pin": pin})
	s.Require().Equal(http.StatusOK, status)
	var login struct {
		Token   string `json:"token"`
		Account struct {
			Name    string `json:"name"`
			Balance string `json:"balance"`
		} `json:"account"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &login))
	s.Equal(name, login.Account.Name)
	s.Equal("0.00", login.Account.Balance)
	s.Require().NotEmpty(login.Token)
	return created.AccountNumber, login.Token
}

func balanceOf(s *ServerTestSuite, env envelope) string {
	var out struct {
		Balance string `json:"balance"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &out))
	return out.Balance
}

func (s *ServerTestSuite) TestLedgerFlow() {
	alice, aliceToken := s.openAndLogin("Alice", "1234")
	bob, _ := s.openAndLogin("Bob", "5678")
	base := fmt.Sprintf("/accounts/%d", alice)

	status, env := s.do("POST", base+"/deposits", aliceToken, map[string]string{"amount": "500"})
	s.Require().Equal(http.StatusOK, status)
	s.Equal("500.00", balanceOf(s, env))

	status, env = s.do("POST", base+"/withdrawals", aliceToken, map[string]string{"amount": "50"})
	s.Require().Equal(http.StatusOK, status)
	s.Equal("448.00", balanceOf(s, env))

	status, env = s.do("POST", base+"/transfers", aliceToken, map[string]interface{}{"to_account_number": bob, "amount": "100.25"})
	s.Require().Equal(http.StatusOK, status)
	s.Equal("347.75", balanceOf(s, env))

	status, env = s.do("GET", base+"/balance", aliceToken, nil)
	s.Require().Equal(http.StatusOK, status)
	s.Equal("347.75", balanceOf(s, env))

	status, env = s.do("GET", base+"/transactions", aliceToken, nil)
	s.Require().Equal(http.StatusOK, status)
	var history []struct {
		TransactionType     string `json:"transaction_type"`
		Amount              string `json:"amount"`
		TargetAccountNumber *int64 `json:"target_account_number"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &history))
	s.Require().Len(history, 4)
	s.Equal("TRANSFER", history[0].TransactionType)
	s.Require().NotNil(history[0].TargetAccountNumber)
	s.Equal(bob, *history[0].TargetAccountNumber)
	s.Equal("FEE", history[1].TransactionType)
	s.Equal("2.00", history[1].Amount)
	s.Equal("WITHDRAWAL", history[2].TransactionType)
	s.Equal("DEPOSIT", history[3].TransactionType)
}

func (s *ServerTestSuite) TestErrorContextIsRendered() {
	alice, token := s.openAndLogin("Alice", "1234")
	base := fmt.Sprintf("/accounts/%d", alice)

	status, env := s.do("POST", base+"/withdrawals", token, map[string]string{"amount": "10"})
	s.Equal(http.StatusUnprocessableEntity, status)
	s.Require().NotNil(env.Error)
	s.Equal("insufficient_funds", env.Error.Code)
	s.Equal("0.00", env.Error.Balance)
	s.Equal("12.00", env.Error.Requested)

	status, env = s.do("POST", base+"/deposits", token, map[string]string{"amount": "-1"})
	s.Equal(http.StatusBadRequest, status)
	s.Equal("invalid_amount", env.Error.Code)

	status, env = s.do("POST", base+"/deposits", token, map[string]string{"amount": "ten"})
	s.Equal(http.StatusBadRequest, status)
	s.Equal("invalid_amount", env.Error.Code)

	status, env = s.do("POST", base+"/deposits", token, map[string]string{"amount": "6000"})
	s.Require().Equal(http.StatusOK, status)
	status, env = s.do("POST", base+"/withdrawals", token, map[string]string{"amount": "5000.01"})
	s.Equal(http.StatusUnprocessableEntity, status)
	s.Equal("transaction_limit_exceeded", env.Error.Code)
	s.Equal("5000.00", env.Error.Remaining)
}

func (s *ServerTestSuite) TestSessionIsRequiredAndScoped() {
	alice, _ := s.openAndLogin("Alice", "1234")
	_, bobToken := s.openAndLogin("Bob", "5678")
	path := fmt.Sprintf("/accounts/%d/balance", alice)

	status, env := s.do("GET", path, "", nil)
	s.Equal(http.StatusUnauthorized, status)
	s.Equal("unauthorized", env.Error.Code)

	status, env = s.do("GET", path, "garbage", nil)
	s.Equal(http.StatusUnauthorized, status)
	s.Equal("unauthorized", env.Error.Code)

	status, env = s.do("GET", path, bobToken, nil)
	s.Equal(http.StatusForbidden, status)
	s.Equal("forbidden", env.Error.Code)
}

func (s *ServerTestSuite) TestLoginFailures() {
	alice, _ := s.openAndLogin("Alice", "1234")

	status, wrongPin := s.do("POST", "/login", "", map[string]interface{}{"account_number": alice, "pin": "0000"})
	s.Equal(http.StatusUnauthorized, status)

	status, unknown := s.do("POST", "/login", "", map[string]interface{}{"account_number": 111111111111, "pin": "1234"})
	s.Equal(http.StatusUnauthorized, status)

	s.Equal("auth_failed", wrongPin.Error.Code)
	s.Equal(wrongPin.Error.Message, unknown.Error.Message)
}

func (s *ServerTestSuite) TestCreateAccountValidation() {
	status, env := s.do("POST", "/accounts", "", map[string]string{"name": "Alice", "pin": "12"})
	s.Equal(http.StatusBadRequest, status)
	s.Equal("validation_error", env.Error.Code)

	status, env = s.do("POST", "/accounts", "", map[string]string{"name": "", "pin": "1234"})
	s.Equal(http.StatusBadRequest, status)
	s.Equal("validation_error", env.Error.Code)
}

func (s *ServerTestSuite) TestHealth() {
	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	s.server.GetRouter().ServeHTTP(rec, req)

	s.Equal(http.StatusOK, rec.Code)
	var body map[string]string
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal("healthy", body["status"])
}
