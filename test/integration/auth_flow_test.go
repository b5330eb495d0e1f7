// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ShopNest Contributors

//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/shopnest/userd/internal/auth"
	"github.com/shopnest/userd/internal/auth/memory"
	pgrepo "github.com/shopnest/userd/internal/auth/postgres"
	"github.com/shopnest/userd/internal/httpapi"
	"github.com/shopnest/userd/internal/store"
)

// testEnv holds all the resources needed for integration tests.
type testEnv struct {
	ctx       context.Context
	cancel    context.CancelFunc
	container *postgres.PostgresContainer
	cache     *memory.Cache
	apiServer *httpapi.Server
	baseURL   string
}

// setupTestEnv starts PostgreSQL, migrates the schema, and serves the full
// API stack on a loopback port.
func setupTestEnv() (*testEnv, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)

	env := &testEnv{
		ctx:    ctx,
		cancel: cancel,
	}

	container, err := postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("userd_test"),
		postgres.WithUsername("userd"),
		postgres.WithPassword("userd"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		cancel()
		return nil, err
	}
	env.container = container

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		env.cleanup()
		return nil, err
	}

	migrator, err := store.NewMigrator(connStr)
	if err != nil {
		env.cleanup()
		return nil, err
	}
	upErr := migrator.Up()
	_ = migrator.Close()
	if upErr != nil {
		env.cleanup()
		return nil, upErr
	}

	pool, err := store.Connect(ctx, connStr)
	if err != nil {
		env.cleanup()
		return nil, err
	}

	env.cache = memory.New()
	svc, err := auth.NewService(
		pgrepo.NewIdentityRepository(pool),
		env.cache,
		auth.NewArgon2idHasher(16*1024),
		auth.Config{},
	)
	if err != nil {
		env.cleanup()
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(GinkgoWriter, nil))
	env.apiServer = httpapi.NewServer("127.0.0.1:0", svc, logger)
	if _, err := env.apiServer.Start(); err != nil {
		env.cleanup()
		return nil, err
	}
	env.baseURL = "http://" + env.apiServer.Addr()

	return env, nil
}

// cleanup releases all test resources.
func (env *testEnv) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if env.apiServer != nil {
		_ = env.apiServer.Stop(ctx)
	}
	if env.cache != nil {
		env.cache.Close()
	}
	if env.container != nil {
		_ = env.container.Terminate(ctx)
	}
	env.cancel()
}

func (env *testEnv) postJSON(path string, body any) (*http.Response, map[string]any) {
	payload, err := json.Marshal(body)
	Expect(err).NotTo(HaveOccurred())

	resp, err := http.Post(env.baseURL+path, "application/json", bytes.NewReader(payload))
	Expect(err).NotTo(HaveOccurred())
	return resp, decodeBody(resp)
}

func (env *testEnv) getWithToken(path, token string) (*http.Response, map[string]any) {
	req, err := http.NewRequest(http.MethodGet, env.baseURL+path, nil)
	Expect(err).NotTo(HaveOccurred())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	Expect(err).NotTo(HaveOccurred())
	return resp, decodeBody(resp)
}

func decodeBody(resp *http.Response) map[string]any {
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())

	var body map[string]any
	Expect(json.Unmarshal(raw, &body)).To(Succeed())
	return body
}

var _ = Describe("Authentication flow", Ordered, func() {
	var env *testEnv

	BeforeAll(func() {
		var err error
		env, err = setupTestEnv()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		env.cleanup()
	})

	It("serves health and docs", func() {
		resp, body := env.getWithToken("/health", "")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(body["status"]).To(Equal("healthy"))

		resp, body = env.getWithToken("/api/docs", "")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(body["endpoints"]).NotTo(BeNil())
	})

	It("registers a new account", func() {
		resp, body := env.postJSON("/api/auth/register", map[string]string{
			"email":    "Alice@Example.com",
			"password": "longpw123",
		})
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))
		Expect(body["email"]).To(Equal("alice@example.com"))
		Expect(body["id"]).NotTo(BeEmpty())
	})

	It("rejects a duplicate registration regardless of case", func() {
		resp, body := env.postJSON("/api/auth/register", map[string]string{
			"email":    "ALICE@example.com",
			"password": "differentpw",
		})
		Expect(resp.StatusCode).To(Equal(http.StatusConflict))
		Expect(body["error"]).To(Equal("email is already registered"))
	})

	It("logs in and validates the issued token", func() {
		resp, body := env.postJSON("/api/auth/login", map[string]string{
			"email":    "alice@example.com",
			"password": "longpw123",
		})
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		token, ok := body["token"].(string)
		Expect(ok).To(BeTrue())
		Expect(token).NotTo(BeEmpty())

		resp, body = env.getWithToken("/api/users/me", token)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(body["identity_id"]).NotTo(BeEmpty())
	})

	It("rejects a wrong password and an unknown account identically", func() {
		resp1, body1 := env.postJSON("/api/auth/login", map[string]string{
			"email":    "alice@example.com",
			"password": "wrongpw99",
		})
		resp2, body2 := env.postJSON("/api/auth/login", map[string]string{
			"email":    "nobody@example.com",
			"password": "longpw123",
		})
		Expect(resp1.StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(resp2.StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(body1["error"]).To(Equal(body2["error"]))
	})

	It("rejects a forged bearer token", func() {
		resp, _ := env.getWithToken("/api/users/me", fmt.Sprintf("%064d", 0))
		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
	})
})
