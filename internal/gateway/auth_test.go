package gateway_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/tenacious60/aquahealthmonitor/internal/gateway"
)

var _ = Describe("Authenticator", func() {
	var (
		logger *slog.Logger
		auth   *gateway.Authenticator
		ctx    context.Context
	)

	BeforeEach(func() {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
		ctx = context.Background()

		var err error
		auth, err = gateway.NewAuthenticator(&gorm.DB{}, logger, "test-secret", nil)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewAuthenticator", func() {
		It("should return error when database is nil", func() {
			a, err := gateway.NewAuthenticator(nil, logger, "secret", nil)
			Expect(err).To(HaveOccurred())
			Expect(a).To(BeNil())
		})

		It("should return error when the signing secret is empty", func() {
			a, err := gateway.NewAuthenticator(&gorm.DB{}, logger, "", nil)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("secret"))
			Expect(a).To(BeNil())
		})
	})

	Describe("Signup", func() {
		It("should reject an empty phone", func() {
			user, err := auth.Signup(ctx, "", "password", "Asha Worker")
			Expect(err).To(MatchError(gateway.ErrInvalidCredentials))
			Expect(user).To(BeNil())
		})

		It("should reject an empty password", func() {
			user, err := auth.Signup(ctx, "9999900000", "", "Asha Worker")
			Expect(err).To(MatchError(gateway.ErrInvalidCredentials))
			Expect(user).To(BeNil())
		})
	})

	Describe("VerifyToken", func() {
		It("should reject a malformed token", func() {
			user, err := auth.VerifyToken(ctx, "not-a-token")
			Expect(err).To(MatchError(gateway.ErrInvalidToken))
			Expect(user).To(BeNil())
		})

		It("should reject a token signed with a different secret", func() {
			forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
				"sub": "user-1",
				"exp": time.Now().Add(time.Hour).Unix(),
			})
			token, err := forged.SignedString([]byte("other-secret"))
			Expect(err).NotTo(HaveOccurred())

			user, err := auth.VerifyToken(ctx, token)
			Expect(err).To(MatchError(gateway.ErrInvalidToken))
			Expect(user).To(BeNil())
		})

		It("should reject a token signed with an unexpected algorithm", func() {
			unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
				"sub": "user-1",
				"exp": time.Now().Add(time.Hour).Unix(),
			})
			token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
			Expect(err).NotTo(HaveOccurred())

			user, err := auth.VerifyToken(ctx, token)
			Expect(err).To(MatchError(gateway.ErrInvalidToken))
			Expect(user).To(BeNil())
		})
	})

	Describe("Middleware", func() {
		var handler http.Handler

		BeforeEach(func() {
			handler = auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
		})

		It("should reject requests without a bearer token", func() {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)

			handler.ServeHTTP(rec, req)
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})

		It("should reject requests with a garbage token", func() {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
			req.Header.Set("Authorization", "Bearer garbage")

			handler.ServeHTTP(rec, req)
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})
	})

	Describe("UserFromContext", func() {
		It("should return nil for an anonymous context", func() {
			Expect(gateway.UserFromContext(context.Background())).To(BeNil())
		})
	})
})
