package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/npezzotti/go-chatlive/internal/database"
	"github.com/npezzotti/go-chatlive/internal/types"
	"golang.org/x/crypto/bcrypt"
)

var (
	defaultJwtExpiration = time.Hour * 24 * 30
	tokenCookieKey       = "token"
)

const (
	userIdClaim = "user-id"
	expClaim    = "exp"
)

type contextKey string

const userIdKey contextKey = "user-id"

func WithUserId(ctx context.Context, userId int) context.Context {
	return context.WithValue(ctx, userIdKey, userId)
}

func UserId(ctx context.Context) (int, bool) {
	userId, ok := ctx.Value(userIdKey).(int)

	return userId, ok
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Image    string `json:"image"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse is the caller's profile plus a bearer token for clients
// that cannot use the cookie.
type SessionResponse struct {
	types.User
	Token string `json:"token"`
}

func (s *GoChatApp) createAccount(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !s.readJson(w, r, &req) {
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" || req.Password == "" {
		errResp := newBadRequest("please enter all the fields")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	_, err := s.db.GetUserByEmail(r.Context(), req.Email)
	switch {
	case err == nil:
		errResp := newBadRequest("user already exists")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	case !errors.Is(err, database.ErrNotFound):
		s.writeError(w, err)
		return
	}

	pwdHash, err := hashPassword(req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}

	dbUser, err := s.db.CreateUser(r.Context(), database.CreateUserParams{
		Name:         req.Name,
		EmailAddress: req.Email,
		Phone:        strings.TrimSpace(req.Phone),
		Image:        req.Image,
		PasswordHash: pwdHash,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.startSession(w, http.StatusCreated, dbUser)
}

func (s *GoChatApp) login(w http.ResponseWriter, r *http.Request) {
	var lr LoginRequest
	if !s.readJson(w, r, &lr) {
		return
	}

	if lr.Email == "" || lr.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbUser, err := s.db.GetUserByEmail(r.Context(), strings.ToLower(strings.TrimSpace(lr.Email)))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			// same response as a bad password
			errResp := NewUnauthorizedError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
		s.writeError(w, err)
		return
	}

	if !verifyPassword(dbUser.PasswordHash, lr.Password) {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.startSession(w, http.StatusOK, dbUser)
}

func (s *GoChatApp) startSession(w http.ResponseWriter, status int, dbUser database.User) {
	token, err := s.createJwtForSession(dbUser.Id, defaultJwtExpiration)
	if err != nil {
		s.writeError(w, err)
		return
	}

	http.SetCookie(w, createJwtCookie(token, defaultJwtExpiration))

	s.writeJson(w, status, SessionResponse{
		User: types.User{
			Id:           dbUser.Id,
			Name:         dbUser.Name,
			EmailAddress: dbUser.EmailAddress,
			Phone:        dbUser.Phone,
			Status:       dbUser.Status,
			Image:        dbUser.Image,
			CreatedAt:    dbUser.CreatedAt,
			UpdatedAt:    dbUser.UpdatedAt,
		},
		Token: token,
	})
}

func (s *GoChatApp) session(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	u, err := s.chats.Profile(r.Context(), userId)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, u)
}

func (s *GoChatApp) logout(w http.ResponseWriter, _ *http.Request) {
	// instruct browser to delete cookie by overwriting it with an expired token
	http.SetCookie(w, createJwtCookie("", -time.Hour))
	w.WriteHeader(http.StatusNoContent)
}

func createJwtCookie(tokenString string, exp time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     tokenCookieKey,
		Value:    tokenString,
		Path:     "/",
		Expires:  time.Now().Add(exp),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

func hashPassword(passwd string) (string, error) {
	passwdHash, err := bcrypt.GenerateFromPassword([]byte(passwd), bcrypt.DefaultCost)
	return string(passwdHash), err
}

func verifyPassword(passwdHash, passwd string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(passwdHash), []byte(passwd))
	return err == nil
}

func (s *GoChatApp) createJwtForSession(userId int, exp time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		userIdClaim: userId,
		expClaim:    time.Now().Add(exp).Unix(),
	})

	return token.SignedString(s.signingKey)
}

func (s *GoChatApp) verifyToken(tokenString string) (*jwt.Token, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return token, nil
}

func (s *GoChatApp) extractUserIdFromToken(tokenString string) (int, error) {
	token, err := s.verifyToken(tokenString)
	if err != nil {
		return 0, fmt.Errorf("verify token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, fmt.Errorf("invalid token claims")
	}

	userId, ok := claims[userIdClaim].(float64)
	if !ok {
		return 0, fmt.Errorf("invalid user id claim")
	}

	return int(userId), nil
}

// tokenFromRequest prefers the session cookie and falls back to a bearer
// token.
func tokenFromRequest(r *http.Request) (string, bool) {
	if c, err := r.Cookie(tokenCookieKey); err == nil && c.Value != "" {
		return c.Value, true
	}

	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}
