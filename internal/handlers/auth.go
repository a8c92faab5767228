package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/zidesign/catalog/internal/services"
	"github.com/zidesign/catalog/types"
)

const defaultTokenTTL = 7 * 24 * time.Hour

const (
	actionRegister      = "register"
	actionLogin         = "login"
	actionUpdateProfile = "update_profile"
)

// AuthHandler serves the action-dispatched auth endpoint and resolves
// bearer tokens into actors for other routers.
type AuthHandler struct {
	userService *services.UserService
	secret      []byte
	tokenTTL    time.Duration
	log         logrus.FieldLogger
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, jwtSecret string, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		secret:      []byte(jwtSecret),
		tokenTTL:    defaultTokenTTL,
		log:         log,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, handler *AuthHandler) {
	r.Post("/", handler.Dispatch)
	r.With(handler.RequireActor).Get("/me", handler.Me)
}

// AuthRequest is the body of POST /auth. Which fields matter depends on
// Action.
type AuthRequest struct {
	Action   string  `json:"action"`
	Email    string  `json:"email"`
	Name     *string `json:"name,omitempty"`
	Password string  `json:"password,omitempty"`
	UserID   string  `json:"user_id,omitempty"`
	Bio      *string `json:"bio,omitempty"`
	Avatar   *string `json:"avatar,omitempty"`
}

type AuthResponse struct {
	User  types.User `json:"user"`
	Token string     `json:"token"`
}

// Dispatch routes POST /auth by its action field.
func (h *AuthHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	var req AuthRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case actionRegister:
		h.register(w, r, req)
	case actionLogin:
		h.login(w, r, req)
	case actionUpdateProfile:
		h.updateProfile(w, r, req)
	default:
		writeError(w, http.StatusBadRequest, types.ErrorCode(types.ErrValidation), "invalid action")
	}
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request, req AuthRequest) {
	in := types.RegisterInput{Email: req.Email, Password: req.Password}
	if req.Name != nil {
		in.Name = *req.Name
	}
	user, err := h.userService.Register(r.Context(), in)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	h.writeSession(w, http.StatusCreated, user)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request, req AuthRequest) {
	user, err := h.userService.Login(r.Context(), types.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	h.writeSession(w, http.StatusOK, user)
}

func (h *AuthHandler) updateProfile(w http.ResponseWriter, r *http.Request, req AuthRequest) {
	actor, err := h.authenticate(r)
	if err != nil {
		writeUnauthenticated(w)
		return
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = actor.ID
	}
	user, err := h.userService.UpdateProfile(r.Context(), actor, userID, types.ProfileUpdate{
		Name:   req.Name,
		Bio:    req.Bio,
		Avatar: req.Avatar,
	})
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	h.writeSession(w, http.StatusOK, user)
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeUnauthenticated(w)
		return
	}
	writeJSON(w, http.StatusOK, actor)
}

func (h *AuthHandler) writeSession(w http.ResponseWriter, status int, user types.User) {
	token, err := issueToken(user.ID, h.secret, h.tokenTTL)
	if err != nil {
		h.log.WithError(err).Error("failed to sign token")
		writeError(w, http.StatusInternalServerError, types.ErrorCode(err), "failed to create token")
		return
	}
	writeJSON(w, status, AuthResponse{User: user, Token: token})
}

// RequireActor enforces JWT authentication and injects both the token
// subject and the stored user into the request context.
func (h *AuthHandler) RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := h.authenticate(r)
		if err != nil {
			writeUnauthenticated(w)
			return
		}
		ctx := context.WithValue(r.Context(), contextSubjectKey, actor.ID)
		ctx = context.WithValue(ctx, contextActorKey, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authenticate resolves the bearer token to a stored user. Roles are
// always read from storage, never from the request.
func (h *AuthHandler) authenticate(r *http.Request) (types.User, error) {
	tokenString, err := bearerToken(r)
	if err != nil {
		return types.User{}, err
	}
	subject, err := parseTokenSubject(tokenString, h.secret)
	if err != nil {
		return types.User{}, err
	}
	user, err := h.userService.GetByID(r.Context(), subject)
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			h.log.WithError(err).Warn("failed to load token subject")
		}
		return types.User{}, err
	}
	return user, nil
}

func issueToken(userID string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func parseTokenSubject(tokenString string, secret []byte) (string, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("missing subject")
	}
	return claims.Subject, nil
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
