package api

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/sharecycle/sharecycle/internal/auth"
	"github.com/sharecycle/sharecycle/internal/exchange"
	"github.com/sharecycle/sharecycle/internal/model"
	"github.com/sharecycle/sharecycle/internal/notify"
	"github.com/sharecycle/sharecycle/internal/store"
)

// NewRouter creates the API router with all endpoints registered. notifier
// may be nil, in which case lifecycle events are not delivered.
func NewRouter(db *sql.DB, jwtSecret string, notifier notify.Notifier) http.Handler {
	mux := http.NewServeMux()

	engine := exchange.New(db, notifier)
	verifier := &auth.JWTVerifier{
		Secret: jwtSecret,
		Revoked: func(ctx context.Context, jti string) (bool, error) {
			return store.IsTokenRevoked(ctx, db, jti)
		},
		Active: func(ctx context.Context, userID int64) (bool, error) {
			return store.IsUserActive(ctx, db, userID)
		},
	}

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	usersHandler := &UsersHandler{DB: db}
	itemsHandler := &ItemsHandler{DB: db, Engine: engine}
	exchangeHandler := &RequestsHandler{Engine: engine, Kind: model.KindExchange}
	donationHandler := &RequestsHandler{Engine: engine, Kind: model.KindDonation}
	chatsHandler := &ChatsHandler{Engine: engine}
	notificationsHandler := &NotificationsHandler{DB: db}
	statsHandler := &StatisticsHandler{DB: db}
	if r, ok := notifier.(notify.UnreadResetter); ok {
		notificationsHandler.Unread = r
	}

	authMW := AuthMiddleware(verifier)
	optionalAuth := OptionalAuth(verifier)
	requireAdmin := RequireRole(model.RoleAdmin)
	authed := func(h http.HandlerFunc) http.Handler { return authMW(h) }

	// Public.
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /api/items", itemsHandler.List)
	mux.Handle("GET /api/items/{id}", optionalAuth(http.HandlerFunc(itemsHandler.Get)))
	mux.Handle("GET /api/items/{id}/{sub}", optionalAuth(http.HandlerFunc(itemsHandler.Subresource)))
	mux.HandleFunc("GET /api/statistics", statsHandler.Get)
	mux.HandleFunc("GET /api/donations/statistics", statsHandler.Donations)
	mux.HandleFunc("GET /healthz", statsHandler.Health)

	// Account.
	mux.Handle("POST /api/auth/logout", authed(authHandler.Logout))
	mux.Handle("PUT /api/auth/password", authed(authHandler.ChangePassword))
	mux.Handle("GET /api/profile", authed(usersHandler.Profile))
	mux.Handle("PUT /api/profile", authed(usersHandler.UpdateProfile))
	mux.Handle("GET /api/profile/items", authed(usersHandler.ProfileItems))
	mux.Handle("GET /api/profile/exchange-history", authed(exchangeHandler.History))
	mux.Handle("GET /api/donations/my-donations", authed(donationHandler.History))

	// Listings.
	mux.Handle("POST /api/items", authed(itemsHandler.Create))
	mux.Handle("PUT /api/items/{id}", authed(itemsHandler.Update))
	mux.Handle("DELETE /api/items/{id}", authed(itemsHandler.Delete))
	mux.Handle("PUT /api/items/{id}/image", authed(itemsHandler.UploadImage))

	// Exchange requests.
	mux.Handle("POST /api/exchange", authed(exchangeHandler.Create))
	mux.Handle("GET /api/exchange/my-requests", authed(exchangeHandler.Mine))
	mux.Handle("GET /api/exchange/{id}", authed(exchangeHandler.Get))
	mux.Handle("POST /api/exchange/{id}/accept-owner", authed(exchangeHandler.AcceptOwner))
	mux.Handle("POST /api/exchange/{id}/accept-requester", authed(exchangeHandler.AcceptRequester))
	mux.Handle("POST /api/exchange/{id}/reject", authed(exchangeHandler.Reject))
	mux.Handle("POST /api/exchange/chat/{chatId}/accept", authed(chatsHandler.Accept))
	mux.Handle("POST /api/exchange/chat/{chatId}/reject", authed(chatsHandler.Reject))
	mux.Handle("POST /api/exchange/chat/{chatId}/finalize", authed(chatsHandler.Finalize))

	// Donation requests.
	mux.Handle("POST /api/donation-requests", authed(donationHandler.Create))
	mux.Handle("GET /api/donation-requests/my/requests", authed(donationHandler.Mine))
	mux.Handle("GET /api/donation-requests/{id}", authed(donationHandler.Get))
	mux.Handle("POST /api/donation-requests/{id}/accept-owner", authed(donationHandler.AcceptOwner))
	mux.Handle("POST /api/donation-requests/{id}/accept-requester", authed(donationHandler.AcceptRequester))
	mux.Handle("POST /api/donation-requests/{id}/reject", authed(donationHandler.Reject))

	// Chats.
	mux.Handle("GET /api/chats", authed(chatsHandler.List))
	mux.Handle("GET /api/chats/{chatId}", authed(chatsHandler.Get))
	mux.Handle("GET /api/chats/{chatId}/messages", authed(chatsHandler.Messages))
	mux.Handle("POST /api/chats/{chatId}/messages", authed(chatsHandler.PostMessage))
	mux.Handle("POST /api/chats/{chatId}/confirm", authed(chatsHandler.Confirm))
	mux.Handle("PATCH /api/chats/{chatId}/accept", authed(chatsHandler.Accept))
	mux.Handle("PATCH /api/chats/{chatId}/decline", authed(chatsHandler.Reject))

	// Notifications.
	mux.Handle("GET /api/notifications", authed(notificationsHandler.List))
	mux.Handle("GET /api/notifications/unread-count", authed(notificationsHandler.UnreadCount))
	mux.Handle("POST /api/notifications/read", authed(notificationsHandler.MarkAllRead))
	mux.Handle("POST /api/notifications/{id}/read", authed(notificationsHandler.MarkRead))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	return mux
}
