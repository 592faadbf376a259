package app

import (
	"net/http"

	"github.com/cradoe/lenda/internal/handler"
	"github.com/cradoe/lenda/internal/middleware"
)

func (app *Application) routes() http.Handler {
	mux := http.NewServeMux()

	middlewareRepo := middleware.New(app.ErrorHandler, app.Logger, app.DB.User(), &app.Config)

	healthHandler := handler.NewHealthCheckHandler(app.ErrorHandler)

	authHandler := handler.NewAuthHandler(&handler.AuthHandler{
		DB:         app.DB,
		Wallets:    app.Ledger,
		Blacklist:  app.Blacklist,
		Mailer:     app.Mailer,
		Helper:     app.Helper,
		ErrHandler: app.ErrorHandler,
		Config:     &app.Config,
	})

	walletHandler := handler.NewWalletHandler(&handler.WalletHandler{
		Ledger:     app.Ledger,
		ErrHandler: app.ErrorHandler,
	})

	mux.HandleFunc("GET /status", healthHandler.HandleHealthCheck)

	mux.HandleFunc("POST /users", authHandler.HandleAuthRegister)
	mux.HandleFunc("POST /auth/login", authHandler.HandleAuthLogin)

	// the funding endpoint identifies the wallet by id in the request body,
	// the rest operate on the authenticated user's own wallet
	mux.Handle("POST /wallets/fund", middlewareRepo.RequireAuthenticatedUser(http.HandlerFunc(walletHandler.HandleFundWallet)))
	mux.Handle("POST /wallets/withdraw", middlewareRepo.RequireAuthenticatedUser(http.HandlerFunc(walletHandler.HandleWithdraw)))
	mux.Handle("GET /wallets/balance", middlewareRepo.RequireAuthenticatedUser(http.HandlerFunc(walletHandler.HandleWalletBalance)))
	mux.Handle("GET /wallets/transactions", middlewareRepo.RequireAuthenticatedUser(http.HandlerFunc(walletHandler.HandleWalletTransactions)))

	return middlewareRepo.LogAccess(middlewareRepo.RecoverPanic(middlewareRepo.Authenticate(mux)))
}
