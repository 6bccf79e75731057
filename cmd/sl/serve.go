package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"stageline/internal/app"
	"stageline/internal/server"
)

func serveCmd() *cobra.Command {
	var addr, basePath, adminEmail string
	var devLogin bool
	var tokenTTL time.Duration
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		Long:  "Serves the REST API, OpenAPI document and Swagger UI, and delivers events to configured webhooks.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				authCfg := server.AuthConfig{
					JWTSecret: viper.GetString("jwt-secret"),
					DevLogin:  devLogin,
					TokenTTL:  tokenTTL,
				}
				if authCfg.JWTSecret == "" {
					return fmt.Errorf("STAGELINE_JWT_SECRET (or --jwt-secret) is required for bearer auth")
				}
				if adminEmail != "" {
					if _, _, err := a.SeedAdmin(ctx, adminEmail, ""); err != nil {
						return err
					}
				}
				if !cmd.Flags().Changed("addr") && a.Config.Server.Addr != "" {
					addr = a.Config.Server.Addr
				}
				if !cmd.Flags().Changed("base-path") && a.Config.Server.BasePath != "" {
					basePath = a.Config.Server.BasePath
				}
				handler, err := server.New(server.Config{
					Engine:   a.Engine,
					BasePath: basePath,
					Auth:     authCfg,
					Logger:   a.Log,
				})
				if err != nil {
					return err
				}
				server.StartWebhookDispatcher(ctx, a.Engine, a.Log)

				srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				a.Log.Info("serving Stageline API", "url", fmt.Sprintf("http://%s%s", addr, basePath), "openapi", basePath+"/openapi.json", "docs", "/docs", "dev_login", devLogin)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address (defaults to server.addr)")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path (defaults to server.base_path)")
	cmd.Flags().String("jwt-secret", "", "HS256 secret for bearer tokens")
	cmd.Flags().BoolVar(&devLogin, "dev-login", false, "expose POST /auth/dev/login (development only)")
	cmd.Flags().DurationVar(&tokenTTL, "token-ttl", 12*time.Hour, "lifetime of tokens minted by dev login")
	cmd.Flags().StringVar(&adminEmail, "admin-email", "", "seed this admin when the workspace has no users")
	_ = viper.BindPFlag("jwt-secret", cmd.Flags().Lookup("jwt-secret"))
	return cmd
}
