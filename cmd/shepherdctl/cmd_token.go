package main

import (
	"fmt"
	"time"

	"github.com/forgo/shepherd/api/pkg/jwt"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
)

// tokenOutput is the --json shape of a minted token
type tokenOutput struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	Role        string `json:"role"`
}

func newTokenCmd(a *app) *cobra.Command {
	var (
		keyPath    string
		userID     string
		email      string
		role       string
		expMins    int
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for local API calls",
		Long: `Signs an access token with the configured private key. The user id should
name a real user record; role checks on staff and admin routes re-read it.

Example:
  shepherdctl token --user user:pastor --email pastor@church.org --role admin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch role {
			case jwt.RoleMember, jwt.RoleStaff, jwt.RoleAdmin:
			default:
				return fmt.Errorf("role must be member, staff or admin, got %q", role)
			}
			if expMins <= 0 {
				return fmt.Errorf("exp must be positive")
			}
			if keyPath == "" {
				keyPath = a.cfg.JWT.PrivateKeyPath
			}

			svc, err := jwt.NewService(jwt.Config{
				PrivateKeyPath: keyPath,
				Issuer:         a.cfg.JWT.Issuer,
				ExpirationMins: expMins,
			})
			if err != nil {
				return fmt.Errorf("%w (generate keys with: shepherdctl keys)", err)
			}

			expires := time.Now().Add(time.Duration(expMins) * time.Minute)
			token, err := svc.Sign(jwt.Claims{
				RegisteredClaims: gojwt.RegisteredClaims{ExpiresAt: gojwt.NewNumericDate(expires)},
				UserID:           userID,
				Email:            email,
				Name:             "Shepherd Operator",
				Role:             role,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outputJSON {
				return writeJSON(out, tokenOutput{
					AccessToken: token,
					TokenType:   "Bearer",
					ExpiresIn:   expMins * 60,
					UserID:      userID,
					Email:       email,
					Role:        role,
				})
			}

			fmt.Fprintln(out, "Access Token Generated")
			fmt.Fprintln(out, "======================")
			fmt.Fprintf(out, "User ID:  %s\n", userID)
			fmt.Fprintf(out, "Email:    %s\n", email)
			fmt.Fprintf(out, "Role:     %s\n", role)
			fmt.Fprintf(out, "Expires:  %s\n", expires.Format(time.RFC3339))
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Token:")
			fmt.Fprintln(out, token)
			return nil
		},
	}

	cmd.Flags().StringVar(&keyPath, "key", "", "Private key path (default JWT_PRIVATE_KEY_PATH)")
	cmd.Flags().StringVar(&userID, "user", "user:admin", "User record id for the token")
	cmd.Flags().StringVar(&email, "email", "admin@shepherd.local", "Email for the token")
	cmd.Flags().StringVar(&role, "role", jwt.RoleAdmin, "Role: member, staff or admin")
	cmd.Flags().IntVar(&expMins, "exp", 60*24*7, "Token lifetime in minutes")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "Output as JSON")
	return cmd
}
