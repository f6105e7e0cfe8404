package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/seabattle/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-i string   JWT issuer claim
//	-u string   JWT audience claim
//	-t int      access token validity, minutes
//	-r int      refresh token validity, days
//	-k string   reCAPTCHA shared secret (empty disables the check)
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers and then converted to
//     time.Duration values.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-i", "-u", "-t", "-r", "-k"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.JWTIssuer, "i", config.JWTIssuer, "JWT issuer claim")
	fs.StringVar(&config.JWTAudience, "u", config.JWTAudience, "JWT audience claim")

	accessTokenValidityMinutes := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidityDays := fs.Int("r", int(config.RefreshTokenValidityDuration.Hours()/24), "refresh_token_validity_duration (in days)")

	fs.StringVar(&config.RecaptchaSecret, "k", config.RecaptchaSecret, "reCAPTCHA shared secret")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityMinutes) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDays) * 24 * time.Hour
}
