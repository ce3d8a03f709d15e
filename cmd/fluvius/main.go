// Package main provides the entry point for the Fluvius consumption client.
// It obtains a bearer token via the browser-less login flow (or reuses one
// supplied on the command line), downloads metered consumption history, saves
// the raw response, and prints a per-day analysis.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/gvnuland/Fluvius-API/internal/auth/fluvius"
	"github.com/gvnuland/Fluvius-API/internal/config"
	"github.com/gvnuland/Fluvius-API/internal/logging"
	"github.com/gvnuland/Fluvius-API/internal/meter"
	"github.com/gvnuland/Fluvius-API/internal/util"
)

func init() {
	logging.SetupBaseLogger()
}

// envOr returns the environment value for key, or fallback when unset. Used
// as flag defaults so that explicit flags take precedence over environment.
func envOr(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func main() {
	os.Exit(run())
}

func run() int {
	// Load environment variables from .env if present.
	if errLoad := godotenv.Load(); errLoad != nil && !errors.Is(errLoad, os.ErrNotExist) {
		log.WithError(errLoad).Warn("failed to load .env file")
	}

	var configPath string
	flag.StringVar(&configPath, "config", "", "Optional YAML config file path")

	var (
		email       = flag.String("email", envOr("FLUVIUS_LOGIN", ""), "Fluvius account email")
		password    = flag.String("password", envOr("FLUVIUS_PASSWORD", ""), "Fluvius account password")
		ean         = flag.String("ean", envOr("FLUVIUS_EAN", ""), "EAN number for the meter")
		meterSerial = flag.String("meter-serial", envOr("FLUVIUS_METER_SERIAL", ""), "Meter serial number")
		daysBack    = flag.Int("days-back", 0, "How many days of history to request (default 7)")
		rememberMe  = flag.Bool("remember-me", false, "Forward rememberMe flag during login")
		timezone    = flag.String("timezone", envOr("FLUVIUS_TIMEZONE", ""), "IANA timezone for the history range (default Europe/Brussels)")
		granularity = flag.String("granularity", envOr("FLUVIUS_GRANULARITY", ""), "API granularity value (3=quarter-hour, 4=daily)")
		bearerToken = flag.String("bearer-token", "", "Skip authentication and reuse an existing Bearer token")
		output      = flag.String("output", "", "Path to store the raw JSON response")
		proxyURL    = flag.String("proxy-url", envOr("FLUVIUS_PROXY", ""), "Proxy URL (socks5/http/https)")
		quiet       = flag.Bool("quiet", false, "Reduce log noise")
		debug       = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Errorf("failed to load config: %v", err)
		return 1
	}

	// Flags (with env-derived defaults) override file values when set.
	applyString(&cfg.Email, *email)
	applyString(&cfg.Password, *password)
	applyString(&cfg.EAN, *ean)
	applyString(&cfg.MeterSerial, *meterSerial)
	applyString(&cfg.Timezone, *timezone)
	applyString(&cfg.Granularity, *granularity)
	applyString(&cfg.BearerToken, *bearerToken)
	applyString(&cfg.Output, *output)
	applyString(&cfg.ProxyURL, *proxyURL)
	if *daysBack > 0 {
		cfg.DaysBack = *daysBack
	}
	cfg.RememberMe = cfg.RememberMe || *rememberMe
	cfg.Quiet = cfg.Quiet || *quiet
	cfg.Debug = cfg.Debug || *debug

	util.SetLogLevel(cfg)
	logging.ConfigureLogOutput(cfg)

	if err = cfg.Validate(); err != nil {
		log.Error(err)
		return 1
	}

	accessToken, err := requestAccessToken(cfg)
	if err != nil {
		if fluvius.Retryable(err) {
			log.Warnf("authentication failed with a retryable error, retrying once: %v", err)
			time.Sleep(2 * time.Second)
			accessToken, err = requestAccessToken(cfg)
		}
		if err != nil {
			log.Errorf("authentication failed: %v", err)
			return 1
		}
	}
	log.Info("authentication successful")

	loc := meter.ResolveLocation(cfg.Timezone)
	from, until := meter.HistoryRange(time.Now(), cfg.DaysBack, loc)
	log.Infof("getting %d days of consumption data (granularity=%s, from=%s)", cfg.DaysBack, cfg.Granularity, from)

	client := meter.NewClient(cfg, accessToken)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := client.MeasurementHistory(ctx, meter.Query{
		EAN:         cfg.EAN,
		MeterSerial: cfg.MeterSerial,
		From:        from,
		Until:       until,
		Granularity: cfg.Granularity,
	})
	if err != nil {
		log.Errorf("failed to retrieve consumption data: %v", err)
		return 1
	}
	log.Infof("successfully retrieved %d days of data", len(result.Days))

	if err = saveRaw(cfg.Output, result.Raw); err != nil {
		log.Errorf("failed to save raw data: %v", err)
		return 1
	}
	log.Infof("raw data saved to %s", cfg.Output)

	meter.Report(result.Days)
	return 0
}

// requestAccessToken returns the configured bearer token if one was supplied,
// otherwise it runs the full login flow and logs the token's claims.
func requestAccessToken(cfg *config.Config) (string, error) {
	if cfg.BearerToken != "" {
		return util.StripBearerPrefix(cfg.BearerToken), nil
	}

	authenticator := fluvius.NewAuthenticator(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	result, err := authenticator.Authenticate(ctx, cfg.Email, cfg.Password, cfg.RememberMe)
	if err != nil {
		return "", err
	}

	for _, claim := range []string{"iss", "sub", "aud", "exp", "expires_in"} {
		if value, ok := result.Payload[claim]; ok {
			log.Debugf("token %s: %v", claim, formatClaim(value))
		}
	}
	return result.AccessToken, nil
}

// formatClaim renders numeric unix timestamps and other claim values tersely.
func formatClaim(value any) string {
	if number, ok := value.(float64); ok && number == float64(int64(number)) {
		return strconv.FormatInt(int64(number), 10)
	}
	return fmt.Sprintf("%v", value)
}

func applyString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

// saveRaw writes the raw API response, indented, to the output path.
func saveRaw(path string, raw json.RawMessage) error {
	var pretty any
	if err := json.Unmarshal(raw, &pretty); err != nil {
		return fmt.Errorf("failed to decode raw data: %w", err)
	}
	data, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode raw data: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
