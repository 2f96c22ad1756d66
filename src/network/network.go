package network

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"binance-observer/src/logger"
	"binance-observer/src/models"
)

// -----------------------------------------------------------------------------

// RestManager performs REST calls against the exchange API with retries.
// The live stream does not go through here; this exists for the trade
// backfill at startup.
type RestManager struct {
	Config *models.MConfig
	Client *http.Client
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewRestManager(cfg *models.MConfig, log *logger.Logger) *RestManager {
	return &RestManager{
		Config: cfg,
		Logger: log,
		Client: &http.Client{
			Timeout: time.Duration(cfg.Network.RequestTimeout) * time.Second,
		},
	}
}

// -----------------------------------------------------------------------------

// Get performs a GET request with retries and exponential backoff.
func (nm *RestManager) Get(urlStr string, params map[string]string) ([]byte, error) {
	reqUrl, err := url.Parse(urlStr)
	if err != nil {
		return nil, err
	}

	q := reqUrl.Query()
	for k, v := range params {
		q.Add(k, v)
	}
	reqUrl.RawQuery = q.Encode()

	finalUrl := reqUrl.String()

	maxRetries := nm.Config.Network.MaxRetries
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			time.Sleep(time.Duration(i*i) * time.Second) // Exponential backoff
		}

		req, err := http.NewRequest("GET", finalUrl, nil)
		if err != nil {
			return nil, err
		}

		if nm.Config.Network.UserAgent != "" {
			req.Header.Set("User-Agent", nm.Config.Network.UserAgent)
		}

		resp, err := nm.Client.Do(req)
		if err != nil {
			lastErr = err
			nm.Logger.Info("Request failed (attempt %d/%d): %v", i+1, maxRetries+1, err)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == 429 || resp.StatusCode == 418 {
			// Exchange rate-limit responses; back off harder before retrying.
			lastErr = fmt.Errorf("rate limited (status %d)", resp.StatusCode)
			nm.Logger.Warning("Rate limited by exchange (%d), backing off", resp.StatusCode)
			time.Sleep(time.Duration(i+1) * 2 * time.Second)
			continue
		}

		if resp.StatusCode != 200 {
			lastErr = fmt.Errorf("bad status: %d", resp.StatusCode)
			nm.Logger.Info("Bad status %d for %s", resp.StatusCode, finalUrl)
			continue
		}

		if readErr != nil {
			lastErr = readErr
			continue
		}

		return body, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
