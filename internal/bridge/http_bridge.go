package bridge

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// HTTPBridge communicates with the bridge daemon's internal API.
type HTTPBridge struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

func NewHTTPBridge(baseURL string, log *zap.Logger) *HTTPBridge {
	return &HTTPBridge{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

type wireIntention struct {
	From       string `json:"from"`
	To         string `json:"to"`
	Calldata   string `json:"calldata"`
	ValueWei   string `json:"value_wei"`
	ActionType string `json:"action_type"`
}

func toWire(in Intention) wireIntention {
	return wireIntention{
		From:       in.From,
		To:         in.To,
		Calldata:   "0x" + hex.EncodeToString(in.Calldata),
		ValueWei:   in.ValueWei,
		ActionType: in.ActionType,
	}
}

func (c *HTTPBridge) Finalize(ctx context.Context, intentions []Intention) (*FinalizeResult, error) {
	wire := make([]wireIntention, len(intentions))
	for i, in := range intentions {
		wire[i] = toWire(in)
	}
	var result FinalizeResult
	if err := c.post(ctx, "/internal/finalize", map[string]any{"intentions": wire}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPBridge) Sign(ctx context.Context, intention Intention, txID string) ([]byte, error) {
	var result struct {
		Signed string `json:"signed"`
		Reason string `json:"reason"`
	}
	err := c.post(ctx, "/internal/sign", map[string]any{
		"intention": toWire(intention),
		"tx_id":     txID,
	}, &result)
	if err != nil {
		return nil, err
	}
	switch result.Reason {
	case "user_rejected":
		return nil, ErrUserRejected
	case "network_mismatch":
		return nil, ErrNetworkMismatch
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(result.Signed, "0x"))
	if err != nil {
		return nil, fmt.Errorf("bridge returned malformed signed payload: %w", err)
	}
	return raw, nil
}

func (c *HTTPBridge) Broadcast(ctx context.Context, signed [][]byte, txHex string) error {
	payloads := make([]string, len(signed))
	for i, s := range signed {
		payloads[i] = "0x" + hex.EncodeToString(s)
	}
	return c.post(ctx, "/internal/broadcast", map[string]any{
		"signed_payloads": payloads,
		"tx_hex":          txHex,
	}, nil)
}

// AwaitConfirmation polls the daemon until it reports the transaction
// confirmed. The caller bounds the wait through ctx.
func (c *HTTPBridge) AwaitConfirmation(ctx context.Context, txID string) error {
	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()

	for {
		var result struct {
			Status string `json:"status"` // pending, confirmed, failed
		}
		err := c.post(ctx, "/internal/confirmation", map[string]any{"tx_id": txID}, &result)
		if err == nil {
			switch result.Status {
			case "confirmed":
				return nil
			case "failed":
				return fmt.Errorf("transaction %s failed on chain", txID)
			}
		} else {
			c.log.Warn("confirmation poll failed", zap.String("tx_id", txID), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *HTTPBridge) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(string(body)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("bridge service unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("bridge service returned %d: %s", resp.StatusCode, string(b))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
