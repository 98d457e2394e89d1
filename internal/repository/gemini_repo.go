package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"calltracker/config"
	"calltracker/internal/dto"
	"calltracker/internal/model"
	"calltracker/pkg/httpclient"
	"calltracker/pkg/logger"
	"calltracker/pkg/ratelimit"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// ExtractionRepository is the opaque text-to-call capability. Its
// judgment is not part of this system's contract; the deterministic
// wrapper lives in internal/service.
type ExtractionRepository interface {
	CallFromText(ctx context.Context, text string, postedAt time.Time, market *model.MarketContext) (*dto.RawCall, error)
}

type geminiExtractionRepository struct {
	httpClient     httpclient.HTTPClient
	cfg            *config.Config
	logger         *logger.Logger
	tokenLimiter   *ratelimit.TokenLimiter
	requestLimiter *rate.Limiter
	genAiClient    *genai.Client
}

func NewGeminiExtractionRepository(cfg *config.Config, log *logger.Logger) (ExtractionRepository, error) {
	secondsPerRequest := time.Minute / time.Duration(cfg.Gemini.MaxRequestPerMinute)
	requestLimiter := rate.NewLimiter(rate.Every(secondsPerRequest), 1)

	tokenLimiter := ratelimit.NewTokenLimiter(cfg.Gemini.MaxTokenPerMinute)
	genAiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.Gemini.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &geminiExtractionRepository{
		httpClient:     httpclient.New(log, cfg.Gemini.BaseURL, cfg.Gemini.Timeout, ""),
		cfg:            cfg,
		logger:         log,
		requestLimiter: requestLimiter,
		tokenLimiter:   tokenLimiter,
		genAiClient:    genAiClient,
	}, nil
}

func (r *geminiExtractionRepository) CallFromText(ctx context.Context, text string, postedAt time.Time, market *model.MarketContext) (*dto.RawCall, error) {
	prompt := r.promptExtractCall(text, postedAt, market)

	response, err := r.sendRequest(ctx, prompt)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to send request to gemini", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to send request to gemini: %w", err)
	}

	var rawCall dto.RawCall
	if err := r.parseResponse(response, &rawCall); err != nil {
		r.logger.ErrorContext(ctx, "failed to parse response from gemini", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to parse response from gemini: %w", err)
	}

	return &rawCall, nil
}

func (r *geminiExtractionRepository) promptExtractCall(text string, postedAt time.Time, market *model.MarketContext) string {
	sb := strings.Builder{}
	sb.WriteString("You are analyzing a public social media post for an actionable financial prediction (a \"call\").\n")
	sb.WriteString("Respond with a single JSON object and nothing else, using this schema:\n")
	sb.WriteString(`{"has_call":bool,"symbol":string,"asset_type":"CRYPTO"|"STOCK","contract_address":string,"chain":string,"action":"BUY"|"SELL","sentiment":"BULLISH"|"BEARISH","confidence":number 0..1,"timeframe":string,"is_sarcasm":bool,"warning_flags":[string],"reasoning":string}`)
	sb.WriteString("\n\nRules:\n")
	sb.WriteString("- has_call is false when the post contains no actionable prediction.\n")
	sb.WriteString("- Use warning flags QUESTION_OR_POLL, DIRECTIONLESS, AMBIGUOUS_TICKER, QUOTED_OLD_NEWS where applicable.\n")
	sb.WriteString("- contract_address and chain only when the post names an on-chain token address.\n")
	sb.WriteString(fmt.Sprintf("\nPost time (UTC): %s\n", postedAt.UTC().Format(time.RFC3339)))
	if market != nil {
		sb.WriteString(fmt.Sprintf("Market snapshot: BTC $%.2f, ETH $%.2f, SOL $%.2f\n", market.BTCPriceUSD, market.ETHPriceUSD, market.SOLPriceUSD))
	}
	sb.WriteString("\nPost:\n")
	sb.WriteString(text)
	return sb.String()
}

func (r *geminiExtractionRepository) sendRequest(ctx context.Context, prompt string) (*dto.GeminiAPIResponse, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, "user"),
	}
	geminiTokenResp, err := r.genAiClient.Models.CountTokens(ctx, r.cfg.Gemini.BaseModel, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count tokens: %w", err)
	}

	r.logger.Debug("Gemini token count",
		logger.IntField("total_tokens", int(geminiTokenResp.TotalTokens)),
		logger.IntField("remaining", r.tokenLimiter.GetRemaining()),
	)
	if err := r.tokenLimiter.Wait(ctx, int(geminiTokenResp.TotalTokens)); err != nil {
		return nil, fmt.Errorf("failed to wait for token gemini limit: %w", err)
	}

	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for request gemini limit: %w", err)
	}

	payload := dto.GeminiAPIRequest{
		Contents: []dto.GeminiContent{{Parts: []dto.GeminiPart{{Text: prompt}}}},
	}

	geminiAPIResponse := dto.GeminiAPIResponse{}

	apiURL := fmt.Sprintf("/%s:generateContent?key=%s", r.cfg.Gemini.BaseModel, r.cfg.Gemini.APIKey)

	geminiResp, err := r.httpClient.Post(ctx, apiURL, payload, nil, &geminiAPIResponse)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to gemini: %w", err)
	}

	if geminiResp.StatusCode != http.StatusOK {
		r.logger.ErrorContext(ctx, "failed to get data from gemini", logger.IntField("status_code", geminiResp.StatusCode))
		return nil, fmt.Errorf("gemini api returned status: %d", geminiResp.StatusCode)
	}

	return &geminiAPIResponse, nil
}

func (r *geminiExtractionRepository) parseResponse(response *dto.GeminiAPIResponse, dest interface{}) error {
	if len(response.Candidates) == 0 || len(response.Candidates[0].Content.Parts) == 0 {
		return fmt.Errorf("invalid response from Gemini API: no content found")
	}

	jsonString := response.Candidates[0].Content.Parts[0].Text
	jsonString = strings.Trim(jsonString, "`json\n`")

	return json.Unmarshal([]byte(jsonString), dest)
}
