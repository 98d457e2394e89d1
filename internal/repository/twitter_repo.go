package repository

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"calltracker/config"
	"calltracker/internal/dto"
	"calltracker/internal/model"
	"calltracker/pkg/httpclient"
	"calltracker/pkg/logger"
	"calltracker/pkg/utils"

	"golang.org/x/time/rate"
)

type TwitterRepository interface {
	// FetchPost returns the tweet or nil when it does not exist
	// (deleted, protected, suspended author).
	FetchPost(ctx context.Context, id string) (*model.Post, error)
}

type twitterRepository struct {
	httpClient     httpclient.HTTPClient
	cfg            *config.Config
	logger         *logger.Logger
	requestLimiter *rate.Limiter
}

func NewTwitterRepository(cfg *config.Config, log *logger.Logger) TwitterRepository {
	secondsPerRequest := time.Minute / time.Duration(cfg.Twitter.MaxRequestPerMinute)
	requestLimiter := rate.NewLimiter(rate.Every(secondsPerRequest), 1)

	return &twitterRepository{
		httpClient:     httpclient.New(log, cfg.Twitter.BaseURL, cfg.Twitter.Timeout, cfg.Twitter.BearerToken),
		cfg:            cfg,
		logger:         log,
		requestLimiter: requestLimiter,
	}
}

func (r *twitterRepository) FetchPost(ctx context.Context, id string) (*model.Post, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	queryParams := map[string]string{
		"expansions":   "author_id",
		"tweet.fields": "created_at",
		"user.fields":  "name,username,profile_image_url",
	}

	var tweet dto.TwitterTweetResponse
	resp, err := r.httpClient.Get(ctx, "/tweets/"+id, queryParams, nil, &tweet)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tweet %s: %w", id, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		r.logger.ErrorContext(ctx, "Twitter API returned Non-OK status",
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("tweet_id", id),
			logger.StringField("body", string(resp.Body)))
		return nil, fmt.Errorf("twitter api returned status: %d", resp.StatusCode)
	}

	if tweet.Data == nil {
		// The API reports deleted/withheld tweets as errors with a 200.
		return nil, nil
	}

	post := &model.Post{
		ID:   tweet.Data.ID,
		Text: utils.SafeText(tweet.Data.Text),
	}

	if tweet.Data.CreatedAt != "" {
		postedAt, err := time.Parse(time.RFC3339, tweet.Data.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse tweet created_at: %w", err)
		}
		post.PostedAt = postedAt.UTC()
	}

	if tweet.Includes != nil {
		for _, user := range tweet.Includes.Users {
			if user.ID == tweet.Data.AuthorID {
				post.Username = user.Username
				post.DisplayName = user.Name
				post.Avatar = user.ProfileImageURL
				break
			}
		}
	}

	return post, nil
}
