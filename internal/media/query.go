// File: internal/media/query.go
package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/birdclip/internal/config"
	"github.com/xkilldash9x/birdclip/internal/faults"
	"github.com/xkilldash9x/birdclip/internal/scrape"
)

const tweetDetailOperation = "TweetDetail"

// The variables and feature-flag documents the endpoint insists on. These
// are versioned upstream; when the API rejects them the whole scrape
// contract has broken, so they live here as fixed text rather than config.
const (
	rawVariablesFmt = `{"focalTweetId":"%s","with_rux_injections":false,"includePromotedContent":true,"withCommunity":true,"withQuickPromoteEligibilityTweetFields":true,"withBirdwatchNotes":true,"withVoice":true,"withV2Timeline":true}`

	rawFeatures = `{"responsive_web_graphql_exclude_directive_enabled":true,"verified_phone_label_enabled":false,"responsive_web_home_pinned_timelines_enabled":true,"creator_subscriptions_tweet_preview_api_enabled":true,"responsive_web_graphql_timeline_navigation_enabled":true,"responsive_web_graphql_skip_user_profile_image_extensions_enabled":false,"c9s_tweet_anatomy_moderator_badge_enabled":true,"tweetypie_unmention_optimization_enabled":true,"responsive_web_edit_tweet_api_enabled":true,"graphql_is_translatable_rweb_tweet_is_translatable_enabled":true,"view_counts_everywhere_api_enabled":true,"longform_notetweets_consumption_enabled":true,"responsive_web_twitter_article_tweet_consumption_enabled":false,"tweet_awards_web_tipping_enabled":false,"freedom_of_speech_not_reach_fetch_enabled":true,"standardized_nudges_misinfo":true,"tweet_with_visibility_results_prefer_gql_limited_actions_policy_enabled":true,"longform_notetweets_rich_text_read_enabled":true,"longform_notetweets_inline_media_enabled":true,"responsive_web_media_download_video_enabled":false,"responsive_web_enhance_cards_enabled":false}`
)

// responseMaxBytes bounds the TweetDetail body read.
const responseMaxBytes = 16 << 20

// Query issues authenticated TweetDetail calls.
type Query struct {
	client  *http.Client
	limiter *rate.Limiter
	ua      string
	baseURL string
	logger  *zap.Logger
}

// NewQuery builds a query client from the network config.
func NewQuery(netCfg config.NetworkConfig, logger *zap.Logger) *Query {
	return &Query{
		client:  &http.Client{Timeout: netCfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(netCfg.GraphQLRatePerSec), 1),
		ua:      netCfg.UserAgent,
		baseURL: scrape.BaseURL,
		logger:  logger.Named("media"),
	}
}

// Fetch calls TweetDetail for one tweet and returns its mp4 variants sorted
// by descending bitrate. The environment must be freshly reconstituted; a
// non-2xx status is treated as a broken calling contract, not a transient
// network failure, and is never retried.
func (q *Query) Fetch(ctx context.Context, env scrape.Environment, tweetID, authorHandle string) ([]VideoVariant, error) {
	queryID, ok := env.QueryIDsByOperation[tweetDetailOperation]
	if !ok {
		return nil, faults.AppStructureChanged(
			"operation %q absent from the scraped query-id map", tweetDetailOperation)
	}

	if err := q.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/i/api/graphql/%s/%s?variables=%s&features=%s",
		q.baseURL, queryID, tweetDetailOperation,
		url.QueryEscape(fmt.Sprintf(rawVariablesFmt, tweetID)),
		url.QueryEscape(rawFeatures))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building TweetDetail request: %w", err)
	}
	q.setHeaders(req, env, tweetID, authorHandle)

	resp, err := q.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling TweetDetail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, faults.AppStructureChanged("TweetDetail request failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseMaxBytes))
	if err != nil {
		return nil, fmt.Errorf("reading TweetDetail response: %w", err)
	}

	var payload any
	if err := decode(body, &payload); err != nil {
		return nil, faults.Wrap(faults.KindAppStructureChanged, err, "decoding TweetDetail response")
	}

	variants, err := ExtractVariants(payload)
	if err != nil {
		return nil, err
	}
	q.logger.Debug("Fetched tweet detail.",
		zap.String("tweet_id", tweetID), zap.Int("variants", len(variants)))
	return variants, nil
}

// setHeaders applies the full header set the web app itself sends. The
// endpoint rejects requests missing the CSRF or auth-type headers.
func (q *Query) setHeaders(req *http.Request, env scrape.Environment, tweetID, authorHandle string) {
	h := req.Header
	h.Set("Accept", "*/*")
	h.Set("Accept-Language", "en-US,en;q=0.9")
	h.Set("Authorization", "Bearer "+env.AuthToken)
	h.Set("Cache-Control", "no-cache")
	h.Set("Content-Type", "application/json")
	h.Set("Pragma", "no-cache")
	h.Set("Sec-Fetch-Dest", "empty")
	h.Set("Sec-Fetch-Mode", "cors")
	h.Set("Sec-Fetch-Site", "same-origin")
	h.Set("Sec-GPC", "1")
	h.Set("X-Csrf-Token", env.CSRFToken)
	h.Set("X-Twitter-Active-User", "yes")
	h.Set("X-Twitter-Auth-Type", "OAuth2Session")
	h.Set("X-Twitter-Client-Language", "en")
	h.Set("Cookie", env.CookieHeader)
	h.Set("User-Agent", q.ua)
	h.Set("Referer", fmt.Sprintf("%s/%s/status/%s", q.baseURL, authorHandle, tweetID))
}
