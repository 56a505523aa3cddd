package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/birdclip/internal/config"
	"github.com/xkilldash9x/birdclip/internal/faults"
	"github.com/xkilldash9x/birdclip/internal/scrape"
)

func testEnv() scrape.Environment {
	return scrape.Environment{
		Record: scrape.Record{
			BundleURL:           "https://abs.twimg.com/responsive-web/client-web/main.aaaa1111.js",
			AuthToken:           "AAAAAAAtoken",
			QueryIDsByOperation: map[string]string{"TweetDetail": "qid-1"},
		},
		CSRFToken:    "csrf-value",
		CookieHeader: "auth_token=secret; ct0=csrf-value",
	}
}

func newTestQuery(t *testing.T, baseURL string) *Query {
	t.Helper()
	q := NewQuery(config.NetworkConfig{UserAgent: "test-agent", GraphQLRatePerSec: 1000}, zaptest.NewLogger(t))
	q.baseURL = baseURL
	return q
}

const detailBody = `{
	"data": {"entries": [{"entryId": "tweet-123456", "media": {
		"type": "video",
		"video_info": {
			"aspect_ratio": [16, 9],
			"variants": [
				{"content_type": "video/mp4", "bitrate": 832000, "url": "https://video/832k.mp4"}
			]
		}
	}}]}
}`

func TestFetchCallsTweetDetail(t *testing.T) {
	env := testEnv()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/i/api/graphql/qid-1/TweetDetail", r.URL.Path)
		assert.Contains(t, r.URL.Query().Get("variables"), `"focalTweetId":"123456"`)
		assert.NotEmpty(t, r.URL.Query().Get("features"))

		assert.Equal(t, "Bearer AAAAAAAtoken", r.Header.Get("Authorization"))
		assert.Equal(t, "csrf-value", r.Header.Get("X-Csrf-Token"))
		assert.Equal(t, "OAuth2Session", r.Header.Get("X-Twitter-Auth-Type"))
		assert.Equal(t, env.CookieHeader, r.Header.Get("Cookie"))
		assert.Contains(t, r.Header.Get("Referer"), "/some_user/status/123456")

		_, _ = w.Write([]byte(detailBody))
	}))
	defer srv.Close()

	q := newTestQuery(t, srv.URL)
	videos, err := q.Fetch(context.Background(), env, "123456", "some_user")
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, 832000, videos[0].BitrateBps)
	assert.Equal(t, "https://video/832k.mp4", videos[0].URL)
}

func TestFetchMissingTweetDetailOperation(t *testing.T) {
	env := testEnv()
	env.QueryIDsByOperation = map[string]string{"UserByScreenName": "qid-2"}

	q := newTestQuery(t, "http://unused.invalid")
	_, err := q.Fetch(context.Background(), env, "123456", "some_user")
	require.Error(t, err)
	assert.Equal(t, faults.KindAppStructureChanged, faults.KindOf(err))
}

func TestFetchNon2xxIsStructuralBreak(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	q := newTestQuery(t, srv.URL)
	_, err := q.Fetch(context.Background(), testEnv(), "123456", "some_user")
	require.Error(t, err)
	assert.Equal(t, faults.KindAppStructureChanged, faults.KindOf(err))
	assert.Contains(t, err.Error(), "403")
}

func TestFetchUndecodableBodyIsStructuralBreak(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	q := newTestQuery(t, srv.URL)
	_, err := q.Fetch(context.Background(), testEnv(), "123456", "some_user")
	require.Error(t, err)
	assert.Equal(t, faults.KindAppStructureChanged, faults.KindOf(err))
}
