package providers

import "github.com/poiesic/enrichit/core"

// Builtin returns a registry holding the standard social content sources.
func Builtin() *Registry {
	r, err := NewRegistry(BuiltinDescriptors()...)
	if err != nil {
		// descriptors below are static
		panic(err)
	}
	return r
}

// BuiltinDescriptors returns fresh copies of the standard descriptors.
func BuiltinDescriptors() []*Descriptor {
	return []*Descriptor{
		{
			Name:     "x_tweets",
			IDColumn: "tweet_id",
			Fields: map[core.Field][]string{
				core.FieldText:      {"tweet_text"},
				core.FieldAuthor:    {"author"},
				core.FieldLikes:     {"likes"},
				core.FieldRetweets:  {"retweets"},
				core.FieldReplies:   {"replies"},
				core.FieldViews:     {"views"},
				core.FieldPostedAt:  {"posted_at"},
				core.FieldKeyword:   {"keyword"},
				core.FieldRegion:    {"region"},
				core.FieldScrapedAt: {"scraped_at"},
			},
			HasText:         true,
			DefaultCategory: "microblog",
		},
		{
			Name:     "apify_x_tweets",
			IDColumn: "id",
			Fields: map[core.Field][]string{
				core.FieldText:         {"text"},
				core.FieldAuthor:       {"author_username"},
				core.FieldAuthorHandle: {"author_username"},
				core.FieldLikes:        {"like_count"},
				core.FieldRetweets:     {"retweet_count"},
				core.FieldReplies:      {"reply_count"},
				core.FieldViews:        {"view_count"},
				core.FieldPostedAt:     {"created_at"},
				core.FieldKeyword:      {"keyword"},
				core.FieldRegion:       {"region"},
				core.FieldSourceURL:    {"url"},
				core.FieldScrapedAt:    {"scraped_at"},
			},
			HasText:         true,
			DefaultCategory: "microblog",
		},
		{
			Name:     "apify_tiktok_posts",
			IDColumn: "id",
			Fields: map[core.Field][]string{
				core.FieldText:         {"text"},
				core.FieldAuthor:       {"author_username"},
				core.FieldAuthorHandle: {"author_username"},
				core.FieldLikes:        {"digg_count"},
				core.FieldRetweets:     {"share_count"},
				core.FieldReplies:      {"comment_count"},
				core.FieldViews:        {"play_count"},
				core.FieldPostedAt:     {"created_at"},
				core.FieldHashtags:     {"hashtags"},
				core.FieldKeyword:      {"keyword"},
				core.FieldRegion:       {"region"},
				core.FieldSourceURL:    {"web_video_url"},
				core.FieldScrapedAt:    {"scraped_at"},
			},
			HasText:         true,
			DefaultCategory: "short_video",
		},
		{
			Name:     "instagram_posts",
			IDColumn: "post_id",
			Fields: map[core.Field][]string{
				core.FieldText:         {"caption"},
				core.FieldAuthor:       {"username"},
				core.FieldAuthorHandle: {"username"},
				core.FieldLikes:        {"likes"},
				core.FieldReplies:      {"comments"},
				core.FieldViews:        {"views"},
				core.FieldKeyword:      {"keyword"},
				core.FieldRegion:       {"region"},
				core.FieldScrapedAt:    {"scraped_at"},
			},
			HasText:         true,
			DefaultCategory: "photo",
			Passthrough:     []string{"media_type"},
		},
		{
			Name:     "reddit_posts",
			IDColumn: "post_id",
			Fields: map[core.Field][]string{
				core.FieldText:      {"title", "caption"},
				core.FieldAuthor:    {"author"},
				core.FieldLikes:     {"upvotes"},
				core.FieldReplies:   {"comments"},
				core.FieldPostedAt:  {"posted_at"},
				core.FieldKeyword:   {"keyword"},
				core.FieldScrapedAt: {"scraped_at"},
			},
			HasText:         true,
			DefaultCategory: "forum",
			Passthrough:     []string{"subreddit"},
		},
		{
			Name:     "tiktok_videos",
			IDColumn: "video_id",
			Fields: map[core.Field][]string{
				core.FieldText:      {"description"},
				core.FieldAuthor:    {"creator"},
				core.FieldLikes:     {"likes"},
				core.FieldRetweets:  {"shares"},
				core.FieldReplies:   {"comments"},
				core.FieldViews:     {"views"},
				core.FieldKeyword:   {"keyword"},
				core.FieldScrapedAt: {"scraped_at"},
			},
			HasText:         true,
			DefaultCategory: "short_video",
		},
		{
			Name:     "youtube_videos",
			IDColumn: "video_id",
			Fields: map[core.Field][]string{
				core.FieldText:      {"title"},
				core.FieldAuthor:    {"channel"},
				core.FieldLikes:     {"likes"},
				core.FieldReplies:   {"comments"},
				core.FieldViews:     {"views"},
				core.FieldPostedAt:  {"upload_date"},
				core.FieldKeyword:   {"keyword"},
				core.FieldRegion:    {"region"},
				core.FieldScrapedAt: {"scraped_at"},
			},
			HasText:         true,
			DefaultCategory: "long_video",
		},
		{
			Name:     "youtube_channel_stats",
			IDColumn: "channel_id",
			Fields: map[core.Field][]string{
				core.FieldAuthor:    {"channel"},
				core.FieldViews:     {"total_views"},
				core.FieldScrapedAt: {"scraped_at"},
			},
			HasText:         false,
			DefaultCategory: "channel_metrics",
		},
	}
}
