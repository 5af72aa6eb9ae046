package domain

// Platform identifies the site a URL belongs to.
type Platform string

const (
	PlatformYouTube     Platform = "youtube"
	PlatformTikTok      Platform = "tiktok"
	PlatformInstagram   Platform = "instagram"
	PlatformFacebook    Platform = "facebook"
	PlatformTwitter     Platform = "twitter"
	PlatformReddit      Platform = "reddit"
	PlatformTwitch      Platform = "twitch"
	PlatformVimeo       Platform = "vimeo"
	PlatformDailymotion Platform = "dailymotion"
	PlatformImgur       Platform = "imgur"
	PlatformDeviantArt  Platform = "deviantart"
	PlatformPinterest   Platform = "pinterest"
	PlatformFlickr      Platform = "flickr"
	Platform500px       Platform = "500px"
	PlatformUnsplash    Platform = "unsplash"
	PlatformPexels      Platform = "pexels"
	PlatformUnknown     Platform = "unknown"
)

// String returns the string representation of the Platform.
func (p Platform) String() string {
	return string(p)
}

// Known reports whether the platform was positively identified.
func (p Platform) Known() bool {
	return p != "" && p != PlatformUnknown
}

// ContentType classifies what kind of media a URL points at.
type ContentType string

const (
	ContentTypeVideo   ContentType = "video"
	ContentTypeImage   ContentType = "image"
	ContentTypeGallery ContentType = "gallery"
	ContentTypeStory   ContentType = "story"
	ContentTypeReel    ContentType = "reel"
	ContentTypeThread  ContentType = "thread"
	ContentTypeUnknown ContentType = "unknown"
)

// String returns the string representation of the ContentType.
func (c ContentType) String() string {
	return string(c)
}

// MediaMetadata holds the fields probed from a URL before download.
// Any field may be zero when the extractor did not report it.
type MediaMetadata struct {
	Title           string
	Description     string
	Uploader        string
	DurationSeconds float64
	Resolution      string
	Tags            []string
	FormatCount     int
}

// ContentAnalysis is the outcome of classifying probed metadata.
type ContentAnalysis struct {
	ContentType ContentType
	Confidence  float64
	Metadata    *MediaMetadata
}

// FetchResult describes a file an extraction strategy produced on disk.
type FetchResult struct {
	FilePath  string
	Title     string
	SizeBytes int64
}
