package enum

type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderIMAP   Provider = "imap"
)

func (p Provider) String() string {
	return string(p)
}

// Logical folders the UI knows about. Providers map them onto their own
// vocabulary (labels, search predicates or mailbox names).
const (
	FolderInbox = "inbox"
	FolderTrash = "trash"
	FolderSpam  = "spam"
	FolderSent  = "sent"
)

// Gmail system labels
const (
	LabelUnread  = "UNREAD"
	LabelStarred = "STARRED"
)

type CacheStatus string

const (
	CacheHit         CacheStatus = "HIT"
	CacheMiss        CacheStatus = "MISS"
	CacheRevalidated CacheStatus = "REVALIDATED"
)

func (s CacheStatus) String() string {
	return string(s)
}

type InvalidationScope string

const (
	InvalidateMessage  InvalidationScope = "message"
	InvalidateListings InvalidationScope = "listings"
	InvalidateAll      InvalidationScope = "all"
)

type CacheBackend string

const (
	CacheBackendMemory   CacheBackend = "memory"
	CacheBackendRedis    CacheBackend = "redis"
	CacheBackendBolt     CacheBackend = "bolt"
	CacheBackendPostgres CacheBackend = "postgres"
	CacheBackendS3       CacheBackend = "s3"
)
